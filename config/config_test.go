package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"avatar-provisioner/avatar"
)

var projectEnv = []string{"GOOGLE_APPLICATION_CREDENTIALS", "AVATAR_PUBSUB_PROJECT_ID", "GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"}

// clearEnv blanks keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func Test_firstNonEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"all empty", []string{"", "", ""}, ""},
		{"first non-empty", []string{"a", "b"}, "a"},
		{"later non-empty", []string{"", "b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstNonEmpty(tt.in...)
			if got != tt.want {
				t.Errorf("firstNonEmpty() got=%#v want=%#v", got, tt.want)
			}
		})
	}
}

func Test_Config_HTTPAddr(t *testing.T) {
	tests := []struct {
		name string
		port int
		want string
	}{
		{"default", 8080, "0.0.0.0:8080"},
		{"custom", 9090, "0.0.0.0:9090"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{MetricsPort: tt.port}
			if got := c.HTTPAddr(); got != tt.want {
				t.Errorf("HTTPAddr() got=%#v want=%#v", got, tt.want)
			}
		})
	}
}

func Test_Config_LoginURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		redirect string
		want     string
	}{
		{"default shape", "https://remilia-village.vercel.app", "miladycity://auth", "https://remilia-village.vercel.app?redirect_uri=miladycity://auth"},
		{"base with query", "https://login.example/?lang=en", "app://cb", "https://login.example/?lang=en&redirect_uri=app://cb"},
		{"redirect already present", "https://login.example?redirect_uri=x", "app://cb", "https://login.example?redirect_uri=x"},
		{"no redirect", "https://login.example", "", "https://login.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{LoginBaseURL: tt.base, RedirectURI: tt.redirect}
			if got := c.LoginURL(); got != tt.want {
				t.Errorf("LoginURL() got=%#v want=%#v", got, tt.want)
			}
		})
	}
}

func Test_Config_SpawnTransform(t *testing.T) {
	c := &Config{SpawnLocation: []float64{1, 2, 3}, SpawnYaw: 90}
	want := avatar.Transform{Location: avatar.Vector{X: 1, Y: 2, Z: 3}, Rotation: avatar.Rotator{Yaw: 90}}
	if got := c.SpawnTransform(); got != want {
		t.Errorf("SpawnTransform() got=%#v want=%#v", got, want)
	}
}

func Test_Config_Redacted(t *testing.T) {
	c := &Config{
		GoogleProjectID: "pid", Subscription: "sub", ResultTopic: "topic", LoginBaseURL: "https://l", RedirectURI: "app://cb",
		AssetBaseURL: "https://a", MeshScanLimit: 20, MetricsPort: 8081, LogLevel: "debug", CredentialsFile: "creds.json",
	}
	got := c.Redacted()
	want := map[string]any{
		"projectID":            "pid",
		"redirectSubscription": "sub",
		"resultTopic":          "topic",
		"loginURL":             "https://l?redirect_uri=app://cb",
		"assetBaseURL":         "https://a",
		"meshScanLimit":        20,
		"metricsPort":          8081,
		"logLevel":             "debug",
		"credentialsProvided":  true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Redacted()\n got=%#v\nwant=%#v", got, want)
	}
}

func Test_projectIDFromCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.json")
	if err := os.WriteFile(path, []byte(`{"project_id":"my-proj"}`), 0o600); err != nil {
		t.Fatalf("write temp creds: %#v", err)
	}
	pid, err := projectIDFromCredentials(path)
	if err != nil || pid != "my-proj" {
		t.Errorf("projectIDFromCredentials() pid=%#v err=%#v", pid, err)
	}

	// missing field returns empty id, no error
	if err := os.WriteFile(path, []byte(`{"nope":1}`), 0o600); err != nil {
		t.Fatalf("write temp creds: %#v", err)
	}
	pid2, err2 := projectIDFromCredentials(path)
	if err2 != nil || pid2 != "" {
		t.Errorf("projectIDFromCredentials(invalid) pid=%#v err=%#v", pid2, err2)
	}

	if _, err := projectIDFromCredentials(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("projectIDFromCredentials(missing) expected error")
	}
}

func Test_getGoogleProjectID(t *testing.T) {
	dir := t.TempDir()
	credFile := filepath.Join(dir, "creds.json")
	_ = os.WriteFile(credFile, []byte(`{"project_id":"file-proj"}`), 0o600)

	tests := []struct {
		name     string
		setEnv   map[string]string
		creds    string
		explicit string
		want     string
	}{
		{"from GOOGLE_APPLICATION_CREDENTIALS", map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": credFile}, "", "", "file-proj"},
		{"from explicit AVATAR_PUBSUB_PROJECT_ID", map[string]string{}, "", "explicit-proj", "explicit-proj"},
		{"from GOOGLE_PROJECT_ID", map[string]string{"GOOGLE_PROJECT_ID": "env-proj"}, "", "", "env-proj"},
		{"from common env", map[string]string{"GOOGLE_CLOUD_PROJECT": "common-proj"}, "", "", "common-proj"},
		{"from provided credsFile path", map[string]string{}, credFile, "", "file-proj"},
		{"none -> empty", map[string]string{}, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, projectEnv...)
			for k, v := range tt.setEnv {
				t.Setenv(k, v)
			}
			got := getGoogleProjectID(tt.creds, tt.explicit)
			if got != tt.want {
				t.Errorf("getGoogleProjectID() got=%#v want=%#v", got, tt.want)
			}
		})
	}
}

func Test_Load(t *testing.T) {
	clearEnv(t, append(projectEnv,
		"AVATAR_LOGIN_URL", "AVATAR_REDIRECT_URI", "AVATAR_CALLBACK_PATH", "AVATAR_ASSET_BASE_URL", "AVATAR_IPFS_GATEWAY",
		"AVATAR_MESH_SCAN_LIMIT", "AVATAR_SPAWN_LOCATION", "AVATAR_SPAWN_YAW", "AVATAR_METRICS_PORT", "AVATAR_LOG_LEVEL",
		"AVATAR_REDIRECT_SUBSCRIPTION", "AVATAR_RESULT_TOPIC", "AVATAR_GSA_CREDENTIALS")...)

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() err: %#v", err)
		}
		if cfg.LoginURL() != "https://remilia-village.vercel.app?redirect_uri=miladycity://auth" {
			t.Errorf("LoginURL() got=%#v", cfg.LoginURL())
		}
		if cfg.MeshScanLimit != 20 || cfg.MetricsPort != 8080 || cfg.LogLevel != "info" || cfg.CallbackPath != "/auth/callback" {
			t.Errorf("Load() unexpected defaults: %#v", cfg)
		}
		if got := cfg.SpawnTransform().Location; got != (avatar.Vector{Z: 100}) {
			t.Errorf("spawn location got=%#v", got)
		}
		if cfg.PubSubEnabled() || cfg.GoogleProjectID != "" {
			t.Errorf("pubsub should be disabled: %#v", cfg)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("AVATAR_REDIRECT_SUBSCRIPTION", "sub")
		t.Setenv("AVATAR_RESULT_TOPIC", "topic")
		t.Setenv("AVATAR_PUBSUB_PROJECT_ID", "proj")
		t.Setenv("AVATAR_METRICS_PORT", "7777")
		t.Setenv("AVATAR_LOG_LEVEL", " warn ")
		t.Setenv("AVATAR_MESH_SCAN_LIMIT", "32")
		t.Setenv("AVATAR_SPAWN_LOCATION", "1.5,-2,50")
		t.Setenv("AVATAR_GSA_CREDENTIALS", "/tmp/none.json")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() err: %#v", err)
		}
		if cfg.Subscription != "sub" || cfg.ResultTopic != "topic" || cfg.MetricsPort != 7777 || cfg.LogLevel != "warn" || cfg.MeshScanLimit != 32 {
			t.Errorf("Load() unexpected cfg: %#v", cfg)
		}
		if cfg.GoogleProjectID != "proj" || cfg.CredentialsFile != "/tmp/none.json" {
			t.Errorf("project resolution got=%#v creds=%#v", cfg.GoogleProjectID, cfg.CredentialsFile)
		}
		if got := cfg.SpawnTransform().Location; got != (avatar.Vector{X: 1.5, Y: -2, Z: 50}) {
			t.Errorf("spawn location got=%#v", got)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		for k, v := range map[string]string{"AVATAR_METRICS_PORT": "abc", "AVATAR_SPAWN_LOCATION": "1,2"} {
			t.Run(k, func(t *testing.T) {
				t.Setenv(k, v)
				if _, err := Load(); err == nil {
					t.Errorf("Load() with %s=%s expected error", k, v)
				}
			})
		}
	})
}
