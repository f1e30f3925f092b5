// Package config reads the service configuration from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"avatar-provisioner/avatar"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	LoginBaseURL  string    `env:"AVATAR_LOGIN_URL" envDefault:"https://remilia-village.vercel.app"`
	RedirectURI   string    `env:"AVATAR_REDIRECT_URI" envDefault:"miladycity://auth"`
	CallbackPath  string    `env:"AVATAR_CALLBACK_PATH" envDefault:"/auth/callback"`
	AssetBaseURL  string    `env:"AVATAR_ASSET_BASE_URL" envDefault:"https://remilia-village.vercel.app"`
	IPFSGateway   string    `env:"AVATAR_IPFS_GATEWAY" envDefault:"https://nftstorage.link/ipfs/"`
	MeshScanLimit int       `env:"AVATAR_MESH_SCAN_LIMIT" envDefault:"20"`
	SpawnLocation []float64 `env:"AVATAR_SPAWN_LOCATION" envDefault:"0,0,100" envSeparator:","`
	SpawnYaw      float64   `env:"AVATAR_SPAWN_YAW" envDefault:"0"`
	MetricsPort   int       `env:"AVATAR_METRICS_PORT" envDefault:"8080"`
	LogLevel      string    `env:"AVATAR_LOG_LEVEL" envDefault:"info"`

	Subscription      string `env:"AVATAR_REDIRECT_SUBSCRIPTION"`
	ResultTopic       string `env:"AVATAR_RESULT_TOPIC"`
	ExplicitProjectID string `env:"AVATAR_PUBSUB_PROJECT_ID"`
	AppCredentials    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	GSACredentials    string `env:"AVATAR_GSA_CREDENTIALS"`

	// Resolved by Load.
	CredentialsFile string
	GoogleProjectID string
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.SpawnLocation) != 3 {
		return nil, fmt.Errorf("AVATAR_SPAWN_LOCATION: want x,y,z, got %d values", len(cfg.SpawnLocation))
	}
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.CredentialsFile = strings.TrimSpace(firstNonEmpty(cfg.AppCredentials, cfg.GSACredentials))

	if cfg.Subscription != "" || cfg.ResultTopic != "" {
		cfg.GoogleProjectID = getGoogleProjectID(cfg.CredentialsFile, cfg.ExplicitProjectID)
		if cfg.GoogleProjectID == "" {
			log.Warn().Msg("Google project ID not resolved; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or AVATAR_PUBSUB_PROJECT_ID")
		}
	}
	if cfg.Subscription == "" {
		log.Info().Msg("Pub/Sub redirect intake disabled; set AVATAR_REDIRECT_SUBSCRIPTION to enable")
	}
	if cfg.ResultTopic == "" {
		log.Info().Msg("Pub/Sub result publishing disabled; set AVATAR_RESULT_TOPIC to enable")
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.MetricsPort))
}

// LoginURL is the provider page with the callback the provider redirects to.
func (c *Config) LoginURL() string {
	if c.RedirectURI == "" || strings.Contains(c.LoginBaseURL, "redirect_uri=") {
		return c.LoginBaseURL
	}
	sep := "?"
	if strings.Contains(c.LoginBaseURL, "?") {
		sep = "&"
	}
	return c.LoginBaseURL + sep + "redirect_uri=" + c.RedirectURI
}

func (c *Config) SpawnTransform() avatar.Transform {
	var t avatar.Transform
	if len(c.SpawnLocation) == 3 {
		t.Location = avatar.Vector{X: c.SpawnLocation[0], Y: c.SpawnLocation[1], Z: c.SpawnLocation[2]}
	}
	t.Rotation.Yaw = c.SpawnYaw
	return t
}

// PubSubEnabled reports whether any Pub/Sub wiring is configured.
func (c *Config) PubSubEnabled() bool {
	return c.Subscription != "" || c.ResultTopic != ""
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"projectID":            c.GoogleProjectID,
		"redirectSubscription": c.Subscription,
		"resultTopic":          c.ResultTopic,
		"loginURL":             c.LoginURL(),
		"assetBaseURL":         c.AssetBaseURL,
		"meshScanLimit":        c.MeshScanLimit,
		"metricsPort":          c.MetricsPort,
		"logLevel":             c.LogLevel,
		"credentialsProvided":  c.CredentialsFile != "",
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// projectIDFromCredentials reads project_id from a service account key. Unparseable files
// yield an empty id.
func projectIDFromCredentials(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	var x struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &x); err != nil {
		log.Warn().Err(err).Str("credsFile", path).Msg("credentials file is not valid JSON")
	}
	return x.ProjectID, nil
}

func getGoogleProjectID(credsFile string, explicit string) string {
	// 1) Prefer GOOGLE_APPLICATION_CREDENTIALS if set
	if p := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); p != "" {
		log.Info().Str("credsFile", p).Msg("GOOGLE_APPLICATION_CREDENTIALS is set; extracting project_id from credentials file")
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			return strings.TrimSpace(pid)
		}
		log.Warn().Str("credsFile", p).Msg("project_id not found in credentials file or unreadable")
	}

	// 2) Explicit override
	if explicit := strings.TrimSpace(explicit); explicit != "" {
		log.Info().Str("projectID", explicit).Msg("using AVATAR_PUBSUB_PROJECT_ID for Google project")
		return explicit
	}

	// 3) External override
	if v := strings.TrimSpace(os.Getenv("GOOGLE_PROJECT_ID")); v != "" {
		log.Info().Str("projectID", v).Msg("using GOOGLE_PROJECT_ID from environment")
		return v
	}

	// 4) Common Google envs
	if v := firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GCLOUD_PROJECT"), os.Getenv("GCP_PROJECT")); strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		log.Info().Str("projectID", v).Msg("using Google project from common environment variables")
		return v
	}

	// 5) Fallback to provided credentials file path (AVATAR_GSA_CREDENTIALS)
	if p := strings.TrimSpace(credsFile); p != "" {
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			log.Info().Str("credsFile", p).Msg("using project_id from provided credentials file")
			return strings.TrimSpace(pid)
		}
	}
	return ""
}
