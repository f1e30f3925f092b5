package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackSurface_SingleShot(t *testing.T) {
	surface := NewLoopbackSurface("miladycity://auth")
	mux := http.NewServeMux()
	surface.Register(mux, "/auth/callback")

	var redirects []string
	require.NoError(t, surface.Present(loginURL, func(u string) { redirects = append(redirects, u) }))
	require.True(t, surface.Pending())

	type want struct {
		code int
		body string
	}
	tests := []struct {
		name string
		path string
		want want
	}{
		{name: "first callback delivered", path: "/auth/callback?wallet=0xABC&tokenId=77", want: want{http.StatusOK, "login received; you can close this window"}},
		{name: "second callback gone", path: "/auth/callback?wallet=0xDEF", want: want{http.StatusGone, "no login pending"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want.code {
				t.Errorf("status code mismatch\n got=%#v\nwant=%#v", rec.Code, tt.want.code)
			}
			if body := rec.Body.String(); body != tt.want.body {
				t.Errorf("body mismatch\n got=%#v\nwant=%#v", body, tt.want.body)
			}
		})
	}
	assert.Equal(t, []string{"miladycity://auth?wallet=0xABC&tokenId=77"}, redirects)
	assert.False(t, surface.Pending())
}

func TestLoopbackSurface_DrivesFlow(t *testing.T) {
	surface := NewLoopbackSurface("miladycity://auth")
	f := NewFlow(loginURL, surface)
	var got Completed
	f.OnComplete(func(c Completed) { got = c })

	f.Login()
	rec := httptest.NewRecorder()
	surface.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?wallet=0xABC&playerId=2&playerName=Mascot%20V2&model=%2Fmodels%2Fmascot-v2.glb", nil))

	assert.True(t, got.Success)
	assert.Equal(t, "/models/mascot-v2.glb", got.Selection.ModelURL)
	assert.Equal(t, "Mascot V2", got.Selection.DisplayName)
	assert.Equal(t, StateCompleted, f.State())
}

func TestFuncSurface(t *testing.T) {
	var seen string
	s := FuncSurface(func(u string, cb func(string)) error {
		seen = u
		cb("miladycity://auth?wallet=0x9")
		return nil
	})
	f := NewFlow(loginURL, s)
	f.Login()
	assert.Equal(t, loginURL, seen)
	assert.Equal(t, "0x9", f.Wallet())
}
