package auth

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// FuncSurface adapts a function to LoginSurface.
type FuncSurface func(loginURL string, onRedirect func(redirectURL string)) error

func (f FuncSurface) Present(loginURL string, onRedirect func(redirectURL string)) error {
	return f(loginURL, onRedirect)
}

// LoopbackSurface is a headless login surface: the login URL is logged for an operator to
// open, and the provider redirect is received on an HTTP callback route. The first
// callback is forwarded as <callbackURI>?<query>; later ones get 410 Gone.
type LoopbackSurface struct {
	callbackURI string

	mu         sync.Mutex
	onRedirect func(string)
}

func NewLoopbackSurface(callbackURI string) *LoopbackSurface {
	return &LoopbackSurface{callbackURI: callbackURI}
}

func (s *LoopbackSurface) Present(loginURL string, onRedirect func(redirectURL string)) error {
	s.mu.Lock()
	s.onRedirect = onRedirect
	s.mu.Unlock()
	log.Info().Str("url", loginURL).Msg("auth: open the login URL in a browser to continue")
	return nil
}

// Pending reports whether a redirect is still expected.
func (s *LoopbackSurface) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onRedirect != nil
}

func (s *LoopbackSurface) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cb := s.onRedirect
	s.onRedirect = nil
	s.mu.Unlock()

	if cb == nil {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte("no login pending"))
		return
	}
	redirect := s.callbackURI
	if q := r.URL.RawQuery; q != "" {
		redirect += "?" + q
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login received; you can close this window"))
	_ = http.NewResponseController(w).Flush()
	cb(redirect)
}

func (s *LoopbackSurface) Register(mux *http.ServeMux, path string) {
	mux.Handle(path, s)
}
