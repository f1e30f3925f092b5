// Package auth drives the redirect-based login handshake with the identity provider.
package auth

import (
	"sync"
	"time"

	"avatar-provisioner/metrics"
	"avatar-provisioner/session"

	"github.com/rs/zerolog/log"
)

// State is where the login handshake currently is.
type State string

const (
	StateIdle             State = "Idle"
	StateAwaitingRedirect State = "AwaitingRedirect"
	StateCompleted        State = "Completed"
)

// Completed is raised once per handled redirect.
type Completed struct {
	Success   bool
	Wallet    string
	Selection session.AvatarSelection
	At        time.Time
}

// LoginSurface presents the provider login page and reports the redirect it lands on.
// onRedirect is honoured at most once per Present call.
type LoginSurface interface {
	Present(loginURL string, onRedirect func(redirectURL string)) error
}

// Flow owns the current session state. It is safe for concurrent use; listeners are
// invoked outside the lock, in registration order.
type Flow struct {
	mu        sync.RWMutex
	loginURL  string
	surface   LoginSurface
	active    LoginSurface
	state     State
	wallet    string
	selection session.AvatarSelection
	listeners []func(Completed)
	now       func() time.Time
}

// NewFlow returns an idle flow that presents loginURL on surface.
func NewFlow(loginURL string, surface LoginSurface) *Flow {
	return &Flow{loginURL: loginURL, surface: surface, state: StateIdle, now: time.Now}
}

// OnComplete registers a completion listener.
func (f *Flow) OnComplete(fn func(Completed)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Login presents the login surface. Failures are logged only: no completion event follows.
func (f *Flow) Login() {
	f.mu.Lock()
	surface := f.surface
	if surface == nil {
		f.mu.Unlock()
		log.Error().Msg("auth: no login surface configured")
		return
	}
	f.state = StateAwaitingRedirect
	f.active = surface
	loginURL := f.loginURL
	f.mu.Unlock()

	log.Info().Str("loginURL", loginURL).Msg("auth: presenting login surface")
	var once sync.Once
	err := surface.Present(loginURL, func(redirectURL string) {
		once.Do(func() {
			log.Debug().Str("redirect", redirectURL).Msg("auth: login surface redirected")
			f.HandleRedirect(redirectURL)
		})
	})
	if err != nil {
		log.Error().Err(err).Msg("auth: failed to present login surface")
		f.mu.Lock()
		if f.state == StateAwaitingRedirect {
			f.state = StateIdle
		}
		f.active = nil
		f.mu.Unlock()
	}
}

// HandleRedirect extracts the session from redirectURL, stores it and raises Completed.
// It is accepted from any state.
func (f *Flow) HandleRedirect(redirectURL string) session.Result {
	res := session.Extract(redirectURL)

	f.mu.Lock()
	f.active = nil
	f.state = StateCompleted
	f.wallet = res.Wallet
	f.selection = res.Selection
	ev := Completed{Success: res.Success, Wallet: res.Wallet, Selection: res.Selection, At: f.now()}
	listeners := append([]func(Completed){}, f.listeners...)
	f.mu.Unlock()

	result := "failure"
	if res.Success {
		result = "success"
	}
	metrics.AuthCompletionsTotal.WithLabelValues(result).Inc()
	log.Info().Bool("success", res.Success).Str("wallet", res.Wallet).Str("selection", string(res.Selection.Kind())).Int("listeners", len(listeners)).Msg("auth: login completed")

	for _, fn := range listeners {
		fn(ev)
	}
	return res
}

// Logout forgets the session. No provider call is made.
func (f *Flow) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallet = ""
	f.selection = session.AvatarSelection{}
	f.active = nil
	f.state = StateIdle
	log.Info().Msg("auth: logged out")
}

// State returns the current handshake state.
func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Flow) IsLoggedIn() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.wallet != ""
}

func (f *Flow) Wallet() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.wallet
}

func (f *Flow) Selection() session.AvatarSelection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selection
}

// Presenting reports whether a login surface is currently awaiting its redirect.
func (f *Flow) Presenting() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active != nil
}
