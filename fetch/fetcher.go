// Package fetch downloads avatar containers with one asynchronous GET per call.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"avatar-provisioner/metrics"

	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

var (
	ErrBusy       = errors.New("fetch: a request is already in flight")
	ErrTransport  = errors.New("fetch: transport failure")
	ErrHTTPStatus = errors.New("fetch: unexpected http status")
)

// StatusError reports a response other than 200 OK.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: http status %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool { return target == ErrHTTPStatus }

// Result is the single outcome of a Fetch. Body is set only when Err is nil.
type Result struct {
	Body       []byte
	StatusCode int
	Err        error
}

func (r Result) OK() bool { return r.Err == nil }

// Doer is the HTTP collaborator; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher allows one download in flight at a time.
type Fetcher struct {
	client   Doer
	inFlight atomic.Bool
}

func New(client Doer) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Busy reports whether a download is in flight.
func (f *Fetcher) Busy() bool { return f.inFlight.Load() }

// Fetch starts a GET for url. The returned channel yields exactly one Result and is then
// closed. Calling Fetch again before that Result is delivered fails with ErrBusy.
// The request is bounded only by ctx and the client's own defaults.
func (f *Fetcher) Fetch(ctx context.Context, url string) (<-chan Result, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		metrics.FetchRequestsTotal.WithLabelValues("busy").Inc()
		return nil, oops.With("url", url).Wrap(ErrBusy)
	}
	log.Info().Str("url", url).Msg("fetch: downloading container")

	out := make(chan Result, 1)
	go func() {
		res := f.do(ctx, url)
		f.inFlight.Store(false)
		out <- res
		close(out)
	}()
	return out, nil
}

func (f *Fetcher) do(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return transportFailure(url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return transportFailure(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FetchRequestsTotal.WithLabelValues("http_status").Inc()
		log.Error().Str("url", url).Int("status", resp.StatusCode).Msg("fetch: http error")
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{StatusCode: resp.StatusCode, Err: oops.With("url", url).Wrap(&StatusError{StatusCode: resp.StatusCode})}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(url, err)
	}
	metrics.FetchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.FetchBytes.Observe(float64(len(body)))
	log.Info().Str("url", url).Int("bytes", len(body)).Msg("fetch: downloaded container")
	return Result{Body: body, StatusCode: resp.StatusCode}
}

func transportFailure(url string, cause error) Result {
	metrics.FetchRequestsTotal.WithLabelValues("transport").Inc()
	log.Error().Err(cause).Str("url", url).Msg("fetch: transport failure")
	return Result{Err: oops.With("url", url).Wrap(fmt.Errorf("%w: %w", ErrTransport, cause))}
}
