// Package provisioner sequences a completed login into an assembled avatar.
package provisioner

import (
	"context"
	"sync"
	"time"

	"avatar-provisioner/auth"
	"avatar-provisioner/avatar"
	"avatar-provisioner/fetch"
	"avatar-provisioner/metrics"
	"avatar-provisioner/queues"
	"avatar-provisioner/session"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "avatar-provisioner/provisioner"

// Controller runs one provisioning attempt at a time against a single target entity.
// Requests arriving while an attempt runs wait in a FIFO and are drained by the caller
// that owns the in-flight attempt.
type Controller struct {
	fetcher   Fetcher
	assembler Assembler
	parse     ParseFunc
	extractor *avatar.Extractor
	resolver  TokenResolver
	publisher queues.Publisher
	assetBase string
	gateway   string
	spawnAt   avatar.Transform
	listeners []func(Event)
	tracer    trace.Tracer

	mu      sync.Mutex
	running bool
	pending *PendingQueue
}

type Option func(*Controller)

func WithParser(p ParseFunc) Option { return func(c *Controller) { c.parse = p } }

func WithExtractor(x *avatar.Extractor) Option { return func(c *Controller) { c.extractor = x } }

func WithTokenResolver(r TokenResolver) Option { return func(c *Controller) { c.resolver = r } }

// WithPublisher publishes every terminal event as a ProvisioningResult.
func WithPublisher(p queues.Publisher) Option { return func(c *Controller) { c.publisher = p } }

func WithAssetBaseURL(base string) Option { return func(c *Controller) { c.assetBase = base } }

func WithIPFSGateway(gw string) Option { return func(c *Controller) { c.gateway = gw } }

func WithSpawnTransform(t avatar.Transform) Option { return func(c *Controller) { c.spawnAt = t } }

// WithListener registers a terminal event listener. Listeners run synchronously in
// registration order.
func WithListener(fn func(Event)) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, fn) }
}

func WithTracer(t trace.Tracer) Option { return func(c *Controller) { c.tracer = t } }

func NewController(f Fetcher, a Assembler, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   f,
		assembler: a,
		parse:     ParseGLB,
		extractor: avatar.NewExtractor(avatar.DefaultScanLimit),
		assetBase: DefaultAssetBaseURL,
		gateway:   DefaultIPFSGateway,
		spawnAt:   avatar.Transform{Location: avatar.Vector{Z: 100}},
		pending:   NewPendingQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Attach subscribes the controller to a login flow. Each completion becomes one Request.
func (c *Controller) Attach(ctx context.Context, flow *auth.Flow) {
	flow.OnComplete(func(done auth.Completed) {
		if err := c.HandleAuth(ctx, done); err != nil {
			log.Error().Err(err).Str("wallet", done.Wallet).Msg("controller: provisioning after login failed")
		}
	})
}

func (c *Controller) HandleAuth(ctx context.Context, done auth.Completed) error {
	return c.Handle(ctx, NewRequest(done))
}

// Pending returns the ids of queued attempts, oldest first.
func (c *Controller) Pending() []ulid.ULID { return c.pending.Snapshot() }

// Handle runs req, or queues it behind the attempt in flight. The returned error only
// reports failure to publish req's own result; pipeline failures are events.
func (c *Controller) Handle(ctx context.Context, req *Request) error {
	c.mu.Lock()
	if c.running {
		pos := c.pending.Enqueue(req)
		c.mu.Unlock()
		metrics.QueueDepth.Set(float64(c.pending.Len()))
		log.Info().Str("attemptId", req.AttemptID.String()).Int("position", pos).Msg("controller: attempt in flight; request queued")
		return nil
	}
	c.running = true
	c.mu.Unlock()

	err := c.run(ctx, req)
	for {
		c.mu.Lock()
		next := c.pending.Dequeue()
		if next == nil {
			c.running = false
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()
		metrics.QueueDepth.Set(float64(c.pending.Len()))
		log.Debug().Str("attemptId", next.Request.AttemptID.String()).Dur("waited", time.Since(next.Timestamp)).Msg("controller: draining queued request")
		if qerr := c.run(ctx, next.Request); qerr != nil {
			log.Error().Err(qerr).Str("attemptId", next.Request.AttemptID.String()).Msg("controller: queued attempt result not published")
		}
	}
	return err
}

func (c *Controller) run(ctx context.Context, req *Request) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "provisioner.attempt", trace.WithAttributes(
		attribute.String("attempt.id", req.AttemptID.String()),
		attribute.String("selection.kind", string(req.Selection.Kind())),
	))
	defer span.End()

	log.Info().Str("attemptId", req.AttemptID.String()).Str("wallet", req.Wallet).Str("selection", string(req.Selection.Kind())).Msg("controller: handling provisioning request")

	ev := c.provision(ctx, req, span)
	ev.AttemptID = req.AttemptID
	ev.Wallet = req.Wallet
	ev.Duration = time.Since(start)

	metrics.AttemptDuration.Observe(ev.Duration.Seconds())
	metrics.AttemptsTotal.WithLabelValues(string(ev.Outcome)).Inc()
	span.SetAttributes(attribute.String("attempt.outcome", string(ev.Outcome)))
	switch ev.Outcome {
	case OutcomeFailed:
		metrics.FailuresTotal.WithLabelValues(string(ev.Stage)).Inc()
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, string(ev.Stage))
		log.Error().Err(ev.Err).Str("attemptId", req.AttemptID.String()).Str("stage", string(ev.Stage)).Dur("duration", ev.Duration).Msg("controller: provisioning failed")
	case OutcomeNoSelection:
		log.Warn().Str("attemptId", req.AttemptID.String()).Str("wallet", req.Wallet).Msg("controller: no character to provision")
	default:
		span.SetStatus(codes.Ok, "")
		log.Info().Str("attemptId", req.AttemptID.String()).Str("entityId", ev.Entity.ID.String()).Int("meshes", ev.MeshCount).Bool("staticFallback", ev.UsedStaticFallback).Dur("duration", ev.Duration).Msg("controller: avatar provisioned")
	}

	for _, fn := range c.listeners {
		fn(ev)
	}
	return c.publish(ctx, ev)
}

func (c *Controller) publish(ctx context.Context, ev Event) error {
	if c.publisher == nil {
		return nil
	}
	if err := c.publisher.PublishResult(ctx, ev.Envelope()); err != nil {
		log.Error().Err(err).Str("attemptId", ev.AttemptID.String()).Msg("controller: failed to publish result")
		return oops.With("attemptId", ev.AttemptID.String()).Wrap(err)
	}
	return nil
}

func failed(stage Stage, err error) Event {
	return Event{Outcome: OutcomeFailed, Stage: stage, Err: err}
}

// provision walks the pipeline and stops at the first failing stage.
func (c *Controller) provision(ctx context.Context, req *Request, span trace.Span) Event {
	span.AddEvent(string(StageAuth))
	if !req.Success {
		return failed(StageAuth, oops.With("attemptId", req.AttemptID.String()).Wrap(session.ErrRedirectMalformed))
	}

	span.AddEvent(string(StageResolve))
	url, err := c.resolve(ctx, req)
	if err != nil {
		return failed(StageResolve, err)
	}
	if url == "" {
		return Event{Outcome: OutcomeNoSelection}
	}
	span.SetAttributes(attribute.String("model.url", url))

	span.AddEvent(string(StageFetch))
	ch, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return Event{Outcome: OutcomeFailed, Stage: StageFetch, Err: err, ModelURL: url}
	}
	var res fetch.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Event{Outcome: OutcomeFailed, Stage: StageFetch, Err: oops.With("url", url).Wrap(ctx.Err()), ModelURL: url}
	}
	if !res.OK() {
		return Event{Outcome: OutcomeFailed, Stage: StageFetch, Err: res.Err, ModelURL: url}
	}

	span.AddEvent(string(StageParse))
	scene, err := c.parse(res.Body)
	if err != nil {
		return Event{Outcome: OutcomeFailed, Stage: StageParse, Err: oops.With("url", url).Wrap(err), ModelURL: url}
	}
	defer scene.Close()

	span.AddEvent(string(StageExtract))
	ex := c.extractor.ExtractAll(scene)

	span.AddEvent(string(StageAssemble))
	meshes := ex.Meshes()
	entity, err := c.assembler.Assemble(ctx, meshes, c.spawnAt)
	if err != nil {
		ex.Release()
		return Event{Outcome: OutcomeFailed, Stage: StageAssemble, Err: err, ModelURL: url, UsedStaticFallback: ex.UsedStaticFallback}
	}
	return Event{
		Outcome:            OutcomeProvisioned,
		Entity:             entity,
		ModelURL:           url,
		MeshCount:          entity.MeshCount(),
		UsedStaticFallback: ex.UsedStaticFallback,
	}
}

// resolve returns the URL to fetch, or "" when the selection names no model.
func (c *Controller) resolve(ctx context.Context, req *Request) (string, error) {
	sel := req.Selection
	var ref string
	switch sel.Kind() {
	case session.SelectionDirect:
		ref = sel.ModelURL
	case session.SelectionToken:
		if c.resolver == nil {
			log.Warn().Str("tokenId", sel.TokenID).Err(ErrNoResolver).Msg("controller: token selection cannot be resolved")
			return "", nil
		}
		r, err := c.resolver.ResolveToken(ctx, req.Wallet, sel.TokenID)
		if err != nil {
			return "", oops.With("tokenId", sel.TokenID).Wrap(err)
		}
		ref = r
	}
	return ResolveModelURL(c.assetBase, c.gateway, ref), nil
}
