package provisioner

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"avatar-provisioner/auth"
	"avatar-provisioner/avatar"
	"avatar-provisioner/fetch"
	"avatar-provisioner/glb"
	"avatar-provisioner/queues"
	"avatar-provisioner/session"

	"github.com/oklog/ulid/v2"
)

// ErrNoResolver marks a token selection that arrived without a token resolver configured.
var ErrNoResolver = errors.New("provisioner: no token resolver configured")

type Stage string

const (
	StageAuth     Stage = "auth"
	StageResolve  Stage = "resolve"
	StageFetch    Stage = "fetch"
	StageParse    Stage = "parse"
	StageExtract  Stage = "extract"
	StageAssemble Stage = "assemble"
)

type Outcome string

const (
	OutcomeProvisioned Outcome = "Provisioned"
	OutcomeFailed      Outcome = "Failed"
	OutcomeNoSelection Outcome = "NoSelection"
)

// Request is one provisioning attempt, built from an auth completion.
type Request struct {
	AttemptID  ulid.ULID
	Success    bool
	Wallet     string
	Selection  session.AvatarSelection
	ReceivedAt time.Time
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

func newAttemptID(at time.Time) ulid.ULID {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), idEntropy)
}

// NewRequest assigns a fresh attempt id to a completed login.
func NewRequest(c auth.Completed) *Request {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	return &Request{
		AttemptID:  newAttemptID(at),
		Success:    c.Success,
		Wallet:     c.Wallet,
		Selection:  c.Selection,
		ReceivedAt: at,
	}
}

// Event is the single terminal signal raised for every Request.
// Stage and Err are set for Failed; Entity only for Provisioned.
type Event struct {
	AttemptID          ulid.ULID
	Outcome            Outcome
	Wallet             string
	Entity             *avatar.Entity
	Stage              Stage
	Err                error
	ModelURL           string
	MeshCount          int
	UsedStaticFallback bool
	Duration           time.Duration
}

// Envelope renders the event for the result topic.
func (e Event) Envelope() *queues.ProvisioningResult {
	res := &queues.ProvisioningResult{
		EnvelopeVersion:    queues.EnvelopeVersion,
		Type:               queues.ResultType,
		AttemptID:          e.AttemptID.String(),
		Wallet:             e.Wallet,
		Outcome:            queues.Outcome(e.Outcome),
		UsedStaticFallback: e.UsedStaticFallback,
	}
	if e.Stage != "" {
		s := string(e.Stage)
		res.Stage = &s
	}
	if e.Err != nil {
		msg := e.Err.Error()
		res.ErrorMessage = &msg
	}
	if e.ModelURL != "" {
		u := e.ModelURL
		res.ModelURL = &u
	}
	if e.Outcome == OutcomeProvisioned {
		n := e.MeshCount
		res.MeshCount = &n
	}
	return res
}

// Fetcher downloads a container. The channel yields one result.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (<-chan fetch.Result, error)
}

// Scene is a decoded container. It must be closed once meshes are extracted.
type Scene interface {
	avatar.MeshSource
	Close()
}

type ParseFunc func(data []byte) (Scene, error)

// ParseGLB is the default ParseFunc.
func ParseGLB(data []byte) (Scene, error) {
	s, err := glb.Parse(data)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Assembler interface {
	Assemble(ctx context.Context, meshes []*glb.Mesh, at avatar.Transform) (*avatar.Entity, error)
}

// TokenResolver maps an owned token to a model reference. An empty reference means the
// token has no model.
type TokenResolver interface {
	ResolveToken(ctx context.Context, wallet, tokenID string) (string, error)
}

type TokenResolverFunc func(ctx context.Context, wallet, tokenID string) (string, error)

func (f TokenResolverFunc) ResolveToken(ctx context.Context, wallet, tokenID string) (string, error) {
	return f(ctx, wallet, tokenID)
}
