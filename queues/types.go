package queues

import "context"

const (
	EnvelopeVersion = "1.0"
	ResultType      = "avatar-provisioning-result"
)

// RedirectMessage carries a provider redirect captured by an external login surface.
type RedirectMessage struct {
	RedirectURL string `json:"redirectUrl"`
	Source      string `json:"source,omitempty"`
}

type Outcome string

const (
	OutcomeProvisioned Outcome = "Provisioned"
	OutcomeFailed      Outcome = "Failed"
	OutcomeNoSelection Outcome = "NoSelection"
)

type ProvisioningResult struct {
	EnvelopeVersion    string  `json:"envelopeVersion"`
	Type               string  `json:"type"`
	AttemptID          string  `json:"attemptId"`
	Wallet             string  `json:"wallet,omitempty"`
	Outcome            Outcome `json:"outcome"`
	Stage              *string `json:"stage,omitempty"`
	ErrorMessage       *string `json:"errorMessage,omitempty"`
	ModelURL           *string `json:"modelUrl,omitempty"`
	MeshCount          *int    `json:"meshCount,omitempty"`
	UsedStaticFallback bool    `json:"usedStaticFallback"`
}

type Subscriber interface {
	Start(ctx context.Context, handler func(context.Context, *RedirectMessage) error) error
}

type Publisher interface {
	PublishResult(ctx context.Context, res *ProvisioningResult) error
}
