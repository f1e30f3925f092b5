package pubsub

import (
	"context"
	"encoding/json"

	"avatar-provisioner/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// Publisher sends terminal provisioning results to the result topic.
type Publisher struct {
	projectID   string
	resultTopic string
	credsFile   string
	client      *gpubsub.Client
	topic       *gpubsub.Topic
}

func NewPublisher(projectID, resultTopic, credsFile string) *Publisher {
	return &Publisher{projectID: projectID, resultTopic: resultTopic, credsFile: credsFile}
}

func (p *Publisher) PublishResult(ctx context.Context, res *queues.ProvisioningResult) error {
	if p.topic == nil {
		client, err := newClient(ctx, p.projectID, p.credsFile)
		if err != nil {
			log.Error().Err(err).Str("projectID", p.projectID).Str("topic", p.resultTopic).Msg("failed to create pubsub client for publisher")
			return err
		}
		p.client = client
		p.topic = client.Topic(p.resultTopic)
		log.Info().Str("topic", p.resultTopic).Msg("pubsub publisher initialized")
	}
	b, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Interface("result", res).Msg("failed to marshal provisioning result")
		return err
	}
	// Publish and wait for server ack
	r := p.topic.Publish(ctx, &gpubsub.Message{
		Data:       b,
		Attributes: map[string]string{"outcome": string(res.Outcome)},
	})
	id, err := r.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("attemptId", res.AttemptID).Msg("failed to publish provisioning result")
		return err
	}
	log.Debug().Str("messageID", id).Str("attemptId", res.AttemptID).Str("outcome", string(res.Outcome)).Msg("published provisioning result")
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *Publisher) Close() error {
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
