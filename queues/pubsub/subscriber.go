package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"avatar-provisioner/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// Subscriber receives provider redirects captured by an external login surface.
type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	client           *gpubsub.Client
	sub              *gpubsub.Subscription
}

func NewSubscriber(projectID, subscriptionName, credsFile string) *Subscriber {
	return &Subscriber{projectID: projectID, subscriptionName: subscriptionName, credsFile: credsFile}
}

func (s *Subscriber) Start(ctx context.Context, handler func(context.Context, *queues.RedirectMessage) error) error {
	if s.sub == nil {
		client, err := newClient(ctx, s.projectID, s.credsFile)
		if err != nil {
			log.Error().Err(err).Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("failed to create pubsub client for subscriber")
			return err
		}
		s.client = client
		s.sub = client.Subscription(s.subscriptionName)
		log.Info().Str("subscription", s.subscriptionName).Msg("pubsub subscriber initialized")
	}

	// Redirects for one target entity must not race; the controller queues the rest.
	s.sub.ReceiveSettings.NumGoroutines = 1

	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		log.Debug().Str("messageID", m.ID).Int("size", len(m.Data)).Msg("received pubsub message")
		recvAt := time.Now()
		var msg queues.RedirectMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Msg("failed to unmarshal redirect message")
			m.Nack()
			return
		}
		if msg.RedirectURL == "" {
			// Poison message: nothing to retry.
			log.Error().Str("messageID", m.ID).Msg("redirect message without redirectUrl")
			m.Ack()
			return
		}

		log.Info().Str("messageID", m.ID).Str("source", msg.Source).Msg("handling redirect message")
		if err := handler(ctx, &msg); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Msg("handler failed; will retry")
			m.Nack()
			return
		}
		log.Debug().Str("messageID", m.ID).Dur("latency", time.Since(recvAt)).Msg("handler succeeded; acking message")
		m.Ack()
	})
}

func (s *Subscriber) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
