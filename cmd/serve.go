package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"avatar-provisioner/auth"
	"avatar-provisioner/config"
	"avatar-provisioner/health"
	"avatar-provisioner/metrics"
	"avatar-provisioner/queues"
	qpubsub "avatar-provisioner/queues/pubsub"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the login callback, metrics and redirect intake until signalled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info().Msgf("Starting avatar-provisioner version: %s", version)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return runServe(cmd, cfg)
		},
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	if cfg.PubSubEnabled() && cfg.GoogleProjectID == "" {
		return errors.New("missing Google project id; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or AVATAR_PUBSUB_PROJECT_ID")
	}
	if cfg.PubSubEnabled() {
		if cfg.CredentialsFile != "" {
			log.Info().Str("credsFile", cfg.CredentialsFile).Msg("using explicit Google credentials file")
		} else {
			log.Info().Msg("using default Google credentials (ambient)")
		}
	}

	var publisher *qpubsub.Publisher
	var pub queues.Publisher
	if cfg.ResultTopic != "" {
		publisher = qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.ResultTopic, cfg.CredentialsFile)
		pub = publisher
	}
	p := newPipeline(cfg, nil, pub)

	surface := auth.NewLoopbackSurface(cfg.RedirectURI)
	flow := p.newFlow(cmd, cfg, surface)

	var serving atomic.Bool
	mux := http.NewServeMux()
	metrics.Register(mux)
	health.Register(mux, serving.Load)
	surface.Register(mux, cfg.CallbackPath)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("callback", cfg.CallbackPath).Msg("starting metrics/health/callback server")
		serving.Store(true)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serving.Store(false)
			srvErr <- err
		}
	}()

	flow.Login()

	if cfg.Subscription != "" {
		subscriber := qpubsub.NewSubscriber(cfg.GoogleProjectID, cfg.Subscription, cfg.CredentialsFile)
		defer subscriber.Close()
		go func() {
			log.Info().Str("subscription", cfg.Subscription).Msg("starting redirect subscriber loop")
			err := subscriber.Start(ctx, func(ctx context.Context, msg *queues.RedirectMessage) error {
				flow.HandleRedirect(msg.RedirectURL)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				srvErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-srvErr:
		log.Error().Err(runErr).Msg("server exited with fatal error; shutting down")
	}
	serving.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	p.assembler.Teardown()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("publisher close failed")
		}
	}
	log.Info().Msg("shutdown complete")
	return runErr
}
