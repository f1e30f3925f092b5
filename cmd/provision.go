package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"avatar-provisioner/config"
	"avatar-provisioner/provisioner"
	"avatar-provisioner/queues"
	qpubsub "avatar-provisioner/queues/pubsub"

	"github.com/spf13/cobra"
)

// provisionConfig holds flags for the provision command.
type provisionConfig struct {
	redirect   string
	jsonOutput bool
}

func newProvisionCmd() *cobra.Command {
	pc := &provisionConfig{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision an avatar from a captured provider redirect",
		Long: `Run one provisioning attempt from a provider redirect URL, as if the login
surface had just landed on it, and print the terminal event.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runProvision(cmd, cfg, pc)
		},
	}

	cmd.Flags().StringVar(&pc.redirect, "redirect", "", "provider redirect URL (required)")
	cmd.Flags().BoolVar(&pc.jsonOutput, "json", false, "print the result envelope as JSON")
	_ = cmd.MarkFlagRequired("redirect")

	return cmd
}

func runProvision(cmd *cobra.Command, cfg *config.Config, pc *provisionConfig) error {
	var pub queues.Publisher
	if cfg.ResultTopic != "" {
		publisher := qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.ResultTopic, cfg.CredentialsFile)
		defer publisher.Close()
		pub = publisher
	}

	var events []provisioner.Event
	p := newPipeline(cfg, nil, pub, provisioner.WithListener(func(ev provisioner.Event) {
		events = append(events, ev)
	}))
	defer p.assembler.Teardown()

	flow := p.newFlow(cmd, cfg, nil)
	flow.HandleRedirect(pc.redirect)

	if len(events) != 1 {
		return fmt.Errorf("expected one provisioning event, got %d", len(events))
	}
	ev := events[0]

	if pc.jsonOutput {
		b, err := json.MarshalIndent(ev.Envelope(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		cmd.Println(string(b))
	} else {
		cmd.Println(formatEvent(ev))
	}

	if ev.Outcome == provisioner.OutcomeFailed {
		return errors.New("provisioning failed at stage " + string(ev.Stage))
	}
	return nil
}

func formatEvent(ev provisioner.Event) string {
	switch ev.Outcome {
	case provisioner.OutcomeProvisioned:
		return fmt.Sprintf("provisioned %s: entity %s with %d meshes (static fallback: %t)",
			ev.ModelURL, ev.Entity.ID, ev.MeshCount, ev.UsedStaticFallback)
	case provisioner.OutcomeFailed:
		return fmt.Sprintf("failed at %s: %v", ev.Stage, ev.Err)
	default:
		return "no character selected for wallet " + ev.Wallet
	}
}
