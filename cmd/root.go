package main

import (
	"net/http"

	"avatar-provisioner/auth"
	"avatar-provisioner/avatar"
	"avatar-provisioner/config"
	"avatar-provisioner/fetch"
	"avatar-provisioner/provisioner"
	"avatar-provisioner/queues"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the avatar provisioner CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar-provisioner",
		Short: "Log a player in and provision their avatar",
		Long: `avatar-provisioner runs the redirect login handshake with the identity provider,
downloads the selected GLB avatar and assembles it onto a player entity.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProvisionCmd())
	cmd.AddCommand(newLoginURLCmd())

	return cmd
}

// loadConfig reads the environment and applies the configured log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		setLogger("")
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	setLogger(cfg.LogLevel)
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")
	return cfg, nil
}

// pipeline is the provisioning stack shared by the commands.
type pipeline struct {
	world      *avatar.World
	assembler  *avatar.Assembler
	controller *provisioner.Controller
}

func newPipeline(cfg *config.Config, client *http.Client, pub queues.Publisher, opts ...provisioner.Option) *pipeline {
	world := avatar.NewWorld(0)
	asm := avatar.NewAssembler(world)
	base := []provisioner.Option{
		provisioner.WithExtractor(avatar.NewExtractor(cfg.MeshScanLimit)),
		provisioner.WithAssetBaseURL(cfg.AssetBaseURL),
		provisioner.WithIPFSGateway(cfg.IPFSGateway),
		provisioner.WithSpawnTransform(cfg.SpawnTransform()),
	}
	if pub != nil {
		base = append(base, provisioner.WithPublisher(pub))
	}
	var doer fetch.Doer
	if client != nil {
		doer = client
	}
	ctrl := provisioner.NewController(fetch.New(doer), asm, append(base, opts...)...)
	return &pipeline{world: world, assembler: asm, controller: ctrl}
}

func newLoginURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-url",
		Short: "Print the identity provider login URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cmd.Println(cfg.LoginURL())
			return nil
		},
	}
}

// newFlow builds the auth flow for a surface and hands its completions to the controller.
func (p *pipeline) newFlow(cmd *cobra.Command, cfg *config.Config, surface auth.LoginSurface) *auth.Flow {
	flow := auth.NewFlow(cfg.LoginURL(), surface)
	p.controller.Attach(cmd.Context(), flow)
	return flow
}
