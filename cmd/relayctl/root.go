package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/relaydial/relaydial/internal/config"
	"github.com/relaydial/relaydial/internal/platform"
)

type commandContext struct {
	configFlag string

	cfg    *config.Config
	client *platform.Client
}

func (c *commandContext) ensure() error {
	if c.client != nil {
		return nil
	}
	_ = godotenv.Load()

	cfg, err := config.Load(c.configFlag)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []platform.ClientOption
	if cfg.Platform.BaseURL != "" {
		opts = append(opts, platform.WithBaseURL(cfg.Platform.BaseURL))
	}
	if cfg.Platform.FromNumber != "" {
		opts = append(opts, platform.WithFromNumber(cfg.Platform.FromNumber))
	}

	c.cfg = cfg
	c.client = platform.NewClient(cfg.Platform.APIKey, opts...)
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "relayctl",
		Short:         "Operator CLI for the relaydial voice-agent dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "config.yaml", "Configuration file path")

	rootCmd.AddCommand(newAgentsCommand(ctx))
	rootCmd.AddCommand(newCallsCommand(ctx))
	rootCmd.AddCommand(newVoicesCommand(ctx))

	return rootCmd
}
