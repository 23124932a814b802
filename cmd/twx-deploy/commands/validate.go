package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/twx-tools/twx-deploy/internal/config"
	"github.com/twx-tools/twx-deploy/internal/credentials"
	"github.com/twx-tools/twx-deploy/internal/deploy"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// NewValidateCommand creates the validate command: the full auth lifecycle
// followed by project validation only.
func NewValidateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <environment>",
		Short: "Validate the project against a named environment without deploying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := cfg.Load(); err != nil {
				return err
			}

			deployer := deploy.New(cfg, credentials.NewFromEnv(cfg), sdfcli.New(cfg.Logger))
			return deployer.Deploy(ctx, args[0], deploy.Options{ValidateOnly: true})
		},
	}

	return cmd
}
