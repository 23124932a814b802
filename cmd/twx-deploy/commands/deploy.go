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

// NewDeployCommand creates the deploy command.
func NewDeployCommand(cfg *config.Config) *cobra.Command {
	var (
		withBuild bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "deploy <environment>",
		Short: "Deploy the project to a named environment",
		Long: `Deploy the SDF project to the named environment. The auth identity is
registered (or safely refreshed when stale) before validation and
deployment run; the project config files are restored afterwards on
every exit path.

Examples:
  twx-deploy deploy sb1
  twx-deploy deploy prod --build
  twx-deploy deploy sb1 --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A signal cancels the in-flight external call through the
			// context; the deferred config and store restores still run
			// before the process exits.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := cfg.Load(); err != nil {
				return err
			}

			deployer := deploy.New(cfg, credentials.NewFromEnv(cfg), sdfcli.New(cfg.Logger))
			return deployer.Deploy(ctx, args[0], deploy.Options{
				Build:  withBuild,
				DryRun: dryRun,
			})
		},
	}

	cmd.Flags().BoolVar(&withBuild, "build", false, "Run the configured build command before deploying")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the deployment without applying it")

	return cmd
}
