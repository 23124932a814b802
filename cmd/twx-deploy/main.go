package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/twx-tools/twx-deploy/cmd/twx-deploy/commands"
	"github.com/twx-tools/twx-deploy/internal/config"
	"github.com/twx-tools/twx-deploy/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	code := 0
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	// Wipe memguard's session key before exiting; os.Exit skips defers.
	memguard.Purge()
	os.Exit(code)
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "twx-deploy",
		Short: "Deploy SuiteCloud projects from CI with safe credential lifecycle",
		Long: `twx-deploy registers, refreshes and validates machine-to-machine auth
identities before handing off to the suitecloud CLI, guaranteeing a
deployment never runs against credentials of uncertain freshness.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A local .env can carry TWX_* overrides; absence is fine.
			_ = godotenv.Load()

			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "twx.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewDeployCommand(cfg),
		commands.NewValidateCommand(cfg),
		commands.NewEnvironmentsCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
