package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/twx-tools/twx-deploy/internal/config"
	"github.com/twx-tools/twx-deploy/internal/credentials"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// NewDoctorCommand creates the doctor command, which diagnoses the local
// setup without touching any remote account.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and the suitecloud CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			passed, failed := 0, 0

			check := func(name string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
					return
				}
				passed++
				fmt.Fprintf(out, "  ✓ %s\n", name)
			}

			fmt.Fprintln(out, "Configuration:")
			loadErr := cfg.Load()
			check("load "+cfg.Path, loadErr)
			if loadErr != nil {
				fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", passed, passed+failed)
				return loadErr
			}

			fmt.Fprintln(out, "External tooling:")
			_, lookErr := exec.LookPath(sdfcli.DefaultBinary)
			check(sdfcli.DefaultBinary+" on PATH", lookErr)

			fmt.Fprintln(out, "Environments:")
			resolver := credentials.NewFromEnv(cfg)
			for _, name := range cfg.EnvironmentNames() {
				resolved, err := resolver.Resolve(name)
				check("credentials for "+name, err)
				if resolved != nil && resolved.Passkey != nil {
					resolved.Passkey.Destroy()
				}
			}

			fmt.Fprintln(out, "Credential store:")
			storePath := cfg.CredentialStorePath()
			if _, err := os.Stat(storePath); err == nil {
				passed++
				fmt.Fprintf(out, "  ✓ store present at %s\n", storePath)
			} else {
				// Not an error: the first registration creates it.
				fmt.Fprintf(out, "  - no store at %s (created on first registration)\n", storePath)
			}

			fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", passed, passed+failed)

			if failed > 0 {
				return twxerrors.UserError{
					Message:    fmt.Sprintf("%d check(s) failed", failed),
					Suggestion: "Fix the items marked ✗ above and run 'twx-deploy doctor' again",
				}
			}
			return nil
		},
	}

	return cmd
}
