package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/twx-tools/twx-deploy/internal/config"
	"github.com/twx-tools/twx-deploy/internal/credentials"
)

// NewEnvironmentsCommand creates the environments command, which lists the
// configured targets and the source each credential value would come from.
// No secret values are printed, only layer names.
func NewEnvironmentsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "environments",
		Short: "List configured environments and their credential sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			resolver := credentials.NewFromEnv(cfg)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENVIRONMENT\tACCOUNT\tAUTH ID\tCERT SOURCE\tKEY SOURCE\tPASSKEY SOURCE")

			for _, name := range cfg.EnvironmentNames() {
				env, err := cfg.Environment(name)
				if err != nil {
					return err
				}
				plan, err := resolver.PlanFor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					name, env.AccountID, env.AuthID,
					plan.CertificateSource, plan.PrivateKeySource, plan.PasskeySource)
			}

			return w.Flush()
		},
	}

	return cmd
}
