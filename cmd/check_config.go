package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/meetbot/internal/upstream"
)

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Show the upstream mode selected by the environment",
		Long: `Check which upstream setup the current environment selects, without
starting the server. API keys are masked in the output. Exits non-zero when
no complete credential set is present.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := upstream.LoadCredentialsFromEnv()
			if err != nil {
				return err
			}
			for _, line := range creds.Summary() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
