package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/gnoswap-labs/gpath/formatter"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the rules of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		errs := multierr.Errors(config.Validate())
		for _, err := range errs {
			fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatError("", err))
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d invalid rules: %w", len(errs), errFindings)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queries and %d patterns are valid\n",
			config.Name, len(config.Queries), len(config.Patterns))
		return nil
	},
}
