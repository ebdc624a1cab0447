package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/gpath/batch"
)

var force bool

// initCmd: gpath init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new gpath configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = batch.DefaultConfigFile
		}
		if err := initConfigurationFile(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
}

func initConfigurationFile(configurationPath string, overwrite bool) error {
	if _, err := os.Stat(configurationPath); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, use --force to overwrite it", configurationPath)
	}
	return batch.WriteConfig(configurationPath, batch.DefaultConfig())
}
