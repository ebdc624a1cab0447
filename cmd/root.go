package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath"
	"github.com/gnoswap-labs/gpath/batch"
	"github.com/gnoswap-labs/gpath/formatter"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger = zap.NewNop()
)

// errFindings makes the process exit with status 1 without printing
// anything more.
var errFindings = errors.New("findings reported")

// sourceError carries the text a syntax error points into.
type sourceError struct {
	src string
	err error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "gpath",
	Short:         "gpath - query and match annotated token documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the command line and prints the error, if any, to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errFindings) {
		var se *sourceError
		src := ""
		if errors.As(err, &se) {
			src = se.src
		}
		fmt.Fprint(rootCmd.ErrOrStderr(), formatter.FormatError(src, err))
	}
	_ = logger.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./"+batch.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for the whole command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig reads --config, else the default config file when it exists,
// else falls back to the built-in configuration.
func loadConfig() (batch.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(batch.DefaultConfigFile); err != nil {
			logger.Debug("no config file, using defaults")
			return batch.DefaultConfig(), nil
		}
		path = batch.DefaultConfigFile
	}
	config, err := batch.LoadConfig(path)
	if err != nil {
		return config, err
	}
	logger.Debug("config loaded", zap.String("path", path), zap.String("name", config.Name))
	return config, nil
}

// parseVars turns name=value flags into string bindings layered over base.
func parseVars(base map[string]string, flags []string) (map[string]string, error) {
	vars := make(map[string]string, len(base)+len(flags))
	for k, v := range base {
		vars[k] = v
	}
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("variable %q must be formatted as name=value", f)
		}
		vars[name] = value
	}
	return vars, nil
}

// newEngine builds an engine from the configuration, with vars overriding
// the configured variables.
func newEngine(config batch.Config, vars []string) (*gpath.Engine, error) {
	merged, err := parseVars(config.Variables, vars)
	if err != nil {
		return nil, err
	}
	return config.NewEngine(logger, gpath.WithVariables(merged)), nil
}
