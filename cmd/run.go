package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/batch"
	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/formatter"
	"github.com/gnoswap-labs/gpath/internal"
	tt "github.com/gnoswap-labs/gpath/internal/types"
)

const defaultCacheDir = ".gpath-cache"

var (
	ignoreRules string
	jsonOutput  bool
	outPath     string
	workers     int
	noCache     bool
	cacheDir    string
	quiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Run the configured rules on document files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}

		var ignored []string
		if ignoreRules != "" {
			for _, rule := range strings.Split(ignoreRules, ",") {
				ignored = append(ignored, strings.TrimSpace(rule))
			}
		}
		factory := func() (batch.Runner, error) {
			engine, err := newEngine(config, nil)
			if err != nil {
				return nil, err
			}
			for _, rule := range ignored {
				engine.IgnoreRule(rule)
			}
			return engine, nil
		}

		opts := batch.Options{Logger: logger, Workers: workers}
		if !quiet {
			opts.Progress = cmd.ErrOrStderr()
		}
		processor := batch.ProcessFile
		if !noCache {
			processor, opts.Skip = cachedProcessor(config, ignored, processor)
		}

		findings, err := batch.ProcessFiles(ctx, opts, factory, args, processor)
		if err != nil {
			return err
		}
		if err := printFindings(cmd.OutOrStdout(), findings, jsonOutput, outPath); err != nil {
			return err
		}
		if len(findings) > 0 {
			return errFindings
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of rules to ignore")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output findings in JSON format")
	runCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Number of files processed at once (default: one per CPU)")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the findings cache")
	runCmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir, "Directory of the findings cache")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
}

// cachedProcessor wraps next with the findings cache, scoped to the rules
// that will actually run.
func cachedProcessor(config batch.Config, ignored []string, next batch.Processor) (batch.Processor, []string) {
	ruleset, err := config.Fingerprint(ignored...)
	if err != nil {
		logger.Warn("findings cache disabled", zap.Error(err))
		return next, nil
	}
	cache, err := internal.NewCache(cacheDir, ruleset)
	if err != nil {
		logger.Warn("findings cache disabled", zap.Error(err))
		return next, nil
	}
	return batch.CachedProcessor(cache, logger, next), []string{cacheDir}
}

func printFindings(w io.Writer, findings []tt.Finding, isJSON bool, jsonPath string) error {
	findingsByFile := make(map[string][]tt.Finding)
	for _, f := range findings {
		findingsByFile[f.Filename] = append(findingsByFile[f.Filename], f)
	}

	if isJSON {
		d, err := json.MarshalIndent(findingsByFile, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling findings to JSON: %w", err)
		}
		if jsonPath == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(jsonPath, d, 0o644)
	}

	sortedFiles := make([]string, 0, len(findingsByFile))
	for filename := range findingsByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	for _, filename := range sortedFiles {
		doc, err := document.Load(filename)
		if err != nil {
			logger.Error("Error reading document", zap.String("file", filename), zap.Error(err))
		}
		var d document.Document
		if doc != nil {
			d = doc
		}
		fmt.Fprint(w, formatter.GenerateFormattedFindings(findingsByFile[filename], d))
	}
	return nil
}
