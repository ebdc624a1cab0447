package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/batch"
	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/formatter"
	"github.com/gnoswap-labs/gpath/internal"
	"github.com/gnoswap-labs/gpath/scanner"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-run the configured rules whenever a document changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		engine, err := newEngine(config, nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		// handlers run on timer goroutines; the engine is not safe for
		// concurrent use
		runs := make(chan string)
		w, err := internal.NewWatcher(logger, func(path string) {
			select {
			case runs <- path:
			case <-ctx.Done():
			}
		}, scanner.DocumentExtensions...)
		if err != nil {
			return err
		}
		for _, dir := range args {
			if err := w.Add(dir); err != nil {
				return err
			}
		}

		errc := make(chan error, 1)
		go func() { errc <- w.Run(ctx) }()
		fmt.Fprintf(out, "Watching %d directories, press Ctrl+C to stop\n", len(args))

		for {
			select {
			case path := <-runs:
				runWatched(out, engine, path)
			case err := <-errc:
				return err
			}
		}
	},
}

func runWatched(out io.Writer, runner batch.Runner, path string) {
	findings, err := runner.Run(path)
	if err != nil {
		logger.Error("Error processing file", zap.String("file", path), zap.Error(err))
		return
	}
	if len(findings) == 0 {
		fmt.Fprintf(out, "%s: no findings\n", path)
		return
	}
	doc, err := document.Load(path)
	if err != nil {
		logger.Error("Error reading document", zap.String("file", path), zap.Error(err))
		return
	}
	fmt.Fprint(out, formatter.GenerateFormattedFindings(findings, doc))
}
