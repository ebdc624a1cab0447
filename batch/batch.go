// Package batch runs gpath rules over many document files.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/gpath/internal"
	tt "github.com/gnoswap-labs/gpath/internal/types"
	"github.com/gnoswap-labs/gpath/scanner"
)

// Runner runs rules on one document file. *gpath.Engine implements it.
type Runner interface {
	Run(filename string) ([]tt.Finding, error)
}

// Factory creates a runner for one worker. Runners are never shared between
// goroutines.
type Factory func() (Runner, error)

// Processor applies a runner to one file.
type Processor func(Runner, string) ([]tt.Finding, error)

// Options control a batch run.
type Options struct {
	Logger *zap.Logger
	// Workers bounds the number of files processed at once. Zero means one
	// per CPU.
	Workers int
	// Progress receives a progress bar for directories. Nil disables it.
	Progress io.Writer
	// Skip lists paths the directory scan ignores, such as the cache.
	Skip []string
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// ProcessFiles processes every path, each a document file or a directory.
func ProcessFiles(
	ctx context.Context,
	opts Options,
	factory Factory,
	paths []string,
	processor Processor,
) ([]tt.Finding, error) {
	var all []tt.Finding
	for _, path := range paths {
		findings, err := ProcessPath(ctx, opts, factory, path, processor)
		if err != nil {
			opts.logger().Error("Error processing path", zap.String("path", path), zap.Error(err))
			return nil, err
		}
		all = append(all, findings...)
	}
	return all, nil
}

// ProcessPath processes one document file, or every document file below a
// directory with bounded parallelism. Failing files in a directory are logged
// and skipped; a failing single file is an error.
func ProcessPath(
	ctx context.Context,
	opts Options,
	factory Factory,
	path string,
	processor Processor,
) ([]tt.Finding, error) {
	logger := opts.logger()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return nil, nil
		}
		runner, err := factory()
		if err != nil {
			return nil, err
		}
		return processor(runner, path)
	}

	files, err := scanner.New(path, scanner.DocumentExtensions...).Skip(opts.Skip...).Paths()
	if err != nil {
		return nil, fmt.Errorf("error scanning %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	workers := opts.workers()
	if workers > len(files) {
		workers = len(files)
	}
	runners := make(chan Runner, workers)
	for i := 0; i < workers; i++ {
		r, err := factory()
		if err != nil {
			return nil, err
		}
		runners <- r
	}

	bar := newProgressBar(opts.Progress, len(files), path)

	var (
		mu       sync.Mutex
		findings []tt.Finding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runner := <-runners
			defer func() { runners <- runner }()

			if bar != nil {
				bar.Describe(filepath.Base(file))
			}
			found, err := processor(runner, file)
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
				return nil
			}

			mu.Lock()
			findings = append(findings, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	SortFindings(findings)
	return findings, nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// SortFindings orders findings by file, span and rule.
func SortFindings(findings []tt.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Rule < b.Rule
	})
}

// ProcessFile runs r on one file.
func ProcessFile(r Runner, filename string) ([]tt.Finding, error) {
	return r.Run(filename)
}

// CachedProcessor wraps a processor with a findings cache. Cache write
// failures are logged, never returned.
func CachedProcessor(cache *internal.Cache, logger *zap.Logger, next Processor) Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(r Runner, filename string) ([]tt.Finding, error) {
		if findings, ok := cache.Get(filename); ok {
			logger.Debug("cache hit", zap.String("file", filename))
			return findings, nil
		}
		findings, err := next(r, filename)
		if err != nil {
			return nil, err
		}
		if err := cache.Set(filename, findings); err != nil {
			logger.Warn("cache write failed", zap.String("file", filename), zap.Error(err))
		}
		return findings, nil
	}
}

func hasDesiredExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range scanner.DocumentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
