package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/formatter"
)

var (
	matchVars  []string
	matchSpans bool
)

var matchCmd = &cobra.Command{
	Use:   "match <pattern> <files...>",
	Short: "Match an annotation pattern against document files",
	Long: `Matches an annotation pattern against each document and prints the
derivation tree of every matched span.
Example) gpath match "'Mr.'? <fn>+ <ln>" people.yaml`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		config, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := newEngine(config, matchVars)
		if err != nil {
			return err
		}

		src := args[0]
		if _, err := engine.Compiler().Compile(src); err != nil {
			return &sourceError{src: src, err: err}
		}

		out := cmd.OutOrStdout()
		for _, file := range args[1:] {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := document.Load(file)
			if err != nil {
				return fmt.Errorf("error loading document: %w", err)
			}
			trees, err := engine.GetMatchTrees(doc, src)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if !matchSpans {
				fmt.Fprint(out, formatter.FormatMatches(file, trees, doc))
				continue
			}
			for _, t := range trees {
				fmt.Fprintf(out, "%s:[%d,%d) %s\n", file, t.Start, t.End, document.Value(doc, t.Start, t.End))
			}
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().StringArrayVar(&matchVars, "var", nil, "Variable binding as name=value (repeatable)")
	matchCmd.Flags().BoolVar(&matchSpans, "spans", false, "Print matched spans only")
}
