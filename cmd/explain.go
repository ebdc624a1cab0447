package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/gpath"
)

var explainPattern bool

var explainCmd = &cobra.Command{
	Use:   "explain <expression>",
	Short: "Print the canonical form of an expression or pattern",
	Long: `Parses a GPath expression, or with --pattern an annotation pattern,
and prints it back in canonical form with explicit grouping.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		out := cmd.OutOrStdout()
		engine := gpath.New(gpath.WithLogger(logger))

		if explainPattern {
			p, err := engine.Compiler().Compile(src)
			if err != nil {
				return &sourceError{src: src, err: err}
			}
			fmt.Fprintln(out, p.String())
			return nil
		}

		x, err := engine.Parser().ParseExpression(src)
		if err != nil {
			return &sourceError{src: src, err: err}
		}
		fmt.Fprintln(out, x.String())
		return nil
	},
}

func init() {
	explainCmd.Flags().BoolVar(&explainPattern, "pattern", false, "Treat the argument as an annotation pattern")
}
