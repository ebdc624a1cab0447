package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
)

var (
	queryVars []string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <expression> <files...>",
	Short: "Evaluate a GPath expression on document files",
	Long: `Evaluates a GPath expression with each document as context and prints
the selected annotations, or the value of a scalar expression.
Example) gpath query "//person[@role='author']" docs/*.yaml`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		config, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := newEngine(config, queryVars)
		if err != nil {
			return err
		}

		expr := args[0]
		if _, err := engine.Parser().ParseExpression(expr); err != nil {
			return &sourceError{src: expr, err: err}
		}

		var results []queryResult
		for _, file := range args[1:] {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := document.Load(file)
			if err != nil {
				return fmt.Errorf("error loading document: %w", err)
			}
			v, err := engine.EvaluateExpression(doc, expr, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			found := newQueryResults(file, doc, v)
			logger.Debug("query evaluated", zap.String("file", file), zap.Int("results", len(found)))
			results = append(results, found...)
		}
		return printQueryResults(cmd.OutOrStdout(), results, queryJSON)
	},
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryVars, "var", nil, "Variable binding as name=value (repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output results in JSON format")
}

type queryResult struct {
	File  string `json:"file"`
	Type  string `json:"type,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value string `json:"value"`
}

// newQueryResults lists the annotations of a node-set result. A scalar
// result is reported once, spanning the whole document.
func newQueryResults(file string, doc document.Document, v eval.Object) []queryResult {
	set, ok := v.(*eval.NodeSet)
	if !ok {
		return []queryResult{{File: file, Start: 0, End: doc.Size(), Value: v.AsString()}}
	}
	results := make([]queryResult, 0, set.Len())
	for _, a := range set.Annotations() {
		results = append(results, queryResult{
			File:  file,
			Type:  a.Type(),
			Start: a.Start(),
			End:   a.End(),
			Value: document.Value(doc, a.Start(), a.End()),
		})
	}
	return results
}

func printQueryResults(w io.Writer, results []queryResult, isJSON bool) error {
	if isJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if results == nil {
			results = []queryResult{}
		}
		return enc.Encode(results)
	}
	for _, r := range results {
		if r.Type == "" {
			fmt.Fprintf(w, "%s: %s\n", r.File, r.Value)
			continue
		}
		fmt.Fprintf(w, "%s:[%d,%d) %s: %s\n", r.File, r.Start, r.End, r.Type, r.Value)
	}
	return nil
}
