package gpath

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
	"github.com/gnoswap-labs/gpath/internal"
	tt "github.com/gnoswap-labs/gpath/internal/types"
)

// Finding is a span selected by a rule.
type Finding = tt.Finding

// QueryRule reports every annotation a GPath expression selects. An
// expression with a scalar result reports the whole document when true.
type QueryRule struct {
	Name       string      `yaml:"name" toml:"name"`
	Expression string      `yaml:"expression" toml:"expression"`
	Message    string      `yaml:"message,omitempty" toml:"message,omitempty"`
	Severity   tt.Severity `yaml:"severity,omitempty" toml:"severity,omitempty"`
}

// PatternRule reports every span an annotation pattern matches.
type PatternRule struct {
	Name     string      `yaml:"name" toml:"name"`
	Pattern  string      `yaml:"pattern" toml:"pattern"`
	Type     string      `yaml:"type,omitempty" toml:"type,omitempty"`
	Message  string      `yaml:"message,omitempty" toml:"message,omitempty"`
	Severity tt.Severity `yaml:"severity,omitempty" toml:"severity,omitempty"`
}

// IgnoreRule disables the rule with the given name.
func (e *Engine) IgnoreRule(name string) {
	e.ignoredRules[name] = true
}

// Rules returns the names of the configured rules, queries first.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.queries)+len(e.patterns))
	for _, r := range e.queries {
		names = append(names, r.Name)
	}
	for _, r := range e.patterns {
		names = append(names, r.Name)
	}
	return names
}

// Run loads a YAML or JSON document file and runs every rule on it.
func (e *Engine) Run(filename string) ([]Finding, error) {
	doc, err := document.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	return e.RunDocument(filename, doc)
}

// RunDocument runs every rule that is not ignored on doc. Findings inside a
// nolint annotation for their rule are dropped. The rest are sorted by span
// and then by rule name.
func (e *Engine) RunDocument(name string, doc document.Document) ([]Finding, error) {
	var findings []Finding

	for _, rule := range e.queries {
		if e.ignoredRules[rule.Name] {
			continue
		}
		found, err := e.runQuery(name, doc, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		findings = append(findings, found...)
	}

	for _, rule := range e.patterns {
		if e.ignoredRules[rule.Name] {
			continue
		}
		found, err := e.runPattern(name, doc, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		findings = append(findings, found...)
	}

	findings = e.dropSuppressed(doc, findings)
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Rule < b.Rule
	})
	e.logger.Debug("rules applied",
		zap.String("document", name),
		zap.Int("findings", len(findings)))
	return findings, nil
}

func (e *Engine) runQuery(name string, doc document.Document, rule QueryRule) ([]Finding, error) {
	v, err := e.EvaluateExpression(doc, rule.Expression, nil)
	if err != nil {
		return nil, err
	}

	newFinding := func(start, end int) Finding {
		return Finding{
			Rule:     rule.Name,
			Kind:     tt.KindQuery,
			Severity: rule.Severity,
			Filename: name,
			Start:    start,
			End:      end,
			Value:    document.Value(doc, start, end),
			Message:  messageOr(rule.Message, rule.Name),
		}
	}

	set, ok := v.(*eval.NodeSet)
	if !ok {
		if !v.AsBoolean() {
			return nil, nil
		}
		return []Finding{newFinding(0, doc.Size())}, nil
	}
	findings := make([]Finding, 0, set.Len())
	for _, ann := range set.Annotations() {
		findings = append(findings, newFinding(ann.Start(), ann.End()))
	}
	return findings, nil
}

func (e *Engine) runPattern(name string, doc document.Document, rule PatternRule) ([]Finding, error) {
	matches, err := e.GetMatches(doc, rule.Pattern, messageOr(rule.Type, rule.Name))
	if err != nil {
		return nil, err
	}
	findings := make([]Finding, len(matches))
	for i, m := range matches {
		findings[i] = Finding{
			Rule:     rule.Name,
			Kind:     tt.KindPattern,
			Severity: rule.Severity,
			Filename: name,
			Start:    m.Start,
			End:      m.End,
			Value:    document.Value(doc, m.Start, m.End),
			Message:  messageOr(rule.Message, m.Type),
		}
	}
	return findings, nil
}

func (e *Engine) dropSuppressed(doc document.Document, findings []Finding) []Finding {
	nolint := internal.ParseNolint(doc)
	if nolint.Len() == 0 {
		return findings
	}
	kept := findings[:0]
	for _, f := range findings {
		if nolint.IsNolint(f.Start, f.End, f.Rule) {
			e.logger.Debug("finding suppressed", zap.String("rule", f.Rule), zap.Int("start", f.Start))
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
