// Package gpath queries and pattern-matches annotated token documents.
//
// An Engine bundles a GPath parser and evaluator with a pattern compiler and
// matcher, each owning its own bounded cache. Engines are not safe for
// concurrent use; create one per goroutine.
package gpath

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
	"github.com/gnoswap-labs/gpath/pattern"
	"github.com/gnoswap-labs/gpath/query"
)

// Default cache sizes.
const (
	DefaultParseCacheSize   = 1024
	DefaultPatternCacheSize = 256
	DefaultResultCacheSize  = 512
)

type settings struct {
	logger       *zap.Logger
	parseCache   int
	patternCache int
	resultCache  int
	functions    *eval.FunctionTable
	parent       *Engine
	clock        func() time.Time
	variables    eval.Bindings
	queries      []QueryRule
	patterns     []PatternRule
}

// Option configures an Engine.
type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithCacheSizes sets the sizes of the parse, pattern and absolute path
// result caches. Non-positive sizes keep the defaults.
func WithCacheSizes(parse, patterns, results int) Option {
	return func(s *settings) {
		if parse > 0 {
			s.parseCache = parse
		}
		if patterns > 0 {
			s.patternCache = patterns
		}
		if results > 0 {
			s.resultCache = results
		}
	}
}

// WithFunction registers a custom function, consulted before the built-ins.
func WithFunction(name string, fn eval.Function) Option {
	return func(s *settings) {
		if s.functions == nil {
			s.functions = eval.NewFunctionTable()
		}
		s.functions.Register(name, fn)
	}
}

// WithFallback makes functions unknown to this engine resolve through parent.
func WithFallback(parent *Engine) Option {
	return func(s *settings) { s.parent = parent }
}

func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

// WithVariables binds string variables used when a call passes no resolver.
func WithVariables(vars map[string]string) Option {
	return func(s *settings) {
		if s.variables == nil {
			s.variables = make(eval.Bindings, len(vars))
		}
		for k, v := range vars {
			s.variables[k] = eval.String(v)
		}
	}
}

func WithQueryRules(rules ...QueryRule) Option {
	return func(s *settings) { s.queries = append(s.queries, rules...) }
}

func WithPatternRules(rules ...PatternRule) Option {
	return func(s *settings) { s.patterns = append(s.patterns, rules...) }
}

// Engine evaluates GPath expressions and annotation patterns.
type Engine struct {
	logger    *zap.Logger
	parser    *query.Parser
	evaluator *eval.Evaluator
	compiler  *pattern.Compiler
	matcher   *pattern.Matcher
	variables eval.Bindings

	queries      []QueryRule
	patterns     []PatternRule
	ignoredRules map[string]bool
}

func New(opts ...Option) *Engine {
	s := settings{
		parseCache:   DefaultParseCacheSize,
		patternCache: DefaultPatternCacheSize,
		resultCache:  DefaultResultCacheSize,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	var parent *eval.Evaluator
	if s.parent != nil {
		parent = s.parent.evaluator
	}
	parser := query.NewParser(query.Options{CacheSize: s.parseCache, Logger: s.logger})
	evaluator := eval.New(eval.Options{
		Functions: s.functions,
		Parent:    parent,
		Clock:     s.clock,
		CacheSize: s.resultCache,
		Logger:    s.logger,
	})

	return &Engine{
		logger:    s.logger,
		parser:    parser,
		evaluator: evaluator,
		compiler: pattern.NewCompiler(pattern.CompilerOptions{
			CacheSize: s.patternCache,
			Parser:    parser,
			Logger:    s.logger,
		}),
		matcher: pattern.NewMatcher(pattern.Options{
			Evaluator: evaluator,
			Variables: s.variables,
			Logger:    s.logger,
		}),
		variables:    s.variables,
		queries:      s.queries,
		patterns:     s.patterns,
		ignoredRules: make(map[string]bool),
	}
}

func (e *Engine) Parser() *query.Parser       { return e.parser }
func (e *Engine) Evaluator() *eval.Evaluator  { return e.evaluator }
func (e *Engine) Compiler() *pattern.Compiler { return e.compiler }

func (e *Engine) resolver(vars eval.VariableResolver) eval.VariableResolver {
	if vars != nil {
		return vars
	}
	if e.variables != nil {
		return e.variables
	}
	return nil
}

// EvaluatePath evaluates a location path from the document root and returns
// the selected annotations in document order. Document annotations come back
// as the document's own values; token and attribute selections come back as
// pseudo-annotations.
func (e *Engine) EvaluatePath(doc document.Document, path string, vars eval.VariableResolver) ([]document.Annotation, error) {
	p, err := e.parser.ParsePath(path)
	if err != nil {
		return nil, err
	}
	set, err := e.evaluator.EvaluatePath(p, doc, e.resolver(vars))
	if err != nil {
		return nil, err
	}
	return set.Annotations(), nil
}

// EvaluateExpression evaluates any GPath expression with the document root
// as context.
func (e *Engine) EvaluateExpression(doc document.Document, expr string, vars eval.VariableResolver) (eval.Object, error) {
	x, err := e.parser.ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	return e.evaluator.Evaluate(x, doc, e.resolver(vars))
}

// Match is one span matched by a pattern, reported as an annotation of Type.
type Match struct {
	Type  string
	Start int
	End   int
	Tree  *pattern.MatchTree
}

// GetMatches matches src against doc and reports each matched span as a
// candidate annotation of type typ.
func (e *Engine) GetMatches(doc document.Document, src, typ string) ([]Match, error) {
	trees, err := e.GetMatchTrees(doc, src)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(trees))
	for i, t := range trees {
		matches[i] = Match{Type: typ, Start: t.Start, End: t.End, Tree: t}
	}
	return matches, nil
}

// GetMatchTrees matches src against doc and returns the derivation of every
// matched span.
func (e *Engine) GetMatchTrees(doc document.Document, src string) ([]*pattern.MatchTree, error) {
	p, err := e.compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	return e.MatchPattern(doc, nil, p)
}

// MatchPattern runs a compiled pattern using index for annotation lookups.
// A nil index observes doc.
func (e *Engine) MatchPattern(doc document.Document, index *pattern.Index, p *pattern.Pattern) ([]*pattern.MatchTree, error) {
	trees, err := e.matcher.Match(doc, index, p)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", p, err)
	}
	return trees, nil
}
