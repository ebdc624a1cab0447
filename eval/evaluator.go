// Package eval evaluates GPath expressions against annotated documents.
package eval

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/internal/lru"
	"github.com/gnoswap-labs/gpath/query"
)

// VariableResolver supplies values for $name references.
type VariableResolver interface {
	Variable(name string) (Object, bool)
}

// Bindings is a map based VariableResolver.
type Bindings map[string]Object

func (b Bindings) Variable(name string) (Object, bool) {
	v, ok := b[name]
	return v, ok
}

// Options configure an Evaluator.
type Options struct {
	// Functions are consulted before the built-in functions.
	Functions *FunctionTable
	// Parent is consulted for functions neither table defines.
	Parent *Evaluator
	// Clock returns the current time for the date functions.
	Clock func() time.Time
	// CacheSize bounds the absolute path result cache.
	CacheSize int
	Logger    *zap.Logger
}

type contextKey struct {
	doc      string
	revision uint64
}

type pathKey struct {
	contextKey
	path string
}

// Evaluator evaluates GPath expressions against documents. It caches the
// wrapped form of recently used documents and the results of absolute paths
// that depend on nothing but the document. An Evaluator is not safe for
// concurrent use.
type Evaluator struct {
	functions *FunctionTable
	parent    *Evaluator
	clock     func() time.Time
	contexts  *lru.Cache[contextKey, *docContext]
	paths     *lru.Cache[pathKey, []*Node]
	regexps   *lru.Cache[string, *regexp.Regexp]
	logger    *zap.Logger
}

func New(opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{
		functions: opts.Functions,
		parent:    opts.Parent,
		clock:     clock,
		contexts:  lru.New[contextKey, *docContext]("gpath-documents", 16, logger),
		paths:     lru.New[pathKey, []*Node]("gpath-paths", opts.CacheSize, logger),
		regexps:   lru.New[string, *regexp.Regexp]("gpath-regexps", 64, logger),
		logger:    logger,
	}
}

// Functions returns the custom function table, which may be nil.
func (e *Evaluator) Functions() *FunctionTable { return e.functions }

// Evaluate evaluates expr with the document root as context.
func (e *Evaluator) Evaluate(expr query.Expr, doc document.Document, vars VariableResolver) (Object, error) {
	dc := e.context(doc)
	return e.eval(expr, &evalContext{node: dc.root, position: 1, size: 1, vars: vars, dc: dc})
}

// EvaluateOn evaluates expr with ann as context.
func (e *Evaluator) EvaluateOn(expr query.Expr, doc document.Document, ann document.Annotation, vars VariableResolver) (Object, error) {
	dc := e.context(doc)
	return e.eval(expr, &evalContext{node: dc.nodeFor(ann), position: 1, size: 1, vars: vars, dc: dc})
}

// EvaluatePath evaluates a location path with the document root as context.
func (e *Evaluator) EvaluatePath(path *query.Path, doc document.Document, vars VariableResolver) (*NodeSet, error) {
	dc := e.context(doc)
	nodes, err := e.evalPath(path, &evalContext{node: dc.root, position: 1, size: 1, vars: vars, dc: dc})
	if err != nil {
		return nil, err
	}
	return &NodeSet{Nodes: nodes}, nil
}

// Bool evaluates expr on ann and coerces the result to a boolean.
func (e *Evaluator) Bool(expr query.Expr, doc document.Document, ann document.Annotation, vars VariableResolver) (bool, error) {
	v, err := e.EvaluateOn(expr, doc, ann, vars)
	if err != nil {
		return false, err
	}
	return v.AsBoolean(), nil
}

// Purge drops every cached document and path result.
func (e *Evaluator) Purge() {
	e.contexts.Purge()
	e.paths.Purge()
}

func (e *Evaluator) PathCacheStats() lru.Stats {
	return e.paths.Stats()
}

func revisionOf(doc document.Document) (uint64, bool) {
	r, ok := doc.(document.Revisioned)
	if !ok {
		return 0, false
	}
	return r.Revision(), true
}

// context returns the wrapped document, reusing it while the document's
// revision is unchanged. Documents without revisions are wrapped per call.
func (e *Evaluator) context(doc document.Document) *docContext {
	rev, ok := revisionOf(doc)
	if !ok {
		return newDocContext(doc)
	}
	key := contextKey{doc: doc.ID(), revision: rev}
	if dc, ok := e.contexts.Get(key); ok {
		return dc
	}
	dc := newDocContext(doc)
	e.evictRevisions(key)
	e.contexts.Add(key, dc)
	return dc
}

// evictRevisions drops what is cached for other revisions of the document.
func (e *Evaluator) evictRevisions(key contextKey) {
	stale := func(k contextKey) bool { return k.doc == key.doc && k.revision != key.revision }
	e.contexts.RemoveIf(stale)
	if n := e.paths.RemoveIf(func(k pathKey) bool { return stale(k.contextKey) }); n > 0 {
		e.logger.Debug("dropped path results of an older revision",
			zap.String("document", key.doc),
			zap.Uint64("revision", key.revision),
			zap.Int("paths", n),
		)
	}
}

// cacheable reports whether the result of p depends only on the document.
// Variables, clock functions and functions outside the built-ins rule it out.
func (e *Evaluator) cacheable(p *query.Path) bool {
	if p.HasVariables() {
		return false
	}
	for _, s := range p.Steps {
		for _, pred := range s.Predicates {
			pure := true
			query.Walk(pred, func(n query.Expr) bool {
				if fc, ok := n.(*query.FunctionCall); ok && !e.pureFunction(fc.Name) {
					pure = false
				}
				return pure
			})
			if !pure {
				return false
			}
		}
	}
	return true
}

func (e *Evaluator) pureFunction(name string) bool {
	if _, ok := e.functions.Lookup(name); ok {
		return false
	}
	if _, ok := builtins[name]; !ok {
		return false
	}
	return !clockFunctions[name]
}

type evalContext struct {
	node     *Node
	position int
	size     int
	vars     VariableResolver
	dc       *docContext
}

func (c *evalContext) with(n *Node, position, size int) *evalContext {
	return &evalContext{node: n, position: position, size: size, vars: c.vars, dc: c.dc}
}

func (e *Evaluator) eval(expr query.Expr, ctx *evalContext) (Object, error) {
	switch n := expr.(type) {
	case *query.Literal:
		return String(n.Value), nil

	case *query.Number:
		return Number(n.Value), nil

	case *query.VariableRef:
		if ctx.vars != nil {
			if v, ok := ctx.vars.Variable(n.Name); ok {
				return v, nil
			}
		}
		return nil, newError(KindUnboundVariable, n.String(), "no binding for %q", n.Name)

	case *query.PathExpr:
		nodes, err := e.evalPath(n.Path, ctx)
		if err != nil {
			return nil, err
		}
		return &NodeSet{Nodes: nodes}, nil

	case *query.Enclosed:
		v, err := e.eval(n.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return e.filter(v, n.Predicates, n.Suffix, n.String(), ctx)

	case *query.FunctionCall:
		v, err := e.call(n, ctx)
		if err != nil {
			return nil, err
		}
		return e.filter(v, n.Predicates, n.Suffix, n.String(), ctx)

	case *query.Union:
		lists := make([][]*Node, 0, len(n.Items))
		for _, item := range n.Items {
			v, err := e.eval(item, ctx)
			if err != nil {
				return nil, err
			}
			set, ok := v.(*NodeSet)
			if !ok {
				return nil, newError(KindInvalidArguments, n.String(), "union operand is a %s", v.Type())
			}
			lists = append(lists, set.Nodes)
		}
		return &NodeSet{Nodes: ctx.dc.merge(lists...)}, nil

	case *query.Negation:
		v, err := e.eval(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return Number(-v.AsNumber()), nil

	case *query.BinaryOp:
		return e.binary(n, ctx)

	default:
		return nil, newError(KindSyntax, "", "unsupported expression %T", expr)
	}
}

// filter applies trailing predicates and a relative path to the result of
// a parenthesized expression or function call.
func (e *Evaluator) filter(v Object, preds []query.Expr, suffix *query.Path, construct string, ctx *evalContext) (Object, error) {
	if len(preds) == 0 && suffix == nil {
		return v, nil
	}
	set, ok := v.(*NodeSet)
	if !ok {
		return nil, newError(KindInvalidArguments, construct, "cannot filter a %s", v.Type())
	}
	nodes := set.Nodes
	var err error
	for _, pred := range preds {
		nodes, err = e.applyPredicate(nodes, pred, ctx)
		if err != nil {
			return nil, err
		}
	}
	if suffix != nil {
		nodes, err = e.walkSteps(suffix.Steps, nodes, ctx)
		if err != nil {
			return nil, err
		}
	}
	return &NodeSet{Nodes: nodes}, nil
}

func (e *Evaluator) evalPath(p *query.Path, ctx *evalContext) ([]*Node, error) {
	if !p.Absolute {
		return e.walkSteps(p.Steps, []*Node{ctx.node}, ctx)
	}

	rev, versioned := revisionOf(ctx.dc.doc)
	cacheable := versioned && e.cacheable(p)
	var key pathKey
	if cacheable {
		key = pathKey{contextKey: contextKey{doc: ctx.dc.doc.ID(), revision: rev}, path: p.String()}
		if nodes, ok := e.paths.Get(key); ok {
			return nodes, nil
		}
	}

	nodes, err := e.walkSteps(p.Steps, []*Node{ctx.dc.super}, ctx)
	if err != nil {
		return nil, err
	}
	if len(p.Steps) == 0 {
		nodes = []*Node{ctx.dc.root}
	}
	if cacheable {
		e.paths.Add(key, nodes)
	}
	return nodes, nil
}

func (e *Evaluator) walkSteps(steps []*query.Step, nodes []*Node, ctx *evalContext) ([]*Node, error) {
	for _, step := range steps {
		lists := make([][]*Node, 0, len(nodes))
		for _, n := range nodes {
			candidates := ctx.dc.axis(step.Axis, step.Test, n)
			var err error
			for _, pred := range step.Predicates {
				candidates, err = e.applyPredicate(candidates, pred, ctx)
				if err != nil {
					return nil, err
				}
			}
			lists = append(lists, candidates)
		}
		nodes = ctx.dc.merge(lists...)
	}
	return nodes, nil
}

// applyPredicate keeps the nodes for which pred holds. A numeric result
// selects the node at that 1-based position.
func (e *Evaluator) applyPredicate(nodes []*Node, pred query.Expr, ctx *evalContext) ([]*Node, error) {
	var out []*Node
	size := len(nodes)
	for i, n := range nodes {
		v, err := e.eval(pred, ctx.with(n, i+1, size))
		if err != nil {
			return nil, err
		}
		keep := false
		if num, ok := v.(Number); ok {
			keep = float64(num) == float64(i+1)
		} else {
			keep = v.AsBoolean()
		}
		if keep {
			out = append(out, n)
		}
	}
	return out, nil
}
