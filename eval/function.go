package eval

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/query"
)

// Context is what a function sees of the evaluation in progress.
type Context struct {
	Node     *Node
	Position int
	Size     int
	Document document.Document
	Now      time.Time
}

// Tokenizer returns the tokenizer of the document being evaluated.
func (c Context) Tokenizer() document.Tokenizer {
	if c.Node != nil && c.Node.dc != nil {
		return c.Node.dc.tokenizer
	}
	return document.DefaultTokenizer{}
}

// Function is a callable that can be registered under a name.
type Function interface {
	Execute(ctx Context, args []Object) (Object, error)
}

// FunctionFunc adapts a plain function to the Function interface.
type FunctionFunc func(ctx Context, args []Object) (Object, error)

func (f FunctionFunc) Execute(ctx Context, args []Object) (Object, error) {
	return f(ctx, args)
}

// FunctionTable maps function names to implementations. Lookups ignore case.
type FunctionTable struct {
	funcs map[string]Function
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{funcs: make(map[string]Function)}
}

func (t *FunctionTable) Register(name string, fn Function) {
	t.funcs[strings.ToLower(name)] = fn
}

func (t *FunctionTable) RegisterFunc(name string, fn func(ctx Context, args []Object) (Object, error)) {
	t.Register(name, FunctionFunc(fn))
}

func (t *FunctionTable) Lookup(name string) (Function, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.funcs[strings.ToLower(name)]
	return fn, ok
}

func (t *FunctionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.funcs)
}

func (e *Evaluator) call(fc *query.FunctionCall, ctx *evalContext) (Object, error) {
	args := make([]Object, len(fc.Args))
	for i, a := range fc.Args {
		v, err := e.eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return e.dispatch(fc.Name, args, ctx)
}

// dispatch tries the custom table, then the built-ins, then the parent
// evaluator. A failing custom function is only reported when nothing else
// defines the name.
func (e *Evaluator) dispatch(name string, args []Object, ctx *evalContext) (Object, error) {
	var customErr error
	if fn, ok := e.functions.Lookup(name); ok {
		v, err := fn.Execute(e.functionContext(ctx), args)
		if err == nil {
			return v, nil
		}
		customErr = err
		e.logger.Debug("custom function failed, trying fallbacks",
			zap.String("function", name),
			zap.Error(err),
		)
	}

	if b, ok := builtins[name]; ok {
		return b(e, ctx, name, args)
	}

	if e.parent != nil {
		v, err := e.parent.dispatch(name, args, ctx)
		if err == nil || customErr == nil || !errors.Is(err, ErrUndefinedFunction) {
			return v, err
		}
	}

	if customErr != nil {
		return nil, customErr
	}
	return nil, newError(KindUndefinedFunction, name+"()", "no function named %q", name)
}

func (e *Evaluator) functionContext(ctx *evalContext) Context {
	return Context{
		Node:     ctx.node,
		Position: ctx.position,
		Size:     ctx.size,
		Document: ctx.dc.doc,
		Now:      e.clock(),
	}
}
