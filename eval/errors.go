package eval

import (
	"fmt"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	KindUnboundVariable ErrorKind = iota + 1
	KindInvalidArguments
	KindUndefinedFunction
	KindUndefinedOperator
	KindSyntax
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnboundVariable:
		return "unbound variable"
	case KindInvalidArguments:
		return "invalid arguments"
	case KindUndefinedFunction:
		return "undefined function"
	case KindUndefinedOperator:
		return "undefined operator"
	case KindSyntax:
		return "syntax error"
	default:
		return "unknown error"
	}
}

// Error is returned for every evaluation failure. Construct names the
// expression, function or operator that failed.
type Error struct {
	Kind      ErrorKind
	Message   string
	Construct string
	Err       error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUnboundVariable   = &Error{Kind: KindUnboundVariable}
	ErrInvalidArguments  = &Error{Kind: KindInvalidArguments}
	ErrUndefinedFunction = &Error{Kind: KindUndefinedFunction}
	ErrUndefinedOperator = &Error{Kind: KindUndefinedOperator}
	ErrSyntax            = &Error{Kind: KindSyntax}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Construct != "" {
		msg += " in " + e.Construct
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Construct == ""
}

func newError(kind ErrorKind, construct string, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Construct: construct,
		Message:   fmt.Sprintf(format, args...),
	}
}
