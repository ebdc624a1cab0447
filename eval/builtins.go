package eval

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gnoswap-labs/gpath/document"
)

type builtin func(e *Evaluator, ctx *evalContext, name string, args []Object) (Object, error)

var builtins map[string]builtin

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = "2006-01-02T15:04:05"
)

func init() {
	builtins = map[string]builtin{
		"boolean": unary(func(v Object) Object { return Boolean(v.AsBoolean()) }),
		"not":     unary(func(v Object) Object { return Boolean(!v.AsBoolean()) }),
		"true":    constant(Boolean(true)),
		"false":   constant(Boolean(false)),

		"isWord":              classify(func(c document.Classifier, s string) bool { return c.IsWord(s) }),
		"isNumber":            classify(func(c document.Classifier, s string) bool { return c.IsNumber(s) }),
		"isPunctuation":       classify(func(c document.Classifier, s string) bool { return c.IsPunctuation(s) }),
		"isBracket":           classify(func(c document.Classifier, s string) bool { return c.IsBracket(s) }),
		"isOpeningBracket":    classify(func(c document.Classifier, s string) bool { return c.IsOpeningBracket(s) }),
		"isClosingBracket":    classify(func(c document.Classifier, s string) bool { return c.IsClosingBracket(s) }),
		"isSentenceEnd":       classify(func(c document.Classifier, s string) bool { return c.IsSentenceEnd(s) }),
		"isUpperCaseWord":     classify(document.IsUpperCaseWord),
		"isLowerCaseWord":     classify(document.IsLowerCaseWord),
		"isCapitalizedWord":   classify(document.IsCapitalizedWord),
		"isFirstLetterUpWord": classify(document.IsFirstLetterUpWord),
		"opens":               pairClassify(func(c document.Classifier, a, b string) bool { return c.Opens(a, b) }),
		"closes":              pairClassify(func(c document.Classifier, a, b string) bool { return c.Closes(a, b) }),

		"number":  numberFn,
		"floor":   numeric(math.Floor),
		"ceiling": numeric(math.Ceil),
		"round":   numeric(round),
		"abs":     numeric(math.Abs),
		"count":   countFn,
		"sum":     sumFn,

		"last":          lastFn,
		"position":      positionFn,
		"local-name":    nameFn,
		"name":          nameFn,
		"namespace-uri": namespaceFn,

		"string":           stringFn,
		"string-length":    stringLengthFn,
		"contains":         stringPredicate(strings.Contains),
		"starts-with":      stringPredicate(strings.HasPrefix),
		"ends-with":        stringPredicate(strings.HasSuffix),
		"matches":          matchesFn,
		"concat":           concatFn,
		"normalize-space":  stringMap(func(s string) string { return strings.Join(strings.Fields(s), " ") }),
		"normalize-chars":  stringMap(removeDiacritics),
		"upper-case":       stringMap(func(s string) string { return cases.Upper(language.Und).String(s) }),
		"lower-case":       stringMap(func(s string) string { return cases.Lower(language.Und).String(s) }),
		"substring":        substringFn,
		"substring-before": substringBeforeFn,
		"substring-after":  substringAfterFn,
		"replace":          replaceFn,
		"replace-all":      replaceAllFn,
		"translate":        translateFn,

		"date":        clockFn(dateLayout, false),
		"time":        clockFn(timeLayout, false),
		"dateTime":    clockFn(dateTimeLayout, false),
		"dateUTC":     clockFn(dateLayout, true),
		"timeUTC":     clockFn(timeLayout, true),
		"dateTimeUTC": clockFn(dateTimeLayout, true),
	}
}

// clockFunctions read the evaluator clock.
var clockFunctions = map[string]bool{
	"date": true, "time": true, "dateTime": true,
	"dateUTC": true, "timeUTC": true, "dateTimeUTC": true,
}

// BuiltinNames lists the functions every evaluator defines.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	return names
}

func checkArity(name string, args []Object, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return newError(KindInvalidArguments, name+"()", "expected %d argument(s), got %d", min, len(args))
		case max < 0:
			return newError(KindInvalidArguments, name+"()", "expected at least %d arguments, got %d", min, len(args))
		default:
			return newError(KindInvalidArguments, name+"()", "expected %d to %d arguments, got %d", min, max, len(args))
		}
	}
	return nil
}

// stringArg returns argument i as a string, or the context node's value when
// the argument is absent.
func stringArg(ctx *evalContext, args []Object, i int) string {
	if i < len(args) {
		return args[i].AsString()
	}
	return ctx.node.Value()
}

func nodeSetArg(name string, args []Object, i int) (*NodeSet, error) {
	set, ok := args[i].(*NodeSet)
	if !ok {
		return nil, newError(KindInvalidArguments, name+"()", "argument %d must be a node-set, got %s", i+1, args[i].Type())
	}
	return set, nil
}

func constant(v Object) builtin {
	return func(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 0, 0); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func unary(fn func(Object) Object) builtin {
	return func(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return fn(args[0]), nil
	}
}

func classify(fn func(document.Classifier, string) bool) builtin {
	return func(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 0, 1); err != nil {
			return nil, err
		}
		return Boolean(fn(ctx.dc.tokenizer, stringArg(ctx, args, 0))), nil
	}
}

func pairClassify(fn func(document.Classifier, string, string) bool) builtin {
	return func(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 2, 2); err != nil {
			return nil, err
		}
		return Boolean(fn(ctx.dc.tokenizer, args[0].AsString(), args[1].AsString())), nil
	}
}

func numeric(fn func(float64) float64) builtin {
	return func(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return Number(fn(args[0].AsNumber())), nil
	}
}

func round(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Floor(f + 0.5)
}

func numberFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Number(parseNumber(ctx.node.Value())), nil
	}
	return Number(args[0].AsNumber()), nil
}

func countFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 1, 1); err != nil {
		return nil, err
	}
	set, err := nodeSetArg(name, args, 0)
	if err != nil {
		return nil, err
	}
	return Number(set.Len()), nil
}

func sumFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 1, 1); err != nil {
		return nil, err
	}
	set, err := nodeSetArg(name, args, 0)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, v := range set.Values() {
		total += parseNumber(v)
	}
	return Number(total), nil
}

func lastFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 0); err != nil {
		return nil, err
	}
	return Number(ctx.size), nil
}

func positionFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 0); err != nil {
		return nil, err
	}
	return Number(ctx.position), nil
}

func nameFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return String(ctx.node.Type()), nil
	}
	set, err := nodeSetArg(name, args, 0)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return String(""), nil
	}
	return String(set.Nodes[0].Type()), nil
}

func namespaceFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 1); err != nil {
		return nil, err
	}
	return String(""), nil
}

func stringFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 1); err != nil {
		return nil, err
	}
	return String(stringArg(ctx, args, 0)), nil
}

func stringLengthFn(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 0, 1); err != nil {
		return nil, err
	}
	return Number(utf8.RuneCountInString(stringArg(ctx, args, 0))), nil
}

func stringPredicate(fn func(s, sub string) bool) builtin {
	return func(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 2, 2); err != nil {
			return nil, err
		}
		return Boolean(fn(args[0].AsString(), args[1].AsString())), nil
	}
}

func stringMap(fn func(string) string) builtin {
	return func(_ *Evaluator, ctx *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 0, 1); err != nil {
			return nil, err
		}
		return String(fn(stringArg(ctx, args, 0))), nil
	}
}

func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func (e *Evaluator) regexp(name, expr string) (*regexp.Regexp, error) {
	if re, ok := e.regexps.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArguments, Construct: name + "()", Message: "bad regular expression", Err: err}
	}
	e.regexps.Add(expr, re)
	return re, nil
}

func matchesFn(e *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 2, 2); err != nil {
		return nil, err
	}
	re, err := e.regexp(name, args[1].AsString())
	if err != nil {
		return nil, err
	}
	return Boolean(re.MatchString(args[0].AsString())), nil
}

func concatFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 2, -1); err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.AsString())
	}
	return String(sb.String()), nil
}

// substringFn counts characters from 1 and rounds its numeric arguments.
func substringFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 2, 3); err != nil {
		return nil, err
	}
	first := round(args[1].AsNumber())
	last := math.Inf(1)
	if len(args) == 3 {
		last = first + round(args[2].AsNumber())
	}
	var sb strings.Builder
	for i, r := range []rune(args[0].AsString()) {
		p := float64(i + 1)
		if p >= first && p < last {
			sb.WriteRune(r)
		}
	}
	return String(sb.String()), nil
}

func substringBeforeFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 2, 2); err != nil {
		return nil, err
	}
	s, sep := args[0].AsString(), args[1].AsString()
	i := strings.Index(s, sep)
	if i < 0 {
		return String(""), nil
	}
	return String(s[:i]), nil
}

func substringAfterFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 2, 2); err != nil {
		return nil, err
	}
	s, sep := args[0].AsString(), args[1].AsString()
	i := strings.Index(s, sep)
	if i < 0 {
		return String(""), nil
	}
	return String(s[i+len(sep):]), nil
}

// replaceFn substitutes the first match of a regular expression. The
// replacement may reference groups as $1 or ${name}.
func replaceFn(e *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 3, 3); err != nil {
		return nil, err
	}
	re, err := e.regexp(name, args[1].AsString())
	if err != nil {
		return nil, err
	}
	s := args[0].AsString()
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return String(s), nil
	}
	out := re.ExpandString([]byte(s[:loc[0]]), args[2].AsString(), s, loc)
	return String(string(out) + s[loc[1]:]), nil
}

// replaceAllFn substitutes every match of a regular expression.
func replaceAllFn(e *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 3, 3); err != nil {
		return nil, err
	}
	re, err := e.regexp(name, args[1].AsString())
	if err != nil {
		return nil, err
	}
	return String(re.ReplaceAllString(args[0].AsString(), args[2].AsString())), nil
}

func translateFn(_ *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
	if err := checkArity(name, args, 3, 3); err != nil {
		return nil, err
	}
	from, to := []rune(args[1].AsString()), []rune(args[2].AsString())
	mapping := make(map[rune]rune, len(from))
	for i, r := range from {
		if _, seen := mapping[r]; seen {
			continue
		}
		if i < len(to) {
			mapping[r] = to[i]
		} else {
			mapping[r] = -1
		}
	}
	out := strings.Map(func(r rune) rune {
		if m, ok := mapping[r]; ok {
			return m
		}
		return r
	}, args[0].AsString())
	return String(out), nil
}

// clockFn formats the current time, or the given epoch milliseconds.
func clockFn(layout string, utc bool) builtin {
	return func(e *Evaluator, _ *evalContext, name string, args []Object) (Object, error) {
		if err := checkArity(name, args, 0, 1); err != nil {
			return nil, err
		}
		t := e.clock()
		if len(args) == 1 {
			ms := args[0].AsNumber()
			if math.IsNaN(ms) || math.IsInf(ms, 0) {
				return nil, newError(KindInvalidArguments, name+"()", "%q is not a timestamp", args[0].AsString())
			}
			t = time.UnixMilli(int64(ms))
		}
		if utc {
			t = t.UTC()
		} else {
			t = t.Local()
		}
		return String(t.Format(layout)), nil
	}
}
