package formatter

import (
	"errors"
	"strings"

	"github.com/gnoswap-labs/gpath/pattern"
	"github.com/gnoswap-labs/gpath/query"
)

// FormatError renders err. Syntax errors in GPath expressions and patterns
// point a caret at the offending offset of src.
func FormatError(src string, err error) string {
	pos := -1
	var perr *pattern.ParseError
	var serr *query.SyntaxError
	switch {
	case errors.As(err, &perr):
		pos = perr.Pos
	case errors.As(err, &serr):
		pos = serr.Pos
		if src == "" {
			src = serr.Source
		}
	}

	endString := errorStyle.Sprint("error: ") + messageStyle.Sprintf("%s\n", err)
	if src == "" || pos < 0 || pos > len(src) {
		return endString
	}

	line := strings.NewReplacer("\n", " ", "\t", " ", "\r", " ").Replace(src)
	endString += lineStyle.Sprint("  |\n")
	endString += lineStyle.Sprint("  | ") + noStyle.Sprintf("%s\n", line)
	endString += lineStyle.Sprint("  | ") + strings.Repeat(" ", visualWidth(line[:pos]))
	endString += messageStyle.Sprint("^") + "\n"
	return endString
}
