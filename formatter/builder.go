package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fatih/color"
	"golang.org/x/text/width"

	"github.com/gnoswap-labs/gpath/document"
	tt "github.com/gnoswap-labs/gpath/internal/types"
)

// contextTokens is the number of tokens shown on each side of a finding.
const contextTokens = 4

const ellipsis = "..."

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
	noStyle         = color.New(color.FgWhite)
)

// findingFormatter provides the text template used to render one finding.
type findingFormatter interface {
	FindingTemplate() string
}

// getFindingFormatter picks the template for f. Query findings covering
// the whole document have nothing to point at and are rendered without a
// snippet.
func getFindingFormatter(f tt.Finding, doc document.Document) findingFormatter {
	if f.Kind == tt.KindQuery && doc != nil && f.Start == 0 && f.End == doc.Size() {
		return &DocumentFindingFormatter{}
	}
	return &GeneralFindingFormatter{}
}

// GenerateFormattedFindings renders the findings of one document. doc may
// be nil when the document could not be loaded; snippets are then omitted.
func GenerateFormattedFindings(findings []tt.Finding, doc document.Document) string {
	var builder strings.Builder
	for _, f := range findings {
		builder.WriteString(buildFinding(f, doc, getFindingFormatter(f, doc)))
	}
	return builder.String()
}

/***** Finding Formatter Builder *****/

type FindingData struct {
	Severity       string
	Rule           string
	Kind           string
	Filename       string
	Start          int
	End            int
	Message        string
	Note           string
	Padding        string
	MaxOffsetWidth int
	Window         Window
}

// Window is the part of a document shown around a finding.
type Window struct {
	Valid bool
	// From is the offset of the first token shown.
	From int
	Line string
	// UnderlineStart and UnderlineWidth are visual columns within Line.
	UnderlineStart int
	UnderlineWidth int
}

func buildFinding(f tt.Finding, doc document.Document, formatter findingFormatter) string {
	w := window(doc, f.Start, f.End)
	maxOffsetWidth := calculateMaxOffsetWidth(f.End)
	padding := strings.Repeat(" ", maxOffsetWidth+1)

	data := FindingData{
		Severity:       f.Severity.String(),
		Rule:           f.Rule,
		Kind:           string(f.Kind),
		Filename:       f.Filename,
		Start:          f.Start,
		End:            f.End,
		Message:        f.Message,
		Note:           truncate(f.Value, 60),
		Padding:        padding,
		MaxOffsetWidth: maxOffsetWidth,
		Window:         w,
	}

	funcMap := template.FuncMap{
		"header":              header,
		"snippet":             snippet,
		"underlineAndMessage": underlineAndMessage,
		"message":             message,
		"note":                note,
	}

	tmpl := template.Must(template.New("finding").Funcs(funcMap).Parse(formatter.FindingTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting finding: %v", err)
	}
	return buf.String()
}

// window lays out the tokens around [start, end) on one line. Token spacing
// is collapsed to a single space so that newlines never break the snippet.
func window(doc document.Document, start, end int) Window {
	if doc == nil || start < 0 || end > doc.Size() || start > end {
		return Window{}
	}

	from := start - contextTokens
	if from < 0 {
		from = 0
	}
	to := end + contextTokens
	if to > doc.Size() {
		to = doc.Size()
	}

	var sb strings.Builder
	w := Window{Valid: true, From: from}
	if from > 0 {
		sb.WriteString(ellipsis + " ")
	}
	for i := from; i < to; i++ {
		if i == start {
			w.UnderlineStart = visualWidth(sb.String())
		}
		tok := doc.TokenAt(i)
		sb.WriteString(tok.Value)
		if i == end-1 && end > start {
			w.UnderlineWidth = visualWidth(sb.String()) - w.UnderlineStart
		}
		if i+1 < to && tok.Space != "" {
			sb.WriteString(" ")
		}
	}
	if start == to {
		w.UnderlineStart = visualWidth(sb.String())
	}
	if to < doc.Size() {
		sb.WriteString(" " + ellipsis)
	}
	w.Line = sb.String()
	return w
}

// utils functions used in the text templates

func header(rule, severity string, maxOffsetWidth int, filename string, start, end int) string {
	var endString string
	switch severity {
	case "ERROR":
		endString = errorStyle.Sprintf("error: ")
	case "WARNING":
		endString = warningStyle.Sprintf("warning: ")
	case "INFO":
		endString = infoStyle.Sprintf("info: ")
	}

	endString += ruleStyle.Sprintf("%s\n", rule)

	padding := strings.Repeat(" ", maxOffsetWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	endString += fileStyle.Sprintf("%s:[%d,%d)", filename, start, end)

	return endString + "\n"
}

func snippet(w Window, maxOffsetWidth int, padding string) string {
	if !w.Valid {
		return ""
	}
	endString := lineStyle.Sprintf("%s|\n", padding)
	offset := fmt.Sprintf("%*d", maxOffsetWidth, w.From)
	endString += lineStyle.Sprintf("%s | ", offset) + noStyle.Sprintf("%s\n", w.Line)
	return endString
}

func underlineAndMessage(message, padding string, w Window) string {
	endString := lineStyle.Sprintf("%s| ", padding)

	if !w.Valid {
		endString += messageStyle.Sprintf("%s\n", message)
		return endString
	}

	marker := "^"
	if w.UnderlineWidth > 0 {
		marker = strings.Repeat("~", w.UnderlineWidth)
	}
	endString += strings.Repeat(" ", w.UnderlineStart)
	endString += messageStyle.Sprintf("%s\n", marker)

	endString += lineStyle.Sprintf("%s= ", padding)
	endString += messageStyle.Sprintf("%s\n", message)

	return endString
}

func message(message, padding string) string {
	return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprintf("%s\n", message)
}

func note(note string) string {
	if note == "" {
		return ""
	}
	return suggestionStyle.Sprint("Note: ") + lineStyle.Sprintf("%s\n", note)
}

func calculateMaxOffsetWidth(end int) int {
	return len(fmt.Sprintf("%d", end))
}

// visualWidth counts terminal columns, two for East Asian wide runes.
func visualWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
