package formatter

type GeneralFindingFormatter struct{}

func (f *GeneralFindingFormatter) FindingTemplate() string {
	return `{{header .Rule .Severity .MaxOffsetWidth .Filename .Start .End -}}
{{snippet .Window .MaxOffsetWidth .Padding -}}
{{underlineAndMessage .Message .Padding .Window}}
`
}

// DocumentFindingFormatter renders findings that cover a whole document.
type DocumentFindingFormatter struct{}

func (f *DocumentFindingFormatter) FindingTemplate() string {
	return `{{header .Rule .Severity .MaxOffsetWidth .Filename .Start .End -}}
{{message .Message .Padding -}}
{{ if .Note }}{{note .Note}}{{ end }}
`
}
