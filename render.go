package main

import (
	"io"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/evan-buss/opds-client/internal/formats"
	"github.com/evan-buss/opds-client/opds"
)

const feedText = `{{ .Title }}
{{ repeat (len .Title) "=" }}
Path: {{ join " > " .Breadcrumbs }}
{{- if .Navigation }}
{{ range $i, $e := .Navigation.Entries }}
[{{ $i }}] {{ $e.Title }}
{{- with $e.Content }}
    {{ trunc 100 (plain .) }}
{{- end }}
{{- end }}
{{- end }}
{{- if .Acquisition }}
{{- with .Acquisition.TotalResults }}
{{ . }} total results
{{- end }}
{{ range $i, $e := .Acquisition.Entries }}
[{{ $i }}] {{ $e.Title }}
{{- with $e.Authors }}
    by {{ join ", " . }}
{{- end }}
{{- with $e.Publisher }}
    published by {{ . }}
{{- end }}
{{- range $e.Formats }}
    {{ upper .Type }} ({{ displaySize .Size }})
{{- end }}
{{- if not $e.Formats }}
    no downloadable formats
{{- end }}
{{- end }}
{{- if .Acquisition.NextURL }}
(more results on next page)
{{- end }}
{{- end }}
`

var feedTmpl = template.Must(
	template.New("feed").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{
			"displaySize": formats.DisplaySize,
			"plain":       plainText,
		}).
		Parse(feedText),
)

type feedParams struct {
	Title       string
	Breadcrumbs []string
	Navigation  *opds.NavigationFeed
	Acquisition *opds.AcquisitionFeed
}

// renderFeed writes a terminal listing of the current feed
func renderFeed(w io.Writer, res *opds.Result, breadcrumbs []string) error {
	params := feedParams{
		Title:       res.Title(),
		Breadcrumbs: breadcrumbs,
		Navigation:  res.Navigation,
		Acquisition: res.Acquisition,
	}
	return feedTmpl.Execute(w, params)
}

// plainText flattens summaries to a single line. Summaries are opaque
// pass-through text and may contain markup or newlines.
func plainText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
