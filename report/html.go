package report

import (
	"html/template"
	"io"
	"time"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Capital Gains Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; font-size: 12px; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; white-space: nowrap; }
th { background: #f0f0f0; }
td:nth-child(-n+5) { text-align: left; }
tr:nth-child(even) { background: #fafafa; }
.meta { color: #777; font-size: 11px; margin-top: 1em; }
</style>
</head>
<body>
<h1>Capital Gains Report</h1>
<table>
<thead>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Records}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<p class="meta">Generated {{.GeneratedAt}}. Tax figures are estimates only.</p>
</body>
</html>
`))

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, records []Record) error {
	return htmlTemplate.Execute(w, struct {
		Columns     []string
		Records     []Record
		GeneratedAt string
	}{
		Columns:     Columns,
		Records:     records,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	})
}
