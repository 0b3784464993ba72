package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/Sternrassler/canvas-assignments/pkg/schedule"
)

var htmlTemplate = template.Must(template.New("schedule").Parse(`<!doctype html>
<html><head><meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif; margin:24px; color:#111}
h1{font-size:24px; margin:0 0 16px}
h2{font-size:18px; margin:24px 0 8px}
table{border-collapse:collapse; width:100%; margin-bottom:12px}
th,td{border:1px solid #ddd; padding:8px; vertical-align:top}
th{background:#f7f7f7; text-align:left}
.muted{color:#666; font-style:italic}
.container{max-width:960px; margin:0 auto}
</style></head><body><div class="container">
<h1>{{.Title}}</h1>
{{range .Courses -}}
<h2>Course: {{.Name}} (ID: {{.ID}})</h2><table><thead><tr><th>Assignment</th><th>Due</th></tr></thead><tbody>
{{- range .Rows}}<tr><td>{{.Name}}</td><td>{{.Due}}</td></tr>{{end -}}
</tbody></table>
{{- end}}</div></body></html>`))

type htmlRow struct {
	Name string
	Due  string
}

type htmlCourse struct {
	ID   int64
	Name string
	Rows []htmlRow
}

type htmlPage struct {
	Title   string
	Courses []htmlCourse
}

// HTML renders a standalone page with one table per course. All text is
// escaped by html/template.
func HTML(title string, s schedule.Schedule) (string, error) {
	page := htmlPage{Title: title, Courses: make([]htmlCourse, 0, len(s.Courses))}
	for _, c := range s.Courses {
		hc := htmlCourse{ID: c.ID, Name: c.DisplayName()}
		for _, a := range s.AssignmentsFor(c.ID) {
			hc.Rows = append(hc.Rows, htmlRow{Name: a.Name, Due: a.DueDate()})
		}
		page.Courses = append(page.Courses, hc)
	}

	var b strings.Builder
	if err := htmlTemplate.Execute(&b, page); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return b.String(), nil
}
