// Package render formats a schedule as plain text, Markdown, HTML or CSV.
// Renderers are pure: they never sort, fetch or write.
package render

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/canvas-assignments/pkg/schedule"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatText, FormatMarkdown, FormatHTML, FormatCSV}

// ErrUnknownFormat is returned for a format outside Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates s.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q (want text, md, html or csv)", ErrUnknownFormat, s)
}

// Render dispatches to the renderer for format.
func Render(format Format, title string, s schedule.Schedule) (string, error) {
	switch format {
	case FormatText, "":
		return Text(title, s), nil
	case FormatMarkdown:
		return Markdown(title, s), nil
	case FormatHTML:
		return HTML(title, s)
	case FormatCSV:
		return CSV(s)
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

func courseHeader(c schedule.Course) string {
	return fmt.Sprintf("Course: %s (ID: %d)", c.DisplayName(), c.ID)
}

// Text renders one block per course:
//
//	Course: Intro to X (ID: 1)
//	- "HW1" | Due: 2025-03-01
func Text(title string, s schedule.Schedule) string {
	lines := []string{title, ""}
	for _, c := range s.Courses {
		lines = append(lines, courseHeader(c))
		for _, a := range s.AssignmentsFor(c.ID) {
			lines = append(lines, fmt.Sprintf("- \"%s\" | Due: %s", a.Name, a.DueDate()))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Markdown renders a heading and a two-column table per course.
func Markdown(title string, s schedule.Schedule) string {
	lines := []string{"# " + title, ""}
	for _, c := range s.Courses {
		lines = append(lines,
			"## "+courseHeader(c),
			"| Assignment | Due |",
			"|---|---|",
		)
		for _, a := range s.AssignmentsFor(c.ID) {
			name := strings.ReplaceAll(a.Name, "|", `\|`)
			lines = append(lines, fmt.Sprintf("| %s | %s |", name, a.DueDate()))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// CSV renders course_id,course_name,assignment,due_date rows. Commas in names
// become spaces. Courses without assignments produce no rows.
func CSV(s schedule.Schedule) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"course_id", "course_name", "assignment", "due_date"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range s.Courses {
		id := strconv.FormatInt(c.ID, 10)
		courseName := strings.ReplaceAll(c.DisplayName(), ",", " ")
		for _, a := range s.AssignmentsFor(c.ID) {
			row := []string{id, courseName, strings.ReplaceAll(a.Name, ",", " "), a.DueDate()}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
