// Package app runs one report: resolve courses, aggregate their assignments
// and render the result.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/canvas-assignments/pkg/canvas"
	"github.com/Sternrassler/canvas-assignments/pkg/logging"
	"github.com/Sternrassler/canvas-assignments/pkg/record"
	"github.com/Sternrassler/canvas-assignments/pkg/render"
	"github.com/Sternrassler/canvas-assignments/pkg/schedule"
)

// DefaultTitle heads reports built from explicit course ids.
const DefaultTitle = "Courses & Assignments (sorted by due date)"

// DefaultMax is the default number of courses in a report.
const DefaultMax = 2

// ErrNoCourses is returned when course resolution yields nothing.
var ErrNoCourses = errors.New("no courses")

// Canvas is what a run needs from the Canvas API. *canvas.Service implements it.
type Canvas interface {
	schedule.AssignmentLister
	CoursesForTerm(ctx context.Context, term string, max int, source canvas.Source) ([]record.Record, error)
	CoursesByID(ctx context.Context, ids []int64, max int) ([]record.Record, error)
}

// Options select the courses and the output of a run.
type Options struct {
	// CourseIDs and Term are mutually exclusive.
	CourseIDs []int64
	Term      string

	Max    int
	Source canvas.Source
	Title  string
	Format render.Format
}

// ReportTitle returns the report title. A term search always names the term.
func (o Options) ReportTitle() string {
	if o.Term != "" {
		return o.Term + " " + DefaultTitle
	}
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

// App runs reports against one Canvas instance.
type App struct {
	canvas  Canvas
	builder *schedule.Builder
	logger  zerolog.Logger
}

// New creates an App.
func New(c Canvas) *App {
	return &App{
		canvas:  c,
		builder: schedule.NewBuilder(c),
		logger:  logging.NewLogger("app"),
	}
}

// Run resolves the courses, aggregates their assignments and renders them.
func (a *App) Run(ctx context.Context, opts Options) (string, error) {
	courses, err := a.resolveCourses(ctx, opts)
	if err != nil {
		return "", err
	}

	a.logger.Info().Int("courses", len(courses)).Msg("Courses selected")

	s, err := a.builder.Build(ctx, courses)
	if err != nil {
		return "", fmt.Errorf("aggregate assignments: %w", err)
	}

	out, err := render.Render(opts.Format, opts.ReportTitle(), s)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (a *App) resolveCourses(ctx context.Context, opts Options) ([]record.Record, error) {
	if len(opts.CourseIDs) > 0 {
		courses, err := a.canvas.CoursesByID(ctx, opts.CourseIDs, opts.Max)
		if err != nil {
			return nil, fmt.Errorf("fetch courses: %w", err)
		}
		if len(courses) == 0 {
			return nil, fmt.Errorf("%w fetched for ids %s: check IDs or permissions", ErrNoCourses, formatIDs(opts.CourseIDs))
		}
		return courses, nil
	}

	courses, err := a.canvas.CoursesForTerm(ctx, opts.Term, opts.Max, opts.Source)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w found for term containing %q", ErrNoCourses, opts.Term)
	}
	return courses, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}

// Emit writes out to path, or to stdout when path is empty. Writing a file
// prints "Wrote <path>" to stdout.
func Emit(out, path string, stdout io.Writer) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, out)
		return err
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err := fmt.Fprintf(stdout, "Wrote %s\n", path)
	return err
}
