package schedule

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/canvas-assignments/pkg/logging"
	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

// AssignmentLister lists the assignments of one course.
// *canvas.Service implements it.
type AssignmentLister interface {
	Assignments(ctx context.Context, courseID int64) ([]record.Record, error)
}

// Builder aggregates assignments for a set of courses.
type Builder struct {
	lister AssignmentLister
	logger zerolog.Logger
}

// NewBuilder creates a builder that fetches through lister.
func NewBuilder(lister AssignmentLister) *Builder {
	return &Builder{
		lister: lister,
		logger: logging.NewLogger("schedule"),
	}
}

// Build fetches and sorts the assignments of every course. Records without an
// id are skipped. A course whose assignments cannot be fetched keeps an empty
// list; only context cancellation aborts the build.
func (b *Builder) Build(ctx context.Context, courses []record.Record) (Schedule, error) {
	s := Schedule{
		Courses:     make([]Course, 0, len(courses)),
		Assignments: make(map[int64][]Assignment, len(courses)),
	}

	for _, r := range courses {
		course, ok := NewCourse(r)
		if !ok {
			b.logger.Warn().Interface("course", r).Msg("Skipping course without an id")
			continue
		}
		if _, dup := s.Assignments[course.ID]; dup {
			b.logger.Debug().Int64("course_id", course.ID).Msg("Skipping duplicate course")
			continue
		}

		records, err := b.lister.Assignments(ctx, course.ID)
		if err != nil {
			if ctx.Err() != nil {
				return Schedule{}, ctx.Err()
			}
			b.logger.Warn().
				Err(err).
				Int64("course_id", course.ID).
				Msg("Failed to fetch assignments")
			records = nil
		}

		assignments := make([]Assignment, 0, len(records))
		for _, a := range records {
			assignments = append(assignments, NewAssignment(a))
		}

		s.Courses = append(s.Courses, course)
		s.Assignments[course.ID] = SortAssignments(assignments)

		b.logger.Debug().
			Int64("course_id", course.ID).
			Int("assignments", len(assignments)).
			Msg("Course assignments aggregated")
	}

	return s, nil
}
