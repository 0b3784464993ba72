// Package schedule turns Canvas course and assignment records into an ordered
// schedule: assignments sorted by due date, grouped by course.
package schedule

import (
	"strings"
	"time"

	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

// Untitled replaces empty course and assignment names.
const Untitled = "Untitled"

// Course is a course selected for the schedule.
type Course struct {
	ID   int64
	Name string
	Term string
}

// NewCourse builds a Course from a Canvas course record. ok is false when the
// record has no integer id.
func NewCourse(r record.Record) (Course, bool) {
	id, ok := r.Int("id")
	if !ok {
		return Course{}, false
	}
	return Course{
		ID:   id,
		Name: r.String("name", ""),
		Term: r.Object("term").String("name", ""),
	}, true
}

// DisplayName is the cleaned course name used in reports.
func (c Course) DisplayName() string {
	return CleanCourseName(c.Name)
}

// Assignment is the part of a Canvas assignment that reports need.
type Assignment struct {
	Name      string
	DueAt     string
	Due       time.Time
	HasDue    bool
	Published bool
}

// NewAssignment builds an Assignment from a Canvas assignment record.
func NewAssignment(r record.Record) Assignment {
	name := strings.TrimSpace(r.String("name", ""))
	if name == "" {
		name = Untitled
	}
	dueAt := r.String("due_at", "")
	due, ok := ParseDue(dueAt)
	return Assignment{
		Name:      name,
		DueAt:     dueAt,
		Due:       due,
		HasDue:    ok,
		Published: r.Bool("published", true),
	}
}

// DueDate returns the UTC calendar date of the due time, or "No due date".
func (a Assignment) DueDate() string {
	if !a.HasDue {
		return "No due date"
	}
	return a.Due.Format(time.DateOnly)
}

// Schedule is the ordered result of a run.
type Schedule struct {
	// Courses in selection order.
	Courses []Course

	// Assignments by course id, each list already sorted.
	Assignments map[int64][]Assignment
}

// AssignmentsFor returns the sorted assignments of course id.
func (s Schedule) AssignmentsFor(id int64) []Assignment {
	return s.Assignments[id]
}
