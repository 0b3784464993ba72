package canvas

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/canvas-assignments/pkg/client"
	"github.com/Sternrassler/canvas-assignments/pkg/logging"
	"github.com/Sternrassler/canvas-assignments/pkg/pagination"
	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

const (
	coursesPath     = "/api/v1/courses"
	selfCoursesPath = "/api/v1/users/self/courses"

	pageSize = "100"
)

// Source selects which course listing endpoint is tried first.
type Source string

const (
	// SourceCourses tries /api/v1/courses first.
	SourceCourses Source = "courses"

	// SourceSelf tries /api/v1/users/self/courses first.
	SourceSelf Source = "self"
)

// ErrInvalidSource is returned for an unknown Source.
var ErrInvalidSource = errors.New("source must be \"courses\" or \"self\"")

// ParseSource validates s.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceCourses, SourceSelf:
		return src, nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrInvalidSource, s)
	}
}

func (s Source) endpoints() []string {
	if s == SourceSelf {
		return []string{selfCoursesPath, coursesPath}
	}
	return []string{coursesPath, selfCoursesPath}
}

// API is the transport the service needs. *client.Client implements it.
type API interface {
	pagination.Fetcher
	URL(path string) string
}

// Service resolves courses and lists assignments.
type Service struct {
	api       API
	paginator *pagination.Paginator
	logger    zerolog.Logger
}

// NewService creates a service on top of api.
func NewService(api API) *Service {
	return &Service{
		api:       api,
		paginator: pagination.New(api),
		logger:    logging.NewLogger("canvas"),
	}
}

func courseListParams() url.Values {
	return url.Values{
		"enrollment_type[]":  {"student"},
		"enrollment_state[]": {"active", "completed"},
		"include[]":          {"term"},
		"per_page":           {pageSize},
	}
}

// CoursesForTerm returns up to max courses whose term name contains term,
// compared case-insensitively. max <= 0 means no limit.
//
// The endpoints are tried in the order given by source. A server error or an
// empty result moves on to the next endpoint; any other error is returned.
// When every endpoint comes up empty the result is empty and err is nil.
func (s *Service) CoursesForTerm(ctx context.Context, term string, max int, source Source) ([]record.Record, error) {
	for _, endpoint := range source.endpoints() {
		courses, err := s.coursesForTerm(ctx, endpoint, term, max)
		if err != nil {
			if !client.IsServerError(err) {
				return nil, fmt.Errorf("list courses from %s: %w", endpoint, err)
			}
			s.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Msg("Course listing failed with a server error, trying next endpoint")
			continue
		}
		if len(courses) > 0 {
			return courses, nil
		}
		s.logger.Debug().
			Str("endpoint", endpoint).
			Str("term", term).
			Msg("No matching courses, trying next endpoint")
	}
	return nil, nil
}

func (s *Service) coursesForTerm(ctx context.Context, endpoint, term string, max int) ([]record.Record, error) {
	needle := strings.ToLower(term)

	var matches []record.Record
	for course, err := range s.paginator.All(ctx, s.api.URL(endpoint), courseListParams()) {
		if err != nil {
			return nil, err
		}
		termName := course.Object("term").String("name", "")
		if !strings.Contains(strings.ToLower(termName), needle) {
			continue
		}
		matches = append(matches, course)
		if max > 0 && len(matches) >= max {
			break
		}
	}
	return matches, nil
}

// Course fetches a single course with its term. A non-2xx response is
// returned as a *client.HTTPError.
func (s *Service) Course(ctx context.Context, id int64) (record.Record, error) {
	rawURL := s.api.URL(coursesPath + "/" + strconv.FormatInt(id, 10))

	resp, err := s.api.Fetch(ctx, rawURL, url.Values{"include[]": {"term"}})
	if err != nil {
		return nil, fmt.Errorf("fetch course %d: %w", id, err)
	}
	if !resp.OK() {
		return nil, resp.StatusError()
	}

	body, err := resp.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode course %d: %w", id, err)
	}
	course, ok := record.FromValue(body)
	if !ok {
		return nil, fmt.Errorf("decode course %d: unexpected response body type %T", id, body)
	}
	return course, nil
}

// CoursesByID fetches the first max ids (all of them when max <= 0). A course
// that cannot be fetched is logged and skipped. Cancellation stops the loop
// and is returned.
func (s *Service) CoursesByID(ctx context.Context, ids []int64, max int) ([]record.Record, error) {
	if max > 0 && len(ids) > max {
		ids = ids[:max]
	}

	courses := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		course, err := s.Course(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return courses, ctx.Err()
			}
			event := s.logger.Warn().Err(err).Int64("course_id", id)
			if code := client.StatusCode(err); code != 0 {
				event = event.Int("status_code", code)
			}
			event.Msg("Failed to fetch course")
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Assignments lists the assignments of a course. Records whose published
// field is present and false (or null) are dropped.
func (s *Service) Assignments(ctx context.Context, courseID int64) ([]record.Record, error) {
	rawURL := s.api.URL(coursesPath + "/" + strconv.FormatInt(courseID, 10) + "/assignments")

	var assignments []record.Record
	for a, err := range s.paginator.All(ctx, rawURL, url.Values{"per_page": {pageSize}}) {
		if err != nil {
			return nil, fmt.Errorf("list assignments for course %d: %w", courseID, err)
		}
		if unpublished(a) {
			continue
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func unpublished(a record.Record) bool {
	v, ok := a["published"]
	if !ok {
		return false
	}
	if v == nil {
		return true
	}
	b, isBool := v.(bool)
	return isBool && !b
}
