// Package canvas fetches courses and assignments from the Canvas LMS REST API.
//
// It sits on top of the retrying HTTP client (pkg/client) and the Link-header
// paginator (pkg/pagination) and returns opaque records (pkg/record). Course
// discovery by term tries two listing endpoints in a fixed fallback order:
//
//	svc := canvas.NewService(c)
//	courses, err := svc.CoursesForTerm(ctx, "Spring 2025", 2, canvas.SourceCourses)
//
// Assignments are listed per course with unpublished ones removed:
//
//	assignments, err := svc.Assignments(ctx, courseID)
package canvas
