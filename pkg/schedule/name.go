package schedule

import (
	"regexp"
	"strings"
)

var (
	// "(Spring 2025)", "(Jan - May 2025)"
	yearAnnotation = regexp.MustCompile(`\s*\([^)]+?\d{4}\)\s*$`)

	// "(Fall Session B)"
	seasonAnnotation = regexp.MustCompile(`(?i)\s*\((?:Spring|Fall|Summer|Winter)[^)]+\)\s*$`)

	// "-01-30797", "-ON1-12345"
	sectionSuffix = regexp.MustCompile(`(?i)-(?:\d{2}|ON\d?)-\d{5,}`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// CleanCourseName strips term and section noise from a course name for
// display. Empty names become "Untitled". Applying it twice gives the same
// result as applying it once.
func CleanCourseName(name string) string {
	if strings.TrimSpace(name) == "" {
		return Untitled
	}

	for {
		cleaned := cleanOnce(name)
		if cleaned == name {
			break
		}
		name = cleaned
	}

	if name == "" {
		return Untitled
	}
	return name
}

func cleanOnce(name string) string {
	name = yearAnnotation.ReplaceAllString(name, "")
	name = seasonAnnotation.ReplaceAllString(name, "")
	name = sectionSuffix.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
