package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCourseName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Intro to X (Spring 2025)", "Intro to X"},
		{"Biology 101 (Jan - May 2025)", "Biology 101"},
		{"History (Fall Session B)", "History"},
		{"History (winter intersession)", "History"},
		{"CHEM-1010-01-30797", "CHEM-1010"},
		{"ENGL-2010-ON1-12345 Composition", "ENGL-2010 Composition"},
		{"ENGL-2010-on-123456", "ENGL-2010"},
		{"MATH-1050-01-30797 (Spring 2025)", "MATH-1050"},
		{"  Lots   of \t space  ", "Lots of space"},
		{"A (x 2023) (Fall 2024)", "A"},
		{"(Spring 2025)", "Untitled"},
		{"", "Untitled"},
		{"   ", "Untitled"},
		{"Section -1-12345 stays", "Section -1-12345 stays"},
		{"Physics (Honors)", "Physics (Honors)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCourseName(tt.input))
		})
	}
}

func TestCleanCourseName_Idempotent(t *testing.T) {
	inputs := []string{
		"Intro to X (Spring 2025)",
		"A (x 2023) (Fall 2024)",
		"MATH-1050-01-30797-02-40000 (Summer 2024)",
		"Art (Winter Term) (Spring 2025)",
		"Plain name",
		"  spaced\t\tout  ",
		"",
		"((2025))",
		"X-ON-99999-ON2-88888",
	}

	for _, in := range inputs {
		once := CleanCourseName(in)
		assert.Equal(t, once, CleanCourseName(once), "input %q", in)
	}
}

func TestCleanCourseName_RoundTrip(t *testing.T) {
	for _, in := range []string{"Intro to X", "Data Structures & Algorithms", "Physics (Honors)", "CS 101"} {
		assert.Equal(t, in, CleanCourseName(in))
	}
	assert.Equal(t, "Data Structures", CleanCourseName("Data   Structures"))
}
