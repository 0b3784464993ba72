package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/canvas-assignments/internal/config"
	"github.com/Sternrassler/canvas-assignments/internal/testutil"
)

// setupEnv points the CLI at baseURL with an empty config file and returns
// the config path.
func setupEnv(t *testing.T, baseURL, token string) string {
	t.Helper()

	t.Setenv("CANVAS_BASE_URL", baseURL)
	t.Setenv("CANVAS_TOKEN", token)
	t.Setenv("CANVAS_ASSIGNMENTS_REDIS_ADDR", "")
	t.Setenv("CANVAS_ASSIGNMENTS_METRICS_TEXTFILE", "")
	t.Setenv("CANVAS_ASSIGNMENTS_LOGGING_FORMAT", "json")
	t.Setenv("CANVAS_ASSIGNMENTS_LOGGING_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newCanvas(t *testing.T) *testutil.MockCanvas {
	t.Helper()

	mock := testutil.NewMockCanvas()
	t.Cleanup(mock.Close)

	mock.SetResponses("/api/v1/courses/1",
		testutil.NewJSONResponse(`{"id": 1, "name": "Intro to X (Spring 2025)", "term": {"name": "Spring 2025"}}`))
	mock.SetResponses("/api/v1/courses/1/assignments",
		testutil.NewJSONResponse(`[
			{"name": "Final", "due_at": null},
			{"name": "Draft", "due_at": "2025-01-01T00:00:00Z", "published": false},
			{"name": "HW1", "due_at": "2025-03-01T00:00:00Z", "published": true}
		]`))
	mock.SetResponses("/api/v1/courses",
		testutil.NewJSONResponse(`[{"id": 1, "name": "Intro to X (Spring 2025)", "term": {"name": "Spring 2025"}}]`))
	return mock
}

func TestExecute_ExplicitCourses(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--courses", "1,404")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	want := "Courses & Assignments (sorted by due date)\n\n" +
		"Course: Intro to X (ID: 1)\n" +
		"- \"HW1\" | Due: 2025-03-01\n" +
		"- \"Final\" | Due: No due date\n\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}

	for _, req := range mock.Requests() {
		if got := req.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q on %s", got, req.Path)
		}
	}
	if mock.RequestCount("/api/v1/courses/404") != 1 {
		t.Error("expected one request for the failing course")
	}
}

func TestExecute_SpaceSeparatedCourses(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--courses", "1", "404")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "Course: Intro to X (ID: 1)") {
		t.Errorf("stdout = %q", stdout)
	}
	if mock.RequestCount("/api/v1/courses/404") != 1 {
		t.Error("expected the second id to be fetched")
	}
}

func TestExecute_TermToFile(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")
	out := filepath.Join(t.TempDir(), "schedule.csv")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--term", "spring 2025", "--format", "csv", "--out", out)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if stdout != "Wrote "+out+"\n" {
		t.Errorf("stdout = %q", stdout)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "course_id,course_name,assignment,due_date\n" +
		"1,Intro to X,HW1,2025-03-01\n" +
		"1,Intro to X,Final,No due date"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestExecute_MissingCredentials(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, "", "")

	code, _, stderr := runCLI(t, "--config", cfgPath, "--courses", "1")
	if code != exitConfig {
		t.Errorf("exit code = %d, want %d", code, exitConfig)
	}
	if !strings.Contains(stderr, "CANVAS_BASE_URL") {
		t.Errorf("stderr = %q, want it to name the missing variable", stderr)
	}
	if mock.TotalRequests() != 0 {
		t.Error("no request may be sent without credentials")
	}
}

func TestExecute_NoCourses(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--courses", "8,9")
	if code != exitNoCourses {
		t.Errorf("exit code = %d, want %d", code, exitNoCourses)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	if !strings.Contains(stderr, "8, 9") {
		t.Errorf("stderr = %q", stderr)
	}

	mock.SetResponses("/api/v1/users/self/courses", testutil.NewJSONResponse(`[]`))
	code, _, stderr = runCLI(t, "--config", cfgPath, "--term", "Winter 1999")
	if code != exitNoCourses {
		t.Errorf("exit code = %d, want %d", code, exitNoCourses)
	}
	if !strings.Contains(stderr, "Winter 1999") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExecute_FlagErrors(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")

	tests := []struct {
		name string
		args []string
	}{
		{"neither courses nor term", []string{"--config", cfgPath}},
		{"both courses and term", []string{"--config", cfgPath, "--courses", "1", "--term", "x"}},
		{"unknown format", []string{"--config", cfgPath, "--courses", "1", "--format", "pdf"}},
		{"unknown source", []string{"--config", cfgPath, "--term", "x", "--source", "teachers"}},
		{"bad course id", []string{"--config", cfgPath, "--courses", "abc"}},
		{"positional args without courses", []string{"--config", cfgPath, "--term", "x", "extra"}},
		{"bad positional course id", []string{"--config", cfgPath, "--courses", "1", "extra"}},
		{"zero max", []string{"--config", cfgPath, "--courses", "1", "--max", "0"}},
		{"negative max", []string{"--config", cfgPath, "--term", "x", "--max", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			if code != exitFailure {
				t.Errorf("exit code = %d, want %d", code, exitFailure)
			}
		})
	}

	if mock.TotalRequests() != 0 {
		t.Errorf("flag errors must not reach Canvas, got %d requests", mock.TotalRequests())
	}
}

func TestExecute_MetricsTextfile(t *testing.T) {
	mock := newCanvas(t)
	cfgPath := setupEnv(t, mock.URL(), "secret")
	promPath := filepath.Join(t.TempDir(), "canvas.prom")
	t.Setenv("CANVAS_ASSIGNMENTS_METRICS_TEXTFILE", promPath)

	code, _, stderr := runCLI(t, "--config", cfgPath, "--courses", "1")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	data, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "canvas_requests_total") {
		t.Errorf("metrics textfile missing canvas_requests_total:\n%s", data)
	}
}

func TestNewTracker_UnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &config.Config{}
	cfg.Canvas.BaseURL = "https://canvas.example.edu"
	cfg.Redis.Addr = "127.0.0.1:1"

	tracker, closeRedis := newTracker(ctx, cfg, zerolog.Nop())
	if tracker != nil {
		t.Error("expected no tracker when Redis does not answer")
	}
	if closeRedis != nil {
		t.Error("expected no closer when Redis does not answer")
	}
}

func TestNewTracker_ReturnsCloser(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	cfg := &config.Config{}
	cfg.Canvas.BaseURL = "https://canvas.example.edu"
	cfg.Redis.Addr = addr
	cfg.Redis.DB = 15

	tracker, closeRedis := newTracker(context.Background(), cfg, zerolog.Nop())
	if tracker == nil {
		t.Skipf("Redis not available at %s", addr)
	}
	if closeRedis == nil {
		t.Fatal("expected a closer with a connected tracker")
	}
	if err := closeRedis(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// A closed client reports it on the second close.
	if err := closeRedis(); err == nil {
		t.Error("expected the Redis client to be closed")
	}
}
