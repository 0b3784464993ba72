// Command canvas-assignments prints the assignments of a few Canvas courses,
// grouped by course and sorted by due date.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/canvas-assignments/internal/app"
	"github.com/Sternrassler/canvas-assignments/internal/config"
	"github.com/Sternrassler/canvas-assignments/pkg/canvas"
	"github.com/Sternrassler/canvas-assignments/pkg/client"
	"github.com/Sternrassler/canvas-assignments/pkg/logging"
	"github.com/Sternrassler/canvas-assignments/pkg/metrics"
	"github.com/Sternrassler/canvas-assignments/pkg/ratelimit"
	"github.com/Sternrassler/canvas-assignments/pkg/render"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitNoCourses = 3
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type options struct {
	configPath string
	courses    []int64
	term       string
	max        int
	source     string
	title      string
	format     string
	out        string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its error to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, "Error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "canvas-assignments",
		Short: "Show Canvas assignments grouped by course, sorted by due date",
		Long: `canvas-assignments lists the assignments of a few Canvas LMS courses,
grouped by course and sorted by due date. Courses are chosen either by id
(--courses) or by a term name substring (--term).

Credentials come from CANVAS_BASE_URL and CANVAS_TOKEN, or from the
canvas.base_url and canvas.token keys of the config file.`,
		Example: `  canvas-assignments --courses 12345 67890
  canvas-assignments --term "Spring 2025" --format md --out schedule.md`,
		Args:          courseArgs(opts),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: ./config.yaml, ~/.canvas-assignments/config.yaml)")
	flags.Int64SliceVar(&opts.courses, "courses", nil, "course ids, e.g. --courses 12345,67890")
	flags.StringVar(&opts.term, "term", "", `term name substring, e.g. "Spring 2025"`)
	flags.IntVar(&opts.max, "max", app.DefaultMax, "max number of courses")
	flags.StringVar(&opts.source, "source", string(canvas.SourceCourses), "endpoint to list courses first (courses|self)")
	flags.StringVar(&opts.title, "title", app.DefaultTitle, "report title (ignored with --term)")
	flags.StringVar(&opts.format, "format", string(render.FormatText), "output format (text|md|html|csv)")
	flags.StringVar(&opts.out, "out", "", "write output to file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error), overrides logging.level")

	cmd.MarkFlagsMutuallyExclusive("courses", "term")
	cmd.MarkFlagsOneRequired("courses", "term")

	return cmd
}

// courseArgs accepts positional arguments only as extra course ids after
// --courses, so "--courses 12345 67890" selects both courses.
func courseArgs(opts *options) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return nil
		}
		if !cmd.Flags().Changed("courses") {
			return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid course id %q: %w", arg, err)
			}
			opts.courses = append(opts.courses, id)
		}
		return nil
	}
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	if opts.max < 1 {
		return fmt.Errorf("--max must be >= 1 (got %d)", opts.max)
	}
	source, err := canvas.ParseSource(opts.source)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.logLevel != "" && !logging.ValidLevel(opts.logLevel) {
		return fmt.Errorf("invalid --log-level %q", opts.logLevel)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return &exitError{code: exitConfig, err: fmt.Errorf("failed to load config: %w", err)}
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(level),
		Format: logging.Format(cfg.Logging.Format),
		Output: os.Stderr,
	})

	clientCfg := cfg.ClientConfig()
	if cfg.Redis.Addr != "" {
		if tracker, closeRedis := newTracker(ctx, cfg, logger); tracker != nil {
			defer func() {
				if err := closeRedis(); err != nil {
					logger.Warn().Err(err).Msg("Failed to close Redis client")
				}
			}()
			clientCfg.Pacer = tracker
		}
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return &exitError{code: exitConfig, err: fmt.Errorf("failed to create Canvas client: %w", err)}
	}

	if cfg.Metrics.Textfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				logger.Warn().Err(err).Msg("Failed to write metrics textfile")
			}
		}()
	}

	out, err := app.New(canvas.NewService(c)).Run(ctx, app.Options{
		CourseIDs: opts.courses,
		Term:      opts.term,
		Max:       opts.max,
		Source:    source,
		Title:     opts.title,
		Format:    format,
	})
	if err != nil {
		if errors.Is(err, app.ErrNoCourses) {
			return &exitError{code: exitNoCourses, err: err}
		}
		return err
	}

	return app.Emit(out, opts.out, stdout)
}

// newTracker connects to Redis for shared pacing and returns the tracker with
// a func that closes the connection. It returns a nil tracker when Redis does
// not answer; the run continues without pacing.
func newTracker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*ratelimit.Tracker, func() error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, continuing without shared rate limiting")
		_ = redisClient.Close()
		return nil, nil
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis for shared rate limiting")

	scope := cfg.Canvas.BaseURL
	if u, err := url.Parse(cfg.Canvas.BaseURL); err == nil && u.Host != "" {
		scope = u.Host
	}

	tracker := ratelimit.NewTracker(redisClient, ratelimit.DefaultConfig(scope),
		logger.With().Str("component", "ratelimit").Logger())
	return tracker, redisClient.Close
}
