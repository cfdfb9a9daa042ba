// Package reporter periodically logs a summary of the engine's error statistics
// and refreshes the tracker gauges.
package reporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/metrics"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// StatsSource provides tracker snapshots.
type StatsSource interface {
	Stats() tracker.Stats
}

// Summary is what one report observed.
type Summary struct {
	Total    int
	Recent   int
	Keys     int
	TopKey   string
	TopCount int
}

// Options configures a Reporter.
type Options struct {
	Interval time.Duration
	Recorder metrics.Recorder
	Logger   *slog.Logger
	Clock    clockwork.Clock
	// StartImmediately runs the first report on Start instead of after one interval.
	StartImmediately bool
}

// Reporter wraps a gocron scheduler running the summary job.
type Reporter struct {
	source    StatsSource
	opts      Options
	scheduler gocron.Scheduler

	mu   sync.Mutex
	last Summary
	runs int
}

// New creates a reporter and registers its job. It does not start until Start.
func New(source StatsSource, opts Options) (*Reporter, error) {
	if source == nil {
		return nil, ferrors.ValidationError("stats source is required").Build()
	}
	if opts.Interval <= 0 {
		return nil, ferrors.ValidationError("report interval must be positive").
			WithContext("interval", opts.Interval.String()).
			Build()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	schedOpts := []gocron.SchedulerOption{}
	if opts.Clock != nil {
		schedOpts = append(schedOpts, gocron.WithClock(opts.Clock))
	}
	s, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create scheduler").Build()
	}

	r := &Reporter{source: source, opts: opts, scheduler: s}

	jobOpts := []gocron.JobOption{gocron.WithName("stats-report")}
	if opts.StartImmediately {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	if _, err := s.NewJob(gocron.DurationJob(opts.Interval), gocron.NewTask(r.report), jobOpts...); err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create stats report job").Build()
	}
	return r, nil
}

// Start begins the schedule.
func (r *Reporter) Start() {
	r.opts.Logger.Info("Starting stats reporter", logfields.Window(r.opts.Interval))
	r.scheduler.Start()
}

// Stop shuts the scheduler down and waits for a running report to finish.
func (r *Reporter) Stop() error {
	r.opts.Logger.Info("Stopping stats reporter")
	if err := r.scheduler.Shutdown(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to stop scheduler").Build()
	}
	return nil
}

// Last returns the most recent summary and the number of reports run.
func (r *Reporter) Last() (Summary, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.runs
}

func (r *Reporter) report() {
	s := ReportOnce(context.Background(), r.source, r.opts.Recorder, r.opts.Logger)
	r.mu.Lock()
	r.last = s
	r.runs++
	r.mu.Unlock()
}

// ReportOnce logs one summary and updates the gauges.
func ReportOnce(ctx context.Context, source StatsSource, recorder metrics.Recorder, logger *slog.Logger) Summary {
	stats := source.Stats()
	s := Summary{
		Total:  stats.TotalErrors,
		Recent: stats.RecentErrors,
		Keys:   len(stats.ErrorsByCode),
	}
	for key, e := range stats.ErrorsByCode {
		if e.Count > s.TopCount || (e.Count == s.TopCount && key < s.TopKey) {
			s.TopKey, s.TopCount = key, e.Count
		}
	}

	recorder.SetRecentErrors(s.Recent)
	recorder.SetTrackedKeys(s.Keys)

	if s.Total == 0 {
		logger.DebugContext(ctx, "No API errors recorded")
		return s
	}
	logger.InfoContext(ctx, "API error summary",
		slog.Int("total", s.Total),
		slog.Int("recent", s.Recent),
		slog.Int("keys", s.Keys),
		logfields.Key(s.TopKey),
		logfields.Count(s.TopCount))
	return s
}
