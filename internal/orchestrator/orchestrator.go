// Package orchestrator wires the pipeline together: enumerate the suite,
// partition it into shards, run the shards on the worker pool and merge the
// results into one SuiteReport.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/testshard/internal/aggregate"
	"github.com/AndreyAkinshin/testshard/internal/config"
	"github.com/AndreyAkinshin/testshard/internal/enumerate"
	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/executor"
	"github.com/AndreyAkinshin/testshard/internal/logging"
	"github.com/AndreyAkinshin/testshard/internal/metrics"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/output"
	"github.com/AndreyAkinshin/testshard/internal/partition"
	"github.com/AndreyAkinshin/testshard/internal/report"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// Orchestrator runs one configuration. The zero value is not usable; use New.
type Orchestrator struct {
	cfg       *config.Config
	log       *zap.Logger
	out       *output.Writer
	enum      enumerate.Enumerator
	exec      executor.Executor
	runID     string
	observers []scheduler.Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(log) }
}

// WithOutput prints shard progress to w.
func WithOutput(w *output.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithEnumerator replaces the enumerator built from the configuration.
func WithEnumerator(e enumerate.Enumerator) Option {
	return func(o *Orchestrator) { o.enum = e }
}

// WithExecutor replaces the process executor built from the configuration.
func WithExecutor(e executor.Executor) Option {
	return func(o *Orchestrator) { o.exec = e }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// WithObserver adds a scheduler observer.
func WithObserver(obs scheduler.Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// New creates an Orchestrator for cfg, which must have defaults applied
// and be valid.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return o
}

// RunID returns the identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run enumerates, partitions, schedules and aggregates. Test failures are
// reported in the SuiteReport, not as errors. An error means the run could
// not produce a trustworthy verdict; a report may still accompany an error
// from writing the report or metrics files.
func (o *Orchestrator) Run(ctx context.Context) (*model.SuiteReport, error) {
	cfg := o.cfg
	log := o.log.With(zap.String("run_id", o.runID))

	shards, err := o.Plan(ctx)
	if err != nil {
		return nil, err
	}
	runnable := make([]model.Shard, 0, len(shards))
	for _, s := range shards {
		if s.Len() > 0 {
			runnable = append(runnable, s)
		}
	}
	if skipped := len(shards) - len(runnable); skipped > 0 {
		log.Info("skipping empty shards", zap.Int("empty", skipped), zap.Int("shards", len(shards)))
	}

	exec := o.exec
	if exec == nil {
		exec, err = NewExecutor(cfg, o.runID, log)
		if err != nil {
			return nil, err
		}
	}
	policy, err := scheduler.ParsePolicy(cfg.FailFastPolicy)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	var rec *metrics.Recorder
	observers := append([]scheduler.Observer(nil), o.observers...)
	if cfg.MetricsFile != "" {
		rec = metrics.New()
		observers = append(observers, rec)
	}
	if o.out != nil {
		observers = append(observers, newProgress(o.out, runnable))
	}

	sched := scheduler.New(scheduler.Config{
		Workers:  cfg.WorkerCount,
		Retries:  cfg.Retry,
		FailFast: cfg.FailFast,
		Policy:   policy,
		Timeout:  timeout,
	}, exec, scheduler.WithLogger(log), scheduler.WithObserver(fanout(observers)))

	start := time.Now()
	outcome, err := sched.Run(ctx, runnable)
	if err != nil {
		return nil, err
	}
	wall := time.Since(start)

	rep, err := aggregate.Aggregate(outcome.Results)
	if err != nil {
		return nil, err
	}
	aggregate.Finalize(rep, outcome.States, outcome.Attempts, outcome.CancelReason)
	rep.RunID = o.runID
	rep.Duration = wall

	log.Info("run finished",
		zap.String("status", string(rep.Status)),
		zap.Int("tests", rep.Total),
		zap.Int("failed", rep.Counts.Fail+rep.Counts.Error),
		zap.Int("workers", outcome.Workers),
		zap.Duration("duration", wall))

	if rec != nil {
		rec.SetWorkers(outcome.Workers)
		rec.ObserveReport(rep)
		if err := rec.WriteFile(cfg.MetricsFile); err != nil {
			return rep, tserrors.Infrastructure(err, "failed to write metrics")
		}
	}
	if cfg.Report != "" {
		format, err := report.ParseFormat(cfg.ReportFormat)
		if err != nil {
			return rep, tserrors.WrapConfig(err, "invalid report format")
		}
		if err := report.Write(cfg.Report, rep, format); err != nil {
			return rep, tserrors.Infrastructure(err, "failed to write report")
		}
		log.Debug("report written", zap.String("path", cfg.Report))
	}
	return rep, nil
}

// Plan enumerates the suite and partitions it into the configured number of
// shards without running anything. An empty suite is a discovery error.
func (o *Orchestrator) Plan(ctx context.Context) ([]model.Shard, error) {
	cfg := o.cfg
	enum := o.enum
	if enum == nil {
		var err error
		enum, err = NewEnumerator(cfg, o.log)
		if err != nil {
			return nil, err
		}
	}

	tests, err := enumerate.Collect(enum.Enumerate(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, tserrors.Cancelled("interrupted during test discovery")
		}
		return nil, err
	}
	if len(tests) == 0 {
		return nil, tserrors.Discoveryf("no tests found")
	}
	o.log.Debug("enumerated tests", zap.Int("tests", len(tests)))

	strategy, err := partition.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	shards, err := partition.PartitionAll(tests, cfg.ShardCount, strategy)
	if err != nil {
		return nil, err
	}
	if err := partition.CheckCoverage(tests, shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// NewEnumerator builds the enumerator selected by cfg.Enumerator.
func NewEnumerator(cfg *config.Config, log *zap.Logger) (enumerate.Enumerator, error) {
	kind, err := enumerate.ParseKind(cfg.Enumerator)
	if err != nil {
		return nil, err
	}
	switch kind {
	case enumerate.KindManifest:
		return &enumerate.ManifestEnumerator{Path: cfg.Manifest}, nil
	case enumerate.KindCommand:
		return &enumerate.CommandEnumerator{Command: cfg.ListCommand, Dir: cfg.Workdir, Env: cfg.Env}, nil
	default:
		return &enumerate.GoEnumerator{
			Dir:      cfg.Workdir,
			Packages: cfg.Suite,
			Pattern:  cfg.ListPattern,
			Logger:   log,
		}, nil
	}
}

// NewExecutor builds the process executor for cfg.
func NewExecutor(cfg *config.Config, runID string, log *zap.Logger) (*executor.ProcessExecutor, error) {
	return executor.NewProcessExecutor(executor.Options{
		Command: cfg.Exec,
		Format:  cfg.OutputFormat,
		Dir:     cfg.Workdir,
		Env:     cfg.Env,
		LogDir:  cfg.LogDir,
		RunID:   runID,
		Logger:  log,
	})
}

// ExitCode maps a run's outcome to the process exit code.
func ExitCode(rep *model.SuiteReport, err error) int {
	if err != nil {
		return tserrors.GetExitCode(err)
	}
	if rep == nil {
		return tserrors.ExitInfrastructureError
	}
	switch rep.Status {
	case model.StatusPassed:
		return tserrors.ExitSuccess
	case model.StatusFailed:
		return tserrors.ExitTestFailures
	case model.StatusCancelled:
		return tserrors.ExitCancelled
	default:
		return tserrors.ExitInfrastructureError
	}
}

type fanout []scheduler.Observer

func (f fanout) ShardTransition(e scheduler.Event) {
	for _, obs := range f {
		obs.ShardTransition(e)
	}
}
