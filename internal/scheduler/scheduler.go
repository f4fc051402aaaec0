// Package scheduler runs shards on a fixed pool of worker slots.
//
// A single coordinator goroutine owns the pending queue, the free-slot count
// and every shard state transition. Workers only execute one shard attempt
// and report the ShardResult back over a channel, so slot acquisition and
// release are serialized without locks.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/executor"
	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Policy decides what happens to running shards when fail-fast triggers.
type Policy string

const (
	// CancelRunning terminates running shards; their state becomes CANCELLED.
	CancelRunning Policy = "cancel-running"
	// LetFinish lets running shards complete without retries.
	LetFinish Policy = "let-finish"
)

// ParsePolicy converts a flag value into a Policy. Empty selects CancelRunning.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case "", CancelRunning:
		return CancelRunning, nil
	case LetFinish:
		return LetFinish, nil
	}
	return "", tserrors.Configf("unknown fail-fast policy %q (valid: %s, %s)", s, CancelRunning, LetFinish)
}

// Config holds the scheduling parameters. Worker count is passed in
// explicitly; the scheduler never inspects the machine.
type Config struct {
	Workers  int           // slots; clamped to [1, shard count]
	Retries  int           // extra attempts after the first failure
	FailFast bool          // stop dispatching after the first terminal failure
	Policy   Policy        // what fail-fast does to running shards
	Timeout  time.Duration // per attempt; 0 disables
}

// Event is one shard state transition.
type Event struct {
	Shard   int
	Attempt int
	From    model.ShardState
	To      model.ShardState
	Time    time.Time
	// Result is set for transitions out of RUNNING.
	Result *model.ShardResult
}

// Observer receives every state transition, in order, from the coordinator
// goroutine. Implementations must not block.
type Observer interface {
	ShardTransition(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// ShardTransition calls f.
func (f ObserverFunc) ShardTransition(e Event) { f(e) }

// Outcome is everything the scheduler learned about a run.
type Outcome struct {
	// Results holds every attempt in completion order.
	Results []model.ShardResult
	// States maps shard index to its terminal state.
	States map[int]model.ShardState
	// Attempts maps shard index to the number of attempts dispatched.
	Attempts map[int]int
	// Cancelled is true when fail-fast or the caller's context stopped the run.
	Cancelled    bool
	CancelReason string
	Workers      int
}

// Final returns the last result of each shard that ran at least once,
// ordered by shard index.
func (o *Outcome) Final() []model.ShardResult {
	last := make(map[int]model.ShardResult)
	for _, r := range o.Results {
		if prev, ok := last[r.Shard]; !ok || r.Attempt > prev.Attempt {
			last[r.Shard] = r
		}
	}
	out := make([]model.ShardResult, 0, len(last))
	for _, r := range last {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.ShardResult) int { return a.Shard - b.Shard })
	return out
}

// Scheduler dispatches shards to an Executor.
type Scheduler struct {
	cfg      Config
	exec     executor.Executor
	log      *zap.Logger
	observer Observer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver registers an observer for state transitions.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// New creates a Scheduler.
func New(cfg Config, exec executor.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{cfg: cfg, exec: exec, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Policy == "" {
		s.cfg.Policy = CancelRunning
	}
	return s
}

// completion is a worker's report to the coordinator.
type completion struct {
	pos    int
	result model.ShardResult
}

// run is the coordinator's private state. Only the coordinator goroutine
// touches it.
type run struct {
	s        *Scheduler
	shards   []model.Shard
	states   []model.ShardState
	attempts []int
	pending  []int // positions in shards, ascending shard index
	outcome  *Outcome
	stopping bool
}

// Run executes all shards and returns once every shard is terminal. Shard
// failures never surface as errors; only invalid input does.
func (s *Scheduler) Run(ctx context.Context, shards []model.Shard) (*Outcome, error) {
	if s.cfg.Retries < 0 {
		return nil, tserrors.Configf("retry budget must be >= 0, got %d", s.cfg.Retries)
	}
	if err := checkIndices(shards); err != nil {
		return nil, err
	}

	ordered := slices.Clone(shards)
	slices.SortFunc(ordered, func(a, b model.Shard) int { return a.Index - b.Index })

	workers := ClampWorkers(s.cfg.Workers, len(ordered))
	r := &run{
		s:        s,
		shards:   ordered,
		states:   make([]model.ShardState, len(ordered)),
		attempts: make([]int, len(ordered)),
		pending:  make([]int, len(ordered)),
		outcome: &Outcome{
			States:   make(map[int]model.ShardState, len(ordered)),
			Attempts: make(map[int]int, len(ordered)),
			Workers:  workers,
		},
	}
	for i := range ordered {
		r.states[i] = model.StatePending
		r.pending[i] = i
	}

	s.log.Debug("scheduling shards",
		zap.Int("shards", len(ordered)), zap.Int("workers", workers),
		zap.Int("retries", s.cfg.Retries), zap.Bool("fail_fast", s.cfg.FailFast))

	runCtx, cancelRunning := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRunning()

	var g errgroup.Group
	g.SetLimit(workers)
	done := make(chan completion, workers)
	free := workers
	running := 0

	dispatch := func() {
		for free > 0 && len(r.pending) > 0 && !r.stopping {
			pos := r.pending[0]
			r.pending = r.pending[1:]
			r.attempts[pos]++
			attempt := r.attempts[pos]
			shard := r.shards[pos]
			r.transition(pos, model.StateRunning, nil)
			free--
			running++
			g.Go(func() error {
				done <- completion{pos: pos, result: r.s.execute(runCtx, shard, attempt)}
				return nil
			})
		}
	}

	stop := func(reason string, cancelInFlight bool) {
		if r.stopping {
			return
		}
		r.stopping = true
		r.outcome.Cancelled = true
		r.outcome.CancelReason = reason
		s.log.Info("stopping run", zap.String("reason", reason), zap.Int("pending", len(r.pending)), zap.Int("running", running))
		for _, pos := range r.pending {
			r.transition(pos, model.StateCancelled, nil)
		}
		r.pending = nil
		if cancelInFlight {
			cancelRunning()
		}
	}

	ctxDone := ctx.Done()
	if ctx.Err() != nil {
		stop("interrupted: "+context.Cause(ctx).Error(), true)
		ctxDone = nil
	}
	dispatch()

	for running > 0 {
		select {
		case c := <-done:
			running--
			free++
			r.complete(c, stop)
			dispatch()
		case <-ctxDone:
			ctxDone = nil
			stop("interrupted: "+context.Cause(ctx).Error(), true)
		}
	}
	_ = g.Wait()

	for i, shard := range r.shards {
		r.outcome.States[shard.Index] = r.states[i]
		r.outcome.Attempts[shard.Index] = r.attempts[i]
	}
	return r.outcome, nil
}

// complete records a finished attempt and decides the shard's next state.
func (r *run) complete(c completion, stop func(string, bool)) {
	res := c.result
	r.outcome.Results = append(r.outcome.Results, res)
	cfg := r.s.cfg

	switch {
	case res.Succeeded():
		r.transition(c.pos, model.StateSucceeded, &res)
	case r.stopping && res.Failure == model.FailureCancelled:
		r.transition(c.pos, model.StateCancelled, &res)
	case !r.stopping && r.attempts[c.pos] <= cfg.Retries:
		r.transition(c.pos, model.StateFailedRetrying, &res)
		r.requeue(c.pos)
	default:
		r.transition(c.pos, model.StateFailed, &res)
		if cfg.FailFast {
			stop(fmt.Sprintf("fail-fast: shard %d failed (%s)", res.Shard, res.Failure), cfg.Policy == CancelRunning)
		}
	}
}

// requeue inserts pos into the pending queue keeping ascending shard order.
func (r *run) requeue(pos int) {
	i, _ := slices.BinarySearch(r.pending, pos)
	r.pending = slices.Insert(r.pending, i, pos)
}

func (r *run) transition(pos int, to model.ShardState, res *model.ShardResult) {
	from := r.states[pos]
	if err := model.ValidateTransition(from, to); err != nil {
		// The coordinator is the only writer; an illegal edge is a bug here.
		panic(fmt.Sprintf("shard %d: %v", r.shards[pos].Index, err))
	}
	r.states[pos] = to

	log := r.s.log.With(zap.Int("shard", r.shards[pos].Index), zap.Int("attempt", r.attempts[pos]))
	log.Debug("shard transition", zap.String("from", string(from)), zap.String("to", string(to)))

	if r.s.observer != nil {
		r.s.observer.ShardTransition(Event{
			Shard:   r.shards[pos].Index,
			Attempt: r.attempts[pos],
			From:    from,
			To:      to,
			Time:    time.Now(),
			Result:  res,
		})
	}
}

// execute runs one attempt, converting a panicking executor into a crash
// result so a single shard cannot take the coordinator down.
func (s *Scheduler) execute(ctx context.Context, shard model.Shard, attempt int) (res model.ShardResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("executor panicked", zap.Int("shard", shard.Index), zap.Any("panic", p))
			res = model.ShardResult{
				Shard:     shard.Index,
				Attempt:   attempt,
				Retries:   attempt - 1,
				Failure:   model.FailureCrash,
				Message:   fmt.Sprintf("executor panic: %v", p),
				StartedAt: start,
				Duration:  time.Since(start),
				ExitCode:  -1,
			}
			for _, tc := range shard.Tests {
				res.Outcomes = append(res.Outcomes, model.TestOutcome{
					ID: tc.ID, Outcome: model.OutcomeError, Message: "crash", Shard: shard.Index, Attempt: attempt,
				})
			}
		}
	}()

	res = s.exec.Execute(ctx, shard, attempt, s.cfg.Timeout)
	res.Shard = shard.Index
	res.Attempt = attempt
	res.Retries = attempt - 1
	return res
}

func checkIndices(shards []model.Shard) error {
	seen := make(map[int]bool, len(shards))
	for _, sh := range shards {
		if sh.Index < 0 {
			return tserrors.InvalidShardSpecf("negative shard index %d", sh.Index)
		}
		if seen[sh.Index] {
			return tserrors.InvalidShardSpecf("shard index %d scheduled twice", sh.Index)
		}
		seen[sh.Index] = true
	}
	return nil
}
