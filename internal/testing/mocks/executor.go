// Package mocks provides shared test doubles for testshard packages.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Call records one Execute invocation.
type Call struct {
	Shard   int
	Attempt int
	Start   time.Time
	End     time.Time
}

// Executor implements executor.Executor for testing.
// Use NewExecutor() to create instances with a fluent builder API.
// Unless scripted otherwise every test passes immediately.
type Executor struct {
	failing  map[string]bool
	flaky    map[string]int // test ID -> first passing attempt
	crash    map[int]bool
	delays   map[int]time.Duration
	blocking map[int]bool

	// ExecFunc, if set, replaces the scripted behaviour.
	ExecFunc func(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult

	// Execution tracking (thread-safe)
	running    int32
	maxRunning int32
	mu         sync.Mutex
	calls      []Call
}

// NewExecutor creates a mock executor where every test passes.
func NewExecutor() *Executor {
	return &Executor{
		failing:  make(map[string]bool),
		flaky:    make(map[string]int),
		crash:    make(map[int]bool),
		delays:   make(map[int]time.Duration),
		blocking: make(map[int]bool),
	}
}

// WithFailingTests makes the given tests FAIL on every attempt.
func (m *Executor) WithFailingTests(ids ...string) *Executor {
	for _, id := range ids {
		m.failing[id] = true
	}
	return m
}

// WithFlakyTest makes a test FAIL until the given attempt, then PASS.
func (m *Executor) WithFlakyTest(id string, passOnAttempt int) *Executor {
	m.flaky[id] = passOnAttempt
	return m
}

// WithCrash makes a shard exit abnormally on every attempt without
// reporting any test.
func (m *Executor) WithCrash(shard int) *Executor {
	m.crash[shard] = true
	return m
}

// WithDelay makes a shard take d before reporting. Cancellation and the
// attempt timeout cut the delay short.
func (m *Executor) WithDelay(shard int, d time.Duration) *Executor {
	m.delays[shard] = d
	return m
}

// WithBlock makes a shard run until its context is cancelled.
func (m *Executor) WithBlock(shard int) *Executor {
	m.blocking[shard] = true
	return m
}

// WithExecFunc sets the function called by Execute.
func (m *Executor) WithExecFunc(fn func(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult) *Executor {
	m.ExecFunc = fn
	return m
}

// Execute implements executor.Executor.
func (m *Executor) Execute(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult {
	n := atomic.AddInt32(&m.running, 1)
	for {
		prev := atomic.LoadInt32(&m.maxRunning)
		if n <= prev || atomic.CompareAndSwapInt32(&m.maxRunning, prev, n) {
			break
		}
	}
	start := time.Now()
	defer func() {
		atomic.AddInt32(&m.running, -1)
		m.mu.Lock()
		m.calls = append(m.calls, Call{Shard: shard.Index, Attempt: attempt, Start: start, End: time.Now()})
		m.mu.Unlock()
	}()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, shard, attempt, timeout)
	}

	result := model.ShardResult{Shard: shard.Index, Attempt: attempt, Retries: attempt - 1, StartedAt: start}
	finish := func(failure model.FailureKind, missing string) model.ShardResult {
		result.Duration = time.Since(start)
		result.Failure = failure
		for _, tc := range shard.Tests {
			o := model.TestOutcome{ID: tc.ID, Shard: shard.Index, Attempt: attempt, Outcome: model.OutcomeError, Message: missing}
			if missing == "" {
				o.Outcome, o.Message = m.outcomeFor(tc.ID, attempt)
			}
			result.Outcomes = append(result.Outcomes, o)
		}
		if failure == model.FailureNone {
			for _, o := range result.Outcomes {
				if !o.Outcome.Passing() {
					result.Failure = model.FailureTests
					result.ExitCode = 1
					break
				}
			}
		} else {
			result.ExitCode = -1
			result.Message = string(failure)
		}
		return result
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	if m.blocking[shard.Index] {
		select {
		case <-ctx.Done():
			return finish(model.FailureCancelled, "cancelled")
		case <-deadline:
			return finish(model.FailureTimeout, "timeout")
		}
	}
	if d := m.delays[shard.Index]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return finish(model.FailureCancelled, "cancelled")
		case <-deadline:
			return finish(model.FailureTimeout, "timeout")
		}
	}
	if err := ctx.Err(); err != nil {
		return finish(model.FailureCancelled, "cancelled")
	}
	if m.crash[shard.Index] {
		return finish(model.FailureCrash, "crash")
	}
	return finish(model.FailureNone, "")
}

func (m *Executor) outcomeFor(id string, attempt int) (model.Outcome, string) {
	if m.failing[id] {
		return model.OutcomeFail, fmt.Sprintf("%s failed", id)
	}
	if passOn, ok := m.flaky[id]; ok && attempt < passOn {
		return model.OutcomeFail, fmt.Sprintf("%s flaked", id)
	}
	return model.OutcomePass, ""
}

// Test inspection methods

// Calls returns every Execute call in completion order.
func (m *Executor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, len(m.calls))
	copy(result, m.calls)
	return result
}

// StartOrder returns shard indices in the order their attempts started.
func (m *Executor) StartOrder() []int {
	calls := m.Calls()
	sort.SliceStable(calls, func(i, j int) bool { return calls[i].Start.Before(calls[j].Start) })
	order := make([]int, len(calls))
	for i, c := range calls {
		order[i] = c.Shard
	}
	return order
}

// Attempts returns how many times the shard was executed.
func (m *Executor) Attempts(shard int) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Shard == shard {
			n++
		}
	}
	return n
}

// ExecCount returns the number of times Execute was called.
func (m *Executor) ExecCount() int {
	return len(m.Calls())
}

// MaxConcurrent returns the highest number of simultaneous Execute calls.
func (m *Executor) MaxConcurrent() int {
	return int(atomic.LoadInt32(&m.maxRunning))
}

// Reset clears execution tracking state.
func (m *Executor) Reset() {
	atomic.StoreInt32(&m.running, 0)
	atomic.StoreInt32(&m.maxRunning, 0)
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
