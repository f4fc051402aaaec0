// Package model provides the data types shared by the enumerator, partitioner,
// executor, scheduler and aggregator. It has no dependencies on those packages
// so that each of them can import it without cycles.
package model

import (
	"time"
)

// TestCase is one test of the suite. Test cases are immutable once enumerated.
type TestCase struct {
	// ID is unique within the suite and stable across runs.
	ID string `json:"id" yaml:"id"`
	// Module groups tests by package or file for locality-aware partitioning.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
	// Cost is an optional weight. Values <= 0 count as 1.
	Cost float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// EffectiveCost returns the weight used for balancing.
func (t TestCase) EffectiveCost() float64 {
	if t.Cost <= 0 {
		return 1
	}
	return t.Cost
}

// Shard is a disjoint, ordered subset of the suite executed as one unit.
type Shard struct {
	Index int        `json:"index" yaml:"index"`
	Count int        `json:"count" yaml:"count"`
	Tests []TestCase `json:"tests" yaml:"tests"`
	Cost  float64    `json:"cost" yaml:"cost"`
}

// IDs returns the test identifiers of the shard in execution order.
func (s Shard) IDs() []string {
	ids := make([]string, len(s.Tests))
	for i, tc := range s.Tests {
		ids[i] = tc.ID
	}
	return ids
}

// Len returns the number of tests in the shard.
func (s Shard) Len() int { return len(s.Tests) }

// Outcome is the result of a single test.
type Outcome string

const (
	OutcomePass    Outcome = "PASS"
	OutcomeFail    Outcome = "FAIL"
	OutcomeError   Outcome = "ERROR"
	OutcomeSkipped Outcome = "SKIPPED"
)

// Outcomes lists every outcome kind in summary order.
var Outcomes = []Outcome{OutcomePass, OutcomeFail, OutcomeError, OutcomeSkipped}

// Passing reports whether the outcome does not fail the suite.
func (o Outcome) Passing() bool {
	return o == OutcomePass || o == OutcomeSkipped
}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePass, OutcomeFail, OutcomeError, OutcomeSkipped:
		return true
	}
	return false
}

// TestOutcome is the recorded result of one test in one shard attempt.
type TestOutcome struct {
	ID       string        `json:"id" yaml:"id"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Shard    int           `json:"shard" yaml:"shard"`
	Attempt  int           `json:"attempt" yaml:"attempt"`
}

// FailureKind classifies why a shard attempt did not succeed.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTests     FailureKind = "tests"
	FailureTimeout   FailureKind = "timeout"
	FailureCrash     FailureKind = "crash"
	FailureCancelled FailureKind = "cancelled"
)

// Infrastructure reports whether the failure is the orchestration's rather
// than a test's.
func (f FailureKind) Infrastructure() bool {
	return f == FailureTimeout || f == FailureCrash || f == FailureCancelled
}

// ShardResult is produced by a worker for one attempt at one shard.
// Retries append new results; existing results are never mutated.
type ShardResult struct {
	Shard     int           `json:"shard" yaml:"shard"`
	Attempt   int           `json:"attempt" yaml:"attempt"`
	Outcomes  []TestOutcome `json:"outcomes" yaml:"outcomes"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
	Retries   int           `json:"retries" yaml:"retries"`
	Failure   FailureKind   `json:"failure,omitempty" yaml:"failure,omitempty"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	LogPath   string        `json:"log_path,omitempty" yaml:"log_path,omitempty"`
}

// Succeeded reports whether the attempt passed.
func (r ShardResult) Succeeded() bool {
	return r.Failure == FailureNone
}

// RunStatus is the verdict of a whole run.
type RunStatus string

const (
	StatusPassed    RunStatus = "passed"
	StatusFailed    RunStatus = "failed"
	StatusError     RunStatus = "error"
	StatusCancelled RunStatus = "cancelled"
)

// OutcomeCounts holds per-outcome totals.
type OutcomeCounts struct {
	Pass    int `json:"pass" yaml:"pass"`
	Fail    int `json:"fail" yaml:"fail"`
	Error   int `json:"error" yaml:"error"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Add increments the counter for o.
func (c *OutcomeCounts) Add(o Outcome) {
	switch o {
	case OutcomePass:
		c.Pass++
	case OutcomeFail:
		c.Fail++
	case OutcomeError:
		c.Error++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// Get returns the counter for o.
func (c OutcomeCounts) Get(o Outcome) int {
	switch o {
	case OutcomePass:
		return c.Pass
	case OutcomeFail:
		return c.Fail
	case OutcomeError:
		return c.Error
	case OutcomeSkipped:
		return c.Skipped
	}
	return 0
}

// Total returns the sum of all counters.
func (c OutcomeCounts) Total() int {
	return c.Pass + c.Fail + c.Error + c.Skipped
}

// ShardSummary is the final state of one shard in a SuiteReport.
type ShardSummary struct {
	Index    int           `json:"index" yaml:"index"`
	State    ShardState    `json:"state" yaml:"state"`
	Attempts int           `json:"attempts" yaml:"attempts"`
	Failure  FailureKind   `json:"failure,omitempty" yaml:"failure,omitempty"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Tests    int           `json:"tests" yaml:"tests"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
	LogPath  string        `json:"log_path,omitempty" yaml:"log_path,omitempty"`
}

// SuiteReport is the order-independent merge of all shard results.
type SuiteReport struct {
	SchemaVersion  string                 `json:"schema_version" yaml:"schema_version"`
	RunID          string                 `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Status         RunStatus              `json:"status" yaml:"status"`
	OverallSuccess bool                   `json:"overall_success" yaml:"overall_success"`
	CancelReason   string                 `json:"cancel_reason,omitempty" yaml:"cancel_reason,omitempty"`
	Counts         OutcomeCounts          `json:"counts" yaml:"counts"`
	Total          int                    `json:"total" yaml:"total"`
	Tests          map[string]TestOutcome `json:"tests" yaml:"tests"`
	Shards         []ShardSummary         `json:"shards" yaml:"shards"`
	Duration       time.Duration          `json:"duration_ns" yaml:"duration_ns"`
	ShardTime      time.Duration          `json:"shard_time_ns" yaml:"shard_time_ns"`
}

// Shard returns the summary for index, if present.
func (r *SuiteReport) Shard(index int) (ShardSummary, bool) {
	for _, s := range r.Shards {
		if s.Index == index {
			return s, true
		}
	}
	return ShardSummary{}, false
}

// FailedTests returns the outcomes that fail the suite, sorted by ID.
func (r *SuiteReport) FailedTests() []TestOutcome {
	var failed []TestOutcome
	for _, id := range sortedKeys(r.Tests) {
		if o := r.Tests[id]; !o.Outcome.Passing() {
			failed = append(failed, o)
		}
	}
	return failed
}
