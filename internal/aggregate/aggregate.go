// Package aggregate merges shard results into one SuiteReport.
//
// The merge is commutative: any permutation of the same results yields the
// same report. For each shard only the highest attempt counts; earlier
// attempts are retries that were superseded.
package aggregate

import (
	"fmt"
	"slices"
	"time"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
)

// SchemaVersion identifies the report format.
const SchemaVersion = "testshard.report/v1"

// Aggregate builds a SuiteReport from shard results in any order.
//
// A test ID reported by two different shards, or twice within one result,
// is an aggregation error: it means the partition was not disjoint.
func Aggregate(results []model.ShardResult) (*model.SuiteReport, error) {
	type attemptKey struct{ shard, attempt int }
	seen := make(map[attemptKey]bool, len(results))
	finals := make(map[int]model.ShardResult)
	var shardTime time.Duration
	var first, last time.Time
	for _, r := range results {
		key := attemptKey{r.Shard, r.Attempt}
		if seen[key] {
			return nil, tserrors.Aggregationf("shard %d attempt %d reported twice", r.Shard, r.Attempt)
		}
		seen[key] = true
		if prev, ok := finals[r.Shard]; !ok || r.Attempt > prev.Attempt {
			finals[r.Shard] = r
		}
	}
	for _, r := range results {
		shardTime += r.Duration
		if !r.StartedAt.IsZero() {
			if first.IsZero() || r.StartedAt.Before(first) {
				first = r.StartedAt
			}
			if end := r.StartedAt.Add(r.Duration); end.After(last) {
				last = end
			}
		}
	}

	report := &model.SuiteReport{
		SchemaVersion: SchemaVersion,
		Tests:         make(map[string]model.TestOutcome),
		Shards:        make([]model.ShardSummary, 0, len(finals)),
		ShardTime:     shardTime,
	}
	if !first.IsZero() {
		report.Duration = last.Sub(first)
	}

	indices := make([]int, 0, len(finals))
	for idx := range finals {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	for _, idx := range indices {
		r := finals[idx]
		for _, o := range r.Outcomes {
			if prev, dup := report.Tests[o.ID]; dup {
				if prev.Shard == r.Shard {
					return nil, tserrors.Aggregationf("test %q reported twice by shard %d", o.ID, r.Shard)
				}
				return nil, tserrors.Aggregationf("test %q reported by shards %d and %d", o.ID, prev.Shard, r.Shard)
			}
			if !o.Outcome.Valid() {
				return nil, tserrors.Aggregationf("test %q has invalid outcome %q", o.ID, o.Outcome)
			}
			report.Tests[o.ID] = o
			report.Counts.Add(o.Outcome)
		}
		report.Shards = append(report.Shards, summarize(r))
	}
	report.Total = len(report.Tests)
	setStatus(report)
	return report, nil
}

func summarize(r model.ShardResult) model.ShardSummary {
	s := model.ShardSummary{
		Index:    r.Shard,
		State:    stateOf(r),
		Attempts: r.Attempt,
		Failure:  r.Failure,
		Message:  r.Message,
		ExitCode: r.ExitCode,
		Tests:    len(r.Outcomes),
		Duration: r.Duration,
		LogPath:  r.LogPath,
	}
	return s
}

func stateOf(r model.ShardResult) model.ShardState {
	switch r.Failure {
	case model.FailureNone:
		return model.StateSucceeded
	case model.FailureCancelled:
		return model.StateCancelled
	}
	return model.StateFailed
}

// setStatus derives OverallSuccess and Status from the shard summaries and
// test outcomes. An infrastructure failure outranks test failures.
func setStatus(r *model.SuiteReport) {
	infra, cancelled, testsFailed := false, false, false
	for _, s := range r.Shards {
		switch {
		case s.State == model.StateCancelled || s.Failure == model.FailureCancelled:
			cancelled = true
		case s.Failure.Infrastructure():
			infra = true
		case s.Failure == model.FailureTests:
			testsFailed = true
		}
	}
	for _, o := range r.Tests {
		if !o.Outcome.Passing() {
			testsFailed = true
		}
	}

	switch {
	case r.CancelReason != "" || cancelled:
		r.Status = model.StatusCancelled
	case infra:
		r.Status = model.StatusError
	case testsFailed:
		r.Status = model.StatusFailed
	default:
		r.Status = model.StatusPassed
	}
	r.OverallSuccess = r.Status == model.StatusPassed
}

// Finalize applies the scheduler's view of the run: terminal states for
// every scheduled shard (including those cancelled before they ever ran)
// and the cancellation reason. Shards without a result get a summary with
// zero attempts.
func Finalize(r *model.SuiteReport, states map[int]model.ShardState, attempts map[int]int, cancelReason string) {
	byIndex := make(map[int]int, len(r.Shards))
	for i, s := range r.Shards {
		byIndex[s.Index] = i
	}
	for idx, state := range states {
		if i, ok := byIndex[idx]; ok {
			r.Shards[i].State = state
			if n := attempts[idx]; n > r.Shards[i].Attempts {
				r.Shards[i].Attempts = n
			}
			continue
		}
		r.Shards = append(r.Shards, model.ShardSummary{
			Index:    idx,
			State:    state,
			Attempts: attempts[idx],
			Failure:  failureFor(state),
			ExitCode: -1,
		})
	}
	slices.SortFunc(r.Shards, func(a, b model.ShardSummary) int { return a.Index - b.Index })
	r.CancelReason = cancelReason
	setStatus(r)
}

func failureFor(state model.ShardState) model.FailureKind {
	if state == model.StateCancelled {
		return model.FailureCancelled
	}
	return model.FailureNone
}

// Summary returns a stable one-line count summary, e.g.
// "10 tests: 8 passed, 2 failed, 0 errors, 0 skipped".
func Summary(r *model.SuiteReport) string {
	noun := "tests"
	if r.Total == 1 {
		noun = "test"
	}
	return fmt.Sprintf("%d %s: %d passed, %d failed, %d errors, %d skipped",
		r.Total, noun, r.Counts.Pass, r.Counts.Fail, r.Counts.Error, r.Counts.Skipped)
}
