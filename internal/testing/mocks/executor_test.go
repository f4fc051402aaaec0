package mocks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/enumerate"
	"github.com/AndreyAkinshin/testshard/internal/executor"
	"github.com/AndreyAkinshin/testshard/internal/model"
)

var (
	_ executor.Executor    = (*Executor)(nil)
	_ enumerate.Enumerator = (*Enumerator)(nil)
)

func shardOf(index int, ids ...string) model.Shard {
	s := model.Shard{Index: index, Count: index + 1}
	for _, id := range ids {
		s.Tests = append(s.Tests, model.TestCase{ID: id})
	}
	return s
}

func TestExecutor_DefaultsToPass(t *testing.T) {
	t.Parallel()
	m := NewExecutor()
	r := m.Execute(context.Background(), shardOf(0, "a", "b"), 1, 0)

	if !r.Succeeded() {
		t.Errorf("Failure = %q, want none", r.Failure)
	}
	if len(r.Outcomes) != 2 || r.Outcomes[0].Outcome != model.OutcomePass {
		t.Errorf("Outcomes = %+v", r.Outcomes)
	}
	if m.ExecCount() != 1 {
		t.Errorf("ExecCount() = %d, want 1", m.ExecCount())
	}
}

func TestExecutor_FailingTests(t *testing.T) {
	t.Parallel()
	m := NewExecutor().WithFailingTests("b")
	r := m.Execute(context.Background(), shardOf(0, "a", "b"), 1, 0)

	if r.Failure != model.FailureTests {
		t.Errorf("Failure = %q, want tests", r.Failure)
	}
	if r.Outcomes[1].Outcome != model.OutcomeFail {
		t.Errorf("Outcomes[1] = %+v, want FAIL", r.Outcomes[1])
	}
}

func TestExecutor_FlakyTest(t *testing.T) {
	t.Parallel()
	m := NewExecutor().WithFlakyTest("a", 2)

	if r := m.Execute(context.Background(), shardOf(0, "a"), 1, 0); r.Succeeded() {
		t.Error("attempt 1 succeeded, want failure")
	}
	if r := m.Execute(context.Background(), shardOf(0, "a"), 2, 0); !r.Succeeded() {
		t.Errorf("attempt 2 failed: %q", r.Failure)
	}
	if m.Attempts(0) != 2 {
		t.Errorf("Attempts(0) = %d, want 2", m.Attempts(0))
	}
}

func TestExecutor_Crash(t *testing.T) {
	t.Parallel()
	r := NewExecutor().WithCrash(3).Execute(context.Background(), shardOf(3, "a"), 1, 0)
	if r.Failure != model.FailureCrash || r.Outcomes[0].Outcome != model.OutcomeError {
		t.Errorf("result = %+v, want crash with ERROR outcome", r)
	}
}

func TestExecutor_BlockUntilCancelled(t *testing.T) {
	t.Parallel()
	m := NewExecutor().WithBlock(0)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	r := m.Execute(ctx, shardOf(0, "a"), 1, 0)
	if r.Failure != model.FailureCancelled {
		t.Errorf("Failure = %q, want cancelled", r.Failure)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	t.Parallel()
	r := NewExecutor().WithDelay(0, time.Minute).Execute(context.Background(), shardOf(0, "a"), 1, 10*time.Millisecond)
	if r.Failure != model.FailureTimeout || r.Outcomes[0].Message != "timeout" {
		t.Errorf("result = %+v, want timeout", r)
	}
}

func TestExecutor_MaxConcurrent(t *testing.T) {
	t.Parallel()
	m := NewExecutor().WithDelay(0, 30*time.Millisecond).WithDelay(1, 30*time.Millisecond)

	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Execute(context.Background(), shardOf(i, "x"), 1, 0)
		}()
	}
	wg.Wait()

	if m.MaxConcurrent() != 2 {
		t.Errorf("MaxConcurrent() = %d, want 2", m.MaxConcurrent())
	}
	m.Reset()
	if m.ExecCount() != 0 || m.MaxConcurrent() != 0 {
		t.Error("Reset() did not clear tracking")
	}
}

func TestExecutor_ExecFunc(t *testing.T) {
	t.Parallel()
	m := NewExecutor().WithExecFunc(func(_ context.Context, shard model.Shard, attempt int, _ time.Duration) model.ShardResult {
		return model.ShardResult{Shard: shard.Index, Attempt: attempt, Failure: model.FailureCrash}
	})
	if r := m.Execute(context.Background(), shardOf(1), 1, 0); r.Failure != model.FailureCrash {
		t.Errorf("Failure = %q, want crash", r.Failure)
	}
}

func TestEnumerator(t *testing.T) {
	t.Parallel()
	tests, err := enumerate.Collect(NewEnumerator(TestCases(3)...).Enumerate(context.Background()))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(tests) != 3 || tests[2].ID != "t02" {
		t.Errorf("tests = %+v", tests)
	}

	boom := errors.New("boom")
	_, err = enumerate.Collect(NewEnumerator(TestCases(1)...).WithError(boom).Enumerate(context.Background()))
	if !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want wrapping boom", err)
	}
}
