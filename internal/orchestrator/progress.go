package orchestrator

import (
	"fmt"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/output"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// progress prints shard transitions as they happen.
type progress struct {
	out   *output.Writer
	tests map[int]int
}

func newProgress(out *output.Writer, shards []model.Shard) *progress {
	tests := make(map[int]int, len(shards))
	for _, s := range shards {
		tests[s.Index] = s.Len()
	}
	return &progress{out: out, tests: tests}
}

func (p *progress) ShardTransition(e scheduler.Event) {
	switch e.To {
	case model.StateRunning:
		p.out.ShardStart(e.Shard, e.Attempt, p.tests[e.Shard])
	case model.StateSucceeded:
		p.out.ShardSuccess(e.Shard, formatDuration(e))
	case model.StateFailed, model.StateFailedRetrying:
		p.out.ShardFailed(e.Shard, failureReason(e))
	case model.StateCancelled:
		p.out.ShardCancelled(e.Shard)
	}
}

func formatDuration(e scheduler.Event) string {
	if e.Result == nil {
		return ""
	}
	return e.Result.Duration.Round(10 * time.Millisecond).String()
}

func failureReason(e scheduler.Event) string {
	res := e.Result
	if res == nil {
		return "unknown failure"
	}
	reason := string(res.Failure)
	if res.Failure == model.FailureTests {
		failed := 0
		for _, o := range res.Outcomes {
			if !o.Outcome.Passing() {
				failed++
			}
		}
		reason = fmt.Sprintf("%d of %d tests failed", failed, len(res.Outcomes))
	} else if res.Message != "" {
		reason += ": " + res.Message
	}
	if e.To == model.StateFailedRetrying {
		reason += ", will retry"
	}
	if res.LogPath != "" {
		reason += " (log: " + res.LogPath + ")"
	}
	return reason
}
