package report

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/testshard/internal/aggregate"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/output"
)

// maxListedFailures bounds the failed-test list in the console summary; the
// report file always has all of them.
const maxListedFailures = 50

// Print writes the human-readable summary of r. The final line tells a red
// test suite apart from a broken pipeline and from a cancelled run.
func Print(w *output.Writer, r *model.SuiteReport) {
	title := cases.Title(language.English)

	w.SummaryHeader("Test Summary")
	if r.RunID != "" {
		w.SummaryItem("Run", r.RunID)
	}
	if r.Status == model.StatusPassed {
		w.SummaryPassed("Status", title.String(string(r.Status)))
	} else {
		w.SummaryFailed("Status", title.String(string(r.Status)))
	}
	w.SummaryPassed("Passed", fmt.Sprintf("%d", r.Counts.Pass))
	if r.Counts.Fail > 0 {
		w.SummaryFailed("Failed", fmt.Sprintf("%d", r.Counts.Fail))
	}
	if r.Counts.Error > 0 {
		w.SummaryFailed("Errors", fmt.Sprintf("%d", r.Counts.Error))
	}
	if r.Counts.Skipped > 0 {
		w.SummaryItem("Skipped", fmt.Sprintf("%d", r.Counts.Skipped))
	}
	w.SummaryItem("Total", fmt.Sprintf("%d", r.Total))
	w.SummaryItem("Duration", fmt.Sprintf("%s (shard time %s)", formatDuration(r.Duration), formatDuration(r.ShardTime)))

	if len(r.Shards) > 0 {
		w.Println("")
		w.SummarySectionLabel("Shards:")
		for _, s := range r.Shards {
			name := fmt.Sprintf("shard %03d", s.Index)
			w.SummaryAction(name, s.State == model.StateSucceeded, formatDuration(s.Duration), shardNote(s))
		}
	}

	if failed := r.FailedTests(); len(failed) > 0 {
		w.Println("")
		w.SummarySectionLabel("Failed Tests:")
		for i, o := range failed {
			if i == maxListedFailures {
				w.SummaryItem("  ...", fmt.Sprintf("%d more in the report", len(failed)-i))
				break
			}
			w.SummaryFailed("  "+o.ID, fmt.Sprintf("%s %s", o.Outcome, o.Message))
		}
	}

	switch r.Status {
	case model.StatusPassed:
		w.FinalSuccess("All %d tests passed.", r.Total)
	case model.StatusFailed:
		w.FinalFailure("Tests failed: %s.", aggregate.Summary(r))
	case model.StatusError:
		w.FinalFailure("Orchestration failed: %s.", infraSummary(r))
	case model.StatusCancelled:
		w.FinalFailure("Cancelled: %s.", cancelSummary(r))
	}
}

func shardNote(s model.ShardSummary) string {
	switch {
	case s.State == model.StateCancelled && s.Attempts == 0:
		return "cancelled before start"
	case s.Failure == model.FailureNone:
		if s.Attempts > 1 {
			return fmt.Sprintf("passed on attempt %d", s.Attempts)
		}
		return ""
	}
	note := string(s.Failure)
	if s.Attempts > 1 {
		note = fmt.Sprintf("%s after %d attempts", note, s.Attempts)
	}
	if s.LogPath != "" {
		note += ", log: " + s.LogPath
	}
	return note
}

func infraSummary(r *model.SuiteReport) string {
	n := 0
	var first model.ShardSummary
	for _, s := range r.Shards {
		if s.Failure.Infrastructure() {
			if n == 0 {
				first = s
			}
			n++
		}
	}
	if n == 0 {
		return "no shard reported an infrastructure failure"
	}
	msg := fmt.Sprintf("%d shard(s) did not complete (shard %d: %s", n, first.Index, first.Failure)
	if first.Message != "" {
		msg += ", " + first.Message
	}
	return msg + ")"
}

func cancelSummary(r *model.SuiteReport) string {
	if r.CancelReason != "" {
		return r.CancelReason
	}
	return "run stopped before every shard finished"
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
