package testparser

import (
	"testing"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// want is a compact expectation for one parsed test.
type want struct {
	id      string
	outcome model.Outcome
	reason  string
}

func assertResults(t *testing.T, got Result, expected []want) {
	t.Helper()
	if got.Parsed != (len(expected) > 0) {
		t.Errorf("Parsed = %v, want %v", got.Parsed, len(expected) > 0)
	}
	if len(got.Tests) != len(expected) {
		t.Fatalf("got %d tests %+v, want %d", len(got.Tests), got.Tests, len(expected))
	}
	for i, w := range expected {
		tr := got.Tests[i]
		if tr.ID() != w.id {
			t.Errorf("Tests[%d].ID() = %q, want %q", i, tr.ID(), w.id)
		}
		if tr.Outcome != w.outcome {
			t.Errorf("Tests[%d].Outcome = %s, want %s", i, tr.Outcome, w.outcome)
		}
		if w.reason != "" && tr.Reason != w.reason {
			t.Errorf("Tests[%d].Reason = %q, want %q", i, tr.Reason, w.reason)
		}
	}
}
