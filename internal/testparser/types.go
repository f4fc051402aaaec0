// Package testparser extracts per-test outcomes from test framework output.
package testparser

import (
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// TestResult is the outcome of one test as reported by the framework.
type TestResult struct {
	Package string // Package or module, empty when the format does not report one
	Name    string // Test name (e.g., "TestFoo" or "tests/test_x.py::test_a")
	Outcome model.Outcome
	Reason  string // Failure reason/error message
	Elapsed time.Duration
}

// ID returns the package-qualified test name.
func (r TestResult) ID() string {
	if r.Package == "" {
		return r.Name
	}
	return r.Package + "." + r.Name
}

// Result holds the tests found in one output stream.
type Result struct {
	Tests  []TestResult
	Parsed bool // true if at least one test result was extracted
}

// Count returns the number of tests with the given outcome.
func (r Result) Count(o model.Outcome) int {
	n := 0
	for _, t := range r.Tests {
		if t.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the tests that failed or errored, in report order.
func (r Result) Failed() []TestResult {
	var failed []TestResult
	for _, t := range r.Tests {
		if !t.Outcome.Passing() {
			failed = append(failed, t)
		}
	}
	return failed
}

// add appends a result, replacing an earlier one for the same ID so that a
// retried or re-reported test keeps only its last outcome.
func (r *Result) add(tr TestResult) {
	for i := range r.Tests {
		if r.Tests[i].ID() == tr.ID() {
			r.Tests[i] = tr
			return
		}
	}
	r.Tests = append(r.Tests, tr)
	r.Parsed = true
}

// Parser defines the interface for test output parsers.
type Parser interface {
	// Parse extracts per-test results from the test framework output.
	Parse(output string) Result
	// Name returns the name of the parser.
	Name() string
}

// truncateReason shortens a failure reason to keep summaries on one line.
func truncateReason(reason string, maxLen int) string {
	if len(reason) > maxLen {
		return reason[:maxLen-3] + "..."
	}
	return reason
}
