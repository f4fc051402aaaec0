package testparser

import (
	"regexp"
	"strings"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Static regexes for pytest output parsing.
// Compiled once at package init for performance.
var (
	// tests/test_foo.py::test_bar PASSED                     [ 50%]
	pytestVerboseLine = regexp.MustCompile(`(?m)^(\S+::\S+)\s+(PASSED|FAILED|SKIPPED|ERROR|XFAIL|XPASS)\b`)
	// FAILED tests/test_foo.py::test_baz - AssertionError: assert 1 == 2
	pytestSummaryLine = regexp.MustCompile(`(?m)^(PASSED|FAILED|SKIPPED|ERROR|XFAIL|XPASS) (\S+::\S+)(?: - (.*))?$`)
)

// PytestParser parses Python pytest output produced with -v and/or -rA.
type PytestParser struct{}

// Name returns the parser name.
func (p *PytestParser) Name() string {
	return "pytest"
}

// Parse extracts per-test results keyed by pytest node ID. The short test
// summary (-rA) carries failure reasons, so it wins over verbose lines.
func (p *PytestParser) Parse(output string) Result {
	result := Result{}

	for _, m := range pytestVerboseLine.FindAllStringSubmatch(output, -1) {
		result.add(TestResult{Name: m[1], Outcome: pytestOutcome(m[2])})
	}

	for _, m := range pytestSummaryLine.FindAllStringSubmatch(output, -1) {
		tr := TestResult{Name: m[2], Outcome: pytestOutcome(m[1])}
		if !tr.Outcome.Passing() {
			tr.Reason = truncateReason(strings.TrimSpace(m[3]), 100)
		}
		result.add(tr)
	}

	return result
}

func pytestOutcome(word string) model.Outcome {
	switch word {
	case "PASSED", "XPASS":
		return model.OutcomePass
	case "SKIPPED", "XFAIL":
		return model.OutcomeSkipped
	case "ERROR":
		return model.OutcomeError
	default:
		return model.OutcomeFail
	}
}
