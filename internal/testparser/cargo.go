package testparser

import (
	"regexp"
	"strings"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Static regexes for Cargo test output parsing.
// Compiled once at package init for performance.
var (
	cargoTestLine   = regexp.MustCompile(`(?m)^test (\S+) \.\.\. (ok|FAILED|ignored)`)
	cargoStdoutHead = regexp.MustCompile(`^---- (\S+) stdout ----$`)
)

// CargoParser parses Rust/Cargo test output.
type CargoParser struct{}

// Name returns the parser name.
func (p *CargoParser) Name() string {
	return "cargo"
}

// Parse extracts per-test results from Cargo test output.
// Cargo prints one line per test and a stdout section per failure:
//
//	test tests::test_foo ... ok
//	test tests::test_bar ... FAILED
//	test tests::test_baz ... ignored
//
//	---- tests::test_bar stdout ----
//	thread 'tests::test_bar' panicked at src/lib.rs:10:5:
//	assertion failed
func (p *CargoParser) Parse(output string) Result {
	result := Result{}
	reasons := cargoFailureReasons(output)

	for _, m := range cargoTestLine.FindAllStringSubmatch(output, -1) {
		tr := TestResult{Name: m[1]}
		switch m[2] {
		case "ok":
			tr.Outcome = model.OutcomePass
		case "ignored":
			tr.Outcome = model.OutcomeSkipped
		default:
			tr.Outcome = model.OutcomeFail
			tr.Reason = reasons[m[1]]
		}
		result.add(tr)
	}

	return result
}

// cargoFailureReasons maps failed test names to the first meaningful line of
// their captured stdout section.
func cargoFailureReasons(output string) map[string]string {
	reasons := make(map[string]string)
	current := ""
	for _, line := range strings.Split(output, "\n") {
		if m := cargoStdoutHead.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			current = m[1]
			continue
		}
		if current == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "note:") {
			continue
		}
		if strings.HasPrefix(trimmed, "thread '") {
			if _, ok := reasons[current]; !ok {
				reasons[current] = truncateReason(trimmed, 100)
			}
			continue
		}
		if strings.HasPrefix(trimmed, "failures:") {
			current = ""
			continue
		}
		reasons[current] = truncateReason(trimmed, 100)
		current = ""
	}
	return reasons
}
