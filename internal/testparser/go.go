package testparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Static regexes for Go test output parsing.
// Compiled once at package init for performance.
var (
	goResultLine  = regexp.MustCompile(`^---\s+(PASS|FAIL|SKIP):\s+(\S+)(?:\s+\(([\d.]+)s\))?`)
	goPackageLine = regexp.MustCompile(`^(?:ok|FAIL)\s+(\S+)\s+`)
	goErrorLine   = regexp.MustCompile(`^\s+\S+\.go:\d+:`)
)

// GoParser parses verbose (go test -v) output.
type GoParser struct{}

// Name returns the parser name.
func (p *GoParser) Name() string {
	return "go"
}

// Parse extracts top-level test results from Go test output.
// Go test outputs lines like:
//
//	--- PASS: TestFoo (0.00s)
//	--- FAIL: TestBar (0.01s)
//	--- SKIP: TestBaz (0.00s)
//	ok  	example.com/pkg	0.123s
//
// Subtests are folded into their parent. The package summary line that
// follows a package's tests attaches the package to the preceding results.
func (p *GoParser) Parse(output string) Result {
	result := Result{}
	lines := strings.Split(output, "\n")
	pendingFrom := 0

	for i, line := range lines {
		if m := goPackageLine.FindStringSubmatch(line); m != nil {
			for j := pendingFrom; j < len(result.Tests); j++ {
				result.Tests[j].Package = m[1]
			}
			pendingFrom = len(result.Tests)
			continue
		}

		m := goResultLine.FindStringSubmatch(line)
		if m == nil || strings.Contains(m[2], "/") {
			continue
		}

		tr := TestResult{Name: m[2], Elapsed: parseSeconds(m[3])}
		switch m[1] {
		case "PASS":
			tr.Outcome = model.OutcomePass
		case "SKIP":
			tr.Outcome = model.OutcomeSkipped
		default:
			tr.Outcome = model.OutcomeFail
			tr.Reason = p.findFailureReason(lines, i)
		}
		result.Tests = append(result.Tests, tr)
		result.Parsed = true
	}

	return result
}

// isTestBoundary returns true if the line marks the start of a test run
// or the result of a different test (PASS/FAIL/SKIP).
func isTestBoundary(line string) bool {
	return strings.HasPrefix(line, "=== RUN") ||
		strings.HasPrefix(line, "--- PASS:") ||
		strings.HasPrefix(line, "--- FAIL:") ||
		strings.HasPrefix(line, "--- SKIP:")
}

// findFailureReason searches around the FAIL line at failLineIdx for the
// first file:line: message. Go prints messages either before the result line
// or, for parallel tests, indented after it.
func (p *GoParser) findFailureReason(lines []string, failLineIdx int) string {
	for i := failLineIdx - 1; i >= 0; i-- {
		if isTestBoundary(lines[i]) {
			break
		}
		if reason := goErrorMessage(lines[i]); reason != "" {
			return reason
		}
	}
	for i := failLineIdx + 1; i < len(lines); i++ {
		if isTestBoundary(lines[i]) || !strings.HasPrefix(lines[i], " ") && !strings.HasPrefix(lines[i], "\t") {
			break
		}
		if reason := goErrorMessage(lines[i]); reason != "" {
			return reason
		}
	}
	return ""
}

// goErrorMessage extracts the message after "file.go:NN: ", or "" if the line
// is not a test log line.
func goErrorMessage(line string) string {
	if !goErrorLine.MatchString(line) {
		return ""
	}
	reason := strings.TrimSpace(line)
	if idx := strings.Index(reason, ".go:"); idx != -1 {
		afterFile := reason[idx+4:]
		if colonIdx := strings.Index(afterFile, ": "); colonIdx != -1 {
			reason = strings.TrimSpace(afterFile[colonIdx+2:])
		}
	}
	// 80 chars is a common terminal width that keeps failure reasons readable
	// in summary output without excessive wrapping.
	return truncateReason(reason, 80)
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
