package testparser

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// TestEvent represents a single event from go test -json output.
type TestEvent struct {
	Time    string  `json:"Time"`
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

// maxEventLine bounds a single JSON event line; test output can be long.
const maxEventLine = 4 * 1024 * 1024

// JSONParser parses go test -json output.
type JSONParser struct{}

// Name returns the parser name.
func (p *JSONParser) Name() string {
	return "go-json"
}

// Parse parses go test -json output held in memory.
func (p *JSONParser) Parse(output string) Result {
	return p.ParseJSON(strings.NewReader(output))
}

// ParseJSON parses go test -json output from a reader. Non-JSON lines (such
// as build errors printed before the event stream) are ignored. Subtests are
// folded into their top-level test.
func (p *JSONParser) ParseJSON(r io.Reader) Result {
	result := Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)

	// accumulate output per test for failure messages
	currentOutput := make(map[string][]string)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] != '{' {
			continue
		}

		var event TestEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		// Skip package-level events and subtests
		if event.Test == "" || strings.Contains(event.Test, "/") {
			if event.Test != "" && event.Action == "output" {
				parent := event.Test[:strings.Index(event.Test, "/")]
				key := event.Package + "\x00" + parent
				currentOutput[key] = append(currentOutput[key], event.Output)
			}
			continue
		}

		key := event.Package + "\x00" + event.Test
		tr := TestResult{
			Package: event.Package,
			Name:    event.Test,
			Elapsed: time.Duration(event.Elapsed * float64(time.Second)),
		}

		switch event.Action {
		case "output":
			if event.Output != "" {
				currentOutput[key] = append(currentOutput[key], event.Output)
			}
			continue
		case "pass":
			tr.Outcome = model.OutcomePass
		case "fail":
			tr.Outcome = model.OutcomeFail
			tr.Reason = extractFailureReason(currentOutput[key])
		case "skip":
			tr.Outcome = model.OutcomeSkipped
		default:
			continue
		}
		delete(currentOutput, key)
		result.add(tr)
	}

	return result
}

// extractFailureReason extracts the most relevant failure message from test output.
func extractFailureReason(outputLines []string) string {
	const maxLen = 100

	// Look for lines with file:line: pattern (typical Go test error format)
	for _, line := range outputLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "=== RUN") ||
			strings.HasPrefix(trimmed, "--- FAIL") {
			continue
		}
		if strings.Contains(trimmed, ".go:") && strings.Contains(trimmed, ": ") {
			idx := strings.Index(trimmed, ".go:")
			afterFile := trimmed[idx+4:]
			if colonIdx := strings.Index(afterFile, ": "); colonIdx != -1 {
				return truncateReason(strings.TrimSpace(afterFile[colonIdx+2:]), maxLen)
			}
		}
	}

	// Fallback: return the first non-empty, non-boilerplate line
	for _, line := range outputLines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "=== ") &&
			!strings.HasPrefix(trimmed, "--- FAIL") && !strings.HasPrefix(trimmed, "--- PASS") {
			return truncateReason(trimmed, maxLen)
		}
	}

	return ""
}
