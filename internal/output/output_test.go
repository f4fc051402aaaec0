package output

import (
	"bytes"
	"strings"
	"testing"
)

// newTestWriter creates a Writer with captured output for testing.
func newTestWriter() (*Writer, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	// Disable color for predictable test output
	return NewWithWriters(stdout, stderr, false), stdout, stderr
}

func TestNew(t *testing.T) {
	w := New()
	if w == nil {
		t.Fatal("New() returned nil")
	}
	if w.out == nil {
		t.Error("out writer is nil")
	}
	if w.err == nil {
		t.Error("err writer is nil")
	}
}

func TestWriter_SetQuiet(t *testing.T) {
	w, _, _ := newTestWriter()

	w.SetQuiet(true)
	if !w.Quiet() {
		t.Error("SetQuiet(true) did not set quiet")
	}

	w.SetQuiet(false)
	if w.Quiet() {
		t.Error("SetQuiet(false) did not unset quiet")
	}
}

func TestWriter_Print(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Print("hello %s", "world")

	if got := stdout.String(); got != "hello world" {
		t.Errorf("Print() = %q, want %q", got, "hello world")
	}
}

func TestWriter_Println(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Println("line %d", 1)

	if got := stdout.String(); got != "line 1\n" {
		t.Errorf("Println() = %q, want %q", got, "line 1\n")
	}
}

func TestWriter_Errorln(t *testing.T) {
	w, stdout, stderr := newTestWriter()

	w.Errorln("bad %s", "thing")

	if got := stderr.String(); got != "bad thing\n" {
		t.Errorf("Errorln() = %q", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("Errorln() wrote to stdout: %q", stdout.String())
	}
}

func TestWriter_Info(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Info("visible")
	w.SetQuiet(true)
	w.Info("hidden")

	if got := stdout.String(); got != "visible\n" {
		t.Errorf("Info() = %q, want only the non-quiet line", got)
	}
}

func TestWriter_Warning(t *testing.T) {
	w, _, stderr := newTestWriter()

	w.Warning("worker_count %d exceeds shard_count %d", 8, 2)

	if got := stderr.String(); got != "warning: worker_count 8 exceeds shard_count 2\n" {
		t.Errorf("Warning() = %q", got)
	}
}

func TestWriter_ErrorPrefix(t *testing.T) {
	w, _, stderr := newTestWriter()

	w.ErrorPrefix("no tests found")

	if got := stderr.String(); got != "testshard: no tests found\n" {
		t.Errorf("ErrorPrefix() = %q", got)
	}
}

func TestWriter_NoColorHasNoEscapes(t *testing.T) {
	w, stdout, stderr := newTestWriter()

	w.Success("ok")
	w.SummaryFailed("Failed", "2")
	w.FinalFailure("Tests failed")
	w.ShardFailed(1, "crash")

	if strings.Contains(stdout.String()+stderr.String(), "\033[") {
		t.Errorf("plain writer emitted ANSI escapes: %q %q", stdout.String(), stderr.String())
	}
}

func TestWriter_ColorHasEscapes(t *testing.T) {
	stdout := &bytes.Buffer{}
	w := NewWithWriters(stdout, &bytes.Buffer{}, true)

	w.Success("ok")

	if !strings.Contains(stdout.String(), "\x1b[") {
		t.Errorf("color writer emitted no ANSI escapes: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "ok") {
		t.Errorf("Success() lost its text: %q", stdout.String())
	}
}

func TestWriter_ShardProgress(t *testing.T) {
	w, stdout, stderr := newTestWriter()

	w.ShardStart(3, 1, 12)
	w.ShardStart(3, 2, 12)
	w.ShardSuccess(3, "1.5s")
	w.ShardCancelled(4)
	w.ShardFailed(5, "timeout after 10m0s")

	want := "[shard 003] started (12 tests)\n" +
		"[shard 003] retrying, attempt 2 (12 tests)\n" +
		"[shard 003] passed 1.5s\n" +
		"[shard 004] cancelled\n"
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got := stderr.String(); got != "[shard 005] failed: timeout after 10m0s\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestWriter_ShardProgress_Quiet(t *testing.T) {
	w, stdout, stderr := newTestWriter()
	w.SetQuiet(true)

	w.ShardStart(0, 1, 1)
	w.ShardSuccess(0, "1s")
	w.ShardCancelled(1)
	w.ShardFailed(2, "crash")

	if stdout.Len() != 0 {
		t.Errorf("quiet writer printed progress: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "[shard 002] failed: crash") {
		t.Errorf("failures must be shown in quiet mode, got %q", stderr.String())
	}
}

func TestWriter_Section(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Section("Plan")

	if got := stdout.String(); got != "\n=== Plan ===\n" {
		t.Errorf("Section() = %q", got)
	}
}

func TestWriter_Summary(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.SummaryHeader("Test Summary")
	w.SummaryPassed("Passed", "8")
	w.SummaryFailed("Failed", "2")
	w.SummaryItem("Total", "10")
	w.SummarySectionLabel("Shards:")
	w.SummaryAction("shard 000", true, "1s", "")
	w.SummaryAction("shard 001", false, "2s", "tests")
	w.FinalFailure("Tests failed: %d of %d", 2, 10)

	want := "\n=== Test Summary ===\n\n" +
		"  Passed: 8\n" +
		"  Failed: 2\n" +
		"  Total: 10\n" +
		"  Shards:\n" +
		"    + shard 000    1s\n" +
		"    x shard 001    2s  (tests)\n" +
		"\nTests failed: 2 of 10\n"
	if got := stdout.String(); got != want {
		t.Errorf("summary =\n%s\nwant\n%s", got, want)
	}
}

func TestWriter_Plan(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.PlanShard(2, 5, 7.5)
	w.PlanDetail("%s", "pkg.TestA")

	if got := stdout.String(); got != "shard 002: 5 tests, cost 7.5\n  pkg.TestA\n" {
		t.Errorf("plan = %q", got)
	}
}

func TestWriter_List(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.List([]string{"item1", "item2", "item3"})

	expected := "  - item1\n  - item2\n  - item3\n"
	if got := stdout.String(); got != expected {
		t.Errorf("List() = %q, want %q", got, expected)
	}
}

func TestWriter_List_Empty(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.List([]string{})

	if got := stdout.String(); got != "" {
		t.Errorf("List() with empty slice = %q, want empty", got)
	}
}

func TestWriter_Table(t *testing.T) {
	w, stdout, _ := newTestWriter()

	headers := []string{"Name", "Type", "Status"}
	rows := [][]string{
		{"rs", "language", "ok"},
		{"py", "language", "ok"},
	}

	w.Table(headers, rows)

	output := stdout.String()

	// Verify headers present
	if !strings.Contains(output, "Name") {
		t.Error("Table() missing header 'Name'")
	}
	if !strings.Contains(output, "Type") {
		t.Error("Table() missing header 'Type'")
	}
	if !strings.Contains(output, "Status") {
		t.Error("Table() missing header 'Status'")
	}

	// Verify rows present
	if !strings.Contains(output, "rs") {
		t.Error("Table() missing row 'rs'")
	}
	if !strings.Contains(output, "py") {
		t.Error("Table() missing row 'py'")
	}

	// Verify separator line exists
	if !strings.Contains(output, "---") {
		t.Error("Table() missing separator line")
	}
}

func TestWriter_Table_VaryingWidths(t *testing.T) {
	w, stdout, _ := newTestWriter()

	headers := []string{"A", "LongHeader"}
	rows := [][]string{
		{"short", "x"},
		{"verylongvalue", "y"},
	}

	w.Table(headers, rows)

	output := stdout.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")

	if len(lines) < 3 {
		t.Fatalf("Table() expected at least 3 lines, got %d", len(lines))
	}

	// Column width should accommodate longest value
	// "verylongvalue" is 13 chars, "LongHeader" is 10 chars
	headerLine := lines[0]
	if !strings.Contains(headerLine, "A") {
		t.Error("Table() header line missing 'A'")
	}
}

func TestWriter_Table_Empty(t *testing.T) {
	w, stdout, _ := newTestWriter()

	headers := []string{"Name", "Value"}
	rows := [][]string{}

	w.Table(headers, rows)

	output := stdout.String()

	// Should still print headers and separator
	if !strings.Contains(output, "Name") {
		t.Error("Table() with empty rows should still print headers")
	}
}

func TestWriter_Table_RowShorterThanHeaders(t *testing.T) {
	w, stdout, _ := newTestWriter()

	headers := []string{"A", "B", "C"}
	rows := [][]string{
		{"1", "2"}, // Missing third column
	}

	w.Table(headers, rows)

	// Should not panic and should handle gracefully
	output := stdout.String()
	if !strings.Contains(output, "1") {
		t.Error("Table() should handle short rows gracefully")
	}
}
