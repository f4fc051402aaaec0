package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/testshard/internal/aggregate"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/output"
)

func sampleReport(t *testing.T) *model.SuiteReport {
	t.Helper()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r, err := aggregate.Aggregate([]model.ShardResult{
		{
			Shard: 0, Attempt: 1, StartedAt: start, Duration: 1500 * time.Millisecond,
			Outcomes: []model.TestOutcome{
				{ID: "pkg.TestA", Outcome: model.OutcomePass, Shard: 0, Attempt: 1, Duration: time.Second},
				{ID: "pkg.TestB", Outcome: model.OutcomeSkipped, Shard: 0, Attempt: 1},
			},
		},
		{
			Shard: 1, Attempt: 1, StartedAt: start, Duration: 2 * time.Second, ExitCode: 1,
			Failure: model.FailureTests, LogPath: "logs/run/shard-001/attempt-1.log",
			Outcomes: []model.TestOutcome{
				{ID: "pkg.TestC", Outcome: model.OutcomeFail, Message: "want 1, got 2", Shard: 1, Attempt: 1},
				{ID: "123", Outcome: model.OutcomePass, Shard: 1, Attempt: 1},
			},
		},
	})
	require.NoError(t, err)
	r.RunID = "0b6f5c1e-2c1f-4f55-9b59-52b1c1c0a001"
	return r
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()
			want := sampleReport(t)

			data, err := Marshal(want, f)
			require.NoError(t, err)
			got, err := Parse(data)
			require.NoError(t, err)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshal_YAMLIsBlockStyle(t *testing.T) {
	t.Parallel()
	data, err := Marshal(sampleReport(t), YAML)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "schema_version: testshard.report/v1\n"), text)
	assert.Contains(t, text, "\nstatus: failed\n")
	assert.Contains(t, text, "\n    outcome: FAIL\n")
	// A numeric test ID stays a string key.
	assert.Contains(t, text, "\n  \"123\":\n")
}

func TestMarshal_RejectsInvalidReport(t *testing.T) {
	t.Parallel()
	r := sampleReport(t)
	r.Status = "unknown"

	_, err := Marshal(r, JSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report validation failed")
}

func TestMarshal_UnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := Marshal(sampleReport(t), Format("xml"))
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "report.json")
	want := sampleReport(t)

	require.NoError(t, Write(path, want, JSON))

	got, err := Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
	assert.Equal(t, "report.json", entries[0].Name())
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"schema_version": "other/v9"}`), 0644))
	_, err = Read(bad)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"YAML", YAML, false},
		{"yml", YAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, YAML, FormatForPath("report.yaml", JSON))
	assert.Equal(t, YAML, FormatForPath("report.YML", JSON))
	assert.Equal(t, JSON, FormatForPath("report.json", YAML))
	assert.Equal(t, YAML, FormatForPath("report", YAML))
}

func printed(r *model.SuiteReport) string {
	var stdout bytes.Buffer
	Print(output.NewWithWriters(&stdout, &bytes.Buffer{}, false), r)
	return stdout.String()
}

func TestPrint_TestFailures(t *testing.T) {
	t.Parallel()
	text := printed(sampleReport(t))

	assert.Contains(t, text, "=== Test Summary ===")
	assert.Contains(t, text, "  Status: Failed\n")
	assert.Contains(t, text, "  Passed: 2\n")
	assert.Contains(t, text, "  Failed: 1\n")
	assert.Contains(t, text, "  Skipped: 1\n")
	assert.Contains(t, text, "  Total: 4\n")
	assert.Contains(t, text, "    + shard 000    1.5s\n")
	assert.Contains(t, text, "    x shard 001    2s  (tests, log: logs/run/shard-001/attempt-1.log)\n")
	assert.Contains(t, text, "  pkg.TestC: FAIL want 1, got 2\n")
	assert.True(t, strings.HasSuffix(text, "\nTests failed: 4 tests: 2 passed, 1 failed, 0 errors, 1 skipped.\n"), text)
}

func TestPrint_Passed(t *testing.T) {
	t.Parallel()
	r, err := aggregate.Aggregate([]model.ShardResult{{
		Shard: 0, Attempt: 2, Duration: time.Second,
		Outcomes: []model.TestOutcome{{ID: "a", Outcome: model.OutcomePass, Shard: 0, Attempt: 2}},
	}})
	require.NoError(t, err)

	text := printed(r)
	assert.Contains(t, text, "  Status: Passed\n")
	assert.Contains(t, text, "(passed on attempt 2)")
	assert.NotContains(t, text, "Failed Tests:")
	assert.True(t, strings.HasSuffix(text, "\nAll 1 tests passed.\n"), text)
}

func TestPrint_OrchestrationFailure(t *testing.T) {
	t.Parallel()
	r, err := aggregate.Aggregate([]model.ShardResult{{
		Shard: 2, Attempt: 1, Failure: model.FailureTimeout, Message: "timed out after 1m0s", ExitCode: -1,
		Outcomes: []model.TestOutcome{{ID: "slow", Outcome: model.OutcomeError, Message: "timeout", Shard: 2, Attempt: 1}},
	}})
	require.NoError(t, err)

	text := printed(r)
	assert.Contains(t, text, "  Status: Error\n")
	assert.True(t, strings.HasSuffix(text,
		"\nOrchestration failed: 1 shard(s) did not complete (shard 2: timeout, timed out after 1m0s).\n"), text)
}

func TestPrint_Cancelled(t *testing.T) {
	t.Parallel()
	r, err := aggregate.Aggregate(nil)
	require.NoError(t, err)
	aggregate.Finalize(r, map[int]model.ShardState{0: model.StateCancelled}, map[int]int{0: 0}, "interrupted: context canceled")

	text := printed(r)
	assert.Contains(t, text, "  Status: Cancelled\n")
	assert.Contains(t, text, "(cancelled before start)")
	assert.True(t, strings.HasSuffix(text, "\nCancelled: interrupted: context canceled.\n"), text)
}

func TestPrint_TruncatesFailureList(t *testing.T) {
	t.Parallel()
	res := model.ShardResult{Shard: 0, Attempt: 1, Failure: model.FailureTests}
	for i := range maxListedFailures + 5 {
		res.Outcomes = append(res.Outcomes, model.TestOutcome{
			ID: "t" + strings.Repeat("x", i), Outcome: model.OutcomeFail, Shard: 0, Attempt: 1,
		})
	}
	r, err := aggregate.Aggregate([]model.ShardResult{res})
	require.NoError(t, err)

	assert.Contains(t, printed(r), "  ...: 5 more in the report\n")
}
