package testparser

import (
	"strings"
	"testing"
)

// checkResultInvariants holds for every parser and every input.
func checkResultInvariants(t *testing.T, result Result) {
	t.Helper()
	if result.Parsed != (len(result.Tests) > 0) {
		t.Errorf("Parsed = %v with %d tests", result.Parsed, len(result.Tests))
	}
	for i, tr := range result.Tests {
		if tr.Name == "" {
			t.Errorf("Tests[%d].Name is empty", i)
		}
		if !tr.Outcome.Valid() {
			t.Errorf("Tests[%d].Outcome = %q", i, tr.Outcome)
		}
	}
}

// FuzzGoParser tests the Go test output parser with arbitrary input.
// Run: go test -fuzz=FuzzGoParser -fuzztime=30s ./internal/testparser
func FuzzGoParser(f *testing.F) {
	seeds := []string{
		"=== RUN   TestFoo\n--- PASS: TestFoo (0.00s)\nPASS\nok\texample.com/pkg\t0.012s",
		"=== RUN   TestBar\n--- FAIL: TestBar (0.01s)\nFAIL\nexit status 1",
		"=== RUN   TestBaz\n--- SKIP: TestBaz (0.00s)\nPASS\nok\texample.com/pkg\t0.012s",
		"=== RUN   TestFoo\n=== RUN   TestFoo/subtest1\n--- PASS: TestFoo/subtest1 (0.00s)\n--- PASS: TestFoo (0.01s)\nPASS",
		"=== RUN   TestFoo\n    foo_test.go:15: expected 42, got 0\n--- FAIL: TestFoo (0.01s)\nFAIL",
		"",
		"\n",
		"building...\ncompiling...\n",
		"--- PASS:",
		"--- FAIL: (0.00s)",
		"ok  \t",
		"=== RUN   " + strings.Repeat("x", 10000) + "\n--- PASS: " + strings.Repeat("x", 10000) + " (0.00s)\nPASS",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	parser := &GoParser{}
	f.Fuzz(func(t *testing.T, input string) {
		checkResultInvariants(t, parser.Parse(input))
	})
}

// FuzzJSONParser tests the go test -json parser with arbitrary input.
// Run: go test -fuzz=FuzzJSONParser -fuzztime=30s ./internal/testparser
func FuzzJSONParser(f *testing.F) {
	seeds := []string{
		`{"Action":"pass","Package":"p","Test":"TestA","Elapsed":0.01}`,
		`{"Action":"fail","Package":"p","Test":"TestA/sub","Elapsed":0.01}`,
		`{"Action":"output","Package":"p","Test":"TestA","Output":"x.go:1: boom\n"}` + "\n" + `{"Action":"fail","Package":"p","Test":"TestA"}`,
		`{`,
		`{"Action":7}`,
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	parser := &JSONParser{}
	f.Fuzz(func(t *testing.T, input string) {
		checkResultInvariants(t, parser.Parse(input))
	})
}

// FuzzCargoParser tests the Cargo test output parser with arbitrary input.
// Run: go test -fuzz=FuzzCargoParser -fuzztime=30s ./internal/testparser
func FuzzCargoParser(f *testing.F) {
	seeds := []string{
		"running 1 test\ntest test_foo ... ok\ntest result: ok. 1 passed; 0 failed; 0 ignored",
		"test a ... FAILED\n\n---- a stdout ----\nthread 'a' panicked\nboom\n",
		"---- x stdout ----",
		"test  ... ok",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	parser := &CargoParser{}
	f.Fuzz(func(t *testing.T, input string) {
		checkResultInvariants(t, parser.Parse(input))
	})
}

// FuzzPytestParser tests the pytest output parser with arbitrary input.
// Run: go test -fuzz=FuzzPytestParser -fuzztime=30s ./internal/testparser
func FuzzPytestParser(f *testing.F) {
	seeds := []string{
		"tests/t.py::test_a PASSED",
		"FAILED tests/t.py::test_b - AssertionError",
		"FAILED tests/t.py::test_b - ",
		"::",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	parser := &PytestParser{}
	f.Fuzz(func(t *testing.T, input string) {
		checkResultInvariants(t, parser.Parse(input))
	})
}
