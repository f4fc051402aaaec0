package executor

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/testparser"
)

func TestRunRegex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		shard model.Shard
		want  string
	}{
		{"empty", model.Shard{}, "^$"},
		{
			"qualified ids",
			model.Shard{Tests: []model.TestCase{{ID: "example.com/a.TestOne"}, {ID: "example.com/b.TestTwo"}}},
			"^(TestOne|TestTwo)$",
		},
		{
			"same name in two packages",
			model.Shard{Tests: []model.TestCase{{ID: "a.TestX"}, {ID: "b.TestX"}}},
			"^(TestX)$",
		},
		{
			"metacharacters quoted",
			model.Shard{Tests: []model.TestCase{{ID: "Test+Plus"}}},
			`^(Test\+Plus)$`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RunRegex(tt.shard)
			assert.Equal(t, tt.want, got)
			_, err := regexp.Compile(got)
			assert.NoError(t, err)
		})
	}
}

func TestRunRegexMatchesOnlyShardTests(t *testing.T) {
	t.Parallel()
	re := regexp.MustCompile(RunRegex(model.Shard{Tests: []model.TestCase{{ID: "p.TestA"}, {ID: "p.TestB"}}}))
	assert.True(t, re.MatchString("TestA"))
	assert.True(t, re.MatchString("TestB"))
	assert.False(t, re.MatchString("TestAB"))
	assert.False(t, re.MatchString("TestC"))
}

func TestTestName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "TestFoo", TestName("github.com/x/y.TestFoo"))
	assert.Equal(t, "TestFoo", TestName("TestFoo"))
	assert.Equal(t, "trailing.", TestName("trailing."))
}

func TestCommandInterpolation(t *testing.T) {
	t.Parallel()
	e := &ProcessExecutor{opts: Options{
		Command: "go test -json -run ${run_regex} ${packages} # ${shard_index}/${shard_count} try ${attempt} $${HOME}",
	}}
	shard := model.Shard{Index: 1, Count: 3, Tests: []model.TestCase{
		{ID: "example.com/a.TestOne", Module: "example.com/a"},
		{ID: "example.com/a.TestTwo", Module: "example.com/a"},
		{ID: "example.com/b.TestThree", Module: "example.com/b"},
	}}

	got := e.Command(shard, 2)
	want := "go test -json -run '^(TestOne|TestTwo|TestThree)$' example.com/a example.com/b # 1/3 try 2 ${HOME}"
	assert.Equal(t, want, got)
}

func TestCommandInterpolation_PerPackage(t *testing.T) {
	t.Parallel()
	e := &ProcessExecutor{opts: Options{Command: "go test -run ${run_regex} ${package}"}}
	shard := model.Shard{Index: 0, Count: 2, Tests: []model.TestCase{
		{ID: "example.com/b.TestOther", Module: "example.com/b"},
		{ID: "example.com/a.TestNew", Module: "example.com/a"},
		{ID: "example.com/b.TestMore", Module: "example.com/b"},
	}}

	got := e.Command(shard, 1)

	assert.Contains(t, got, "go test -run '^(TestOther|TestMore)$' example.com/b\n")
	assert.Contains(t, got, "go test -run '^(TestNew)$' example.com/a\n")
	assert.NotContains(t, got, "TestNew|", "a package run never selects another package's names")
}

func TestCommandInterpolation_PerPackageSingleModule(t *testing.T) {
	t.Parallel()
	e := &ProcessExecutor{opts: Options{Command: "go test -run ${run_regex} ${package} $${package}"}}
	shard := model.Shard{Tests: []model.TestCase{{ID: "p.TestA", Module: "p"}}}
	assert.Equal(t, "go test -run '^(TestA)$' p ${package}", e.Command(shard, 1))
}

func TestCommandInterpolation_TestsQuoted(t *testing.T) {
	t.Parallel()
	e := &ProcessExecutor{opts: Options{Command: "pytest ${tests}"}}
	shard := model.Shard{Tests: []model.TestCase{{ID: "tests/t.py::test_a"}, {ID: "tests/t.py::test_b[x y]"}}}
	assert.Equal(t, "pytest tests/t.py::test_a 'tests/t.py::test_b[x y]'", e.Command(shard, 1))
}

func TestMatchResults(t *testing.T) {
	t.Parallel()
	shard := model.Shard{Tests: []model.TestCase{
		{ID: "example.com/a.TestExact"},
		{ID: "TestBare"},
		{ID: "example.com/a.TestByName"},
		{ID: "x.TestDup"},
		{ID: "y.TestDup"},
	}}
	parsed := testparser.Result{Parsed: true, Tests: []testparser.TestResult{
		{Package: "example.com/a", Name: "TestExact", Outcome: model.OutcomePass},
		{Package: "example.com/other", Name: "TestBare", Outcome: model.OutcomeFail},
		{Name: "TestByName", Outcome: model.OutcomeSkipped},
		{Name: "TestDup", Outcome: model.OutcomePass},
		{Name: "TestUnrelated", Outcome: model.OutcomePass},
	}}

	got := matchResults(shard, parsed)

	assert.Len(t, got, 3)
	assert.Equal(t, model.OutcomePass, got["example.com/a.TestExact"].Outcome)
	assert.Equal(t, model.OutcomeFail, got["TestBare"].Outcome)
	assert.Equal(t, model.OutcomeSkipped, got["example.com/a.TestByName"].Outcome)
	assert.NotContains(t, got, "x.TestDup", "ambiguous bare names are not matched")
}

func TestMatchResults_SameNameInOtherPackage(t *testing.T) {
	t.Parallel()
	shard := model.Shard{Tests: []model.TestCase{
		{ID: "b.TestOther", Module: "b"},
		{ID: "a.TestNew", Module: "a"},
	}}
	parsed := testparser.Result{Parsed: true, Tests: []testparser.TestResult{
		{Package: "b", Name: "TestOther", Outcome: model.OutcomeFail},
		{Package: "a", Name: "TestOther", Outcome: model.OutcomePass},
		{Package: "a", Name: "TestNew", Outcome: model.OutcomePass},
	}}

	got := matchResults(shard, parsed)

	assert.Len(t, got, 2)
	assert.Equal(t, model.OutcomeFail, got["b.TestOther"].Outcome, "a foreign pass must not hide the failure")
	assert.Equal(t, model.OutcomePass, got["a.TestNew"].Outcome)
}

func TestMatchResults_ForeignPackageOnly(t *testing.T) {
	t.Parallel()
	shard := model.Shard{Tests: []model.TestCase{{ID: "b.TestX", Module: "b"}, {ID: "TestY", Module: "b"}}}
	parsed := testparser.Result{Parsed: true, Tests: []testparser.TestResult{
		{Package: "a", Name: "TestX", Outcome: model.OutcomePass},
		{Package: "a", Name: "TestY", Outcome: model.OutcomePass},
	}}

	assert.Empty(t, matchResults(shard, parsed))
}

func TestFillMissing(t *testing.T) {
	t.Parallel()
	shard := model.Shard{Index: 2, Tests: []model.TestCase{{ID: "a"}, {ID: "b"}}}
	reported := map[string]testparser.TestResult{"a": {Name: "a", Outcome: model.OutcomePass}}

	got := fillMissing(shard, 3, reported, "timeout")

	assert.Equal(t, []model.TestOutcome{
		{ID: "a", Outcome: model.OutcomePass, Shard: 2, Attempt: 3},
		{ID: "b", Outcome: model.OutcomeError, Message: "timeout", Shard: 2, Attempt: 3},
	}, got)
}
