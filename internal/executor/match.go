package executor

import (
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/testparser"
)

// matchResults maps the shard's test IDs to parsed results. A parsed test
// that names its package matches only the shard test with the same
// qualified ID, or an unqualified shard test of that name whose module is
// unknown or the same package. A parsed test without a package matches by
// exact ID, then by bare name when that name is unique within the shard.
// Parsed tests that belong to no shard test are dropped, and a fallback
// match never replaces an exact one.
func matchResults(shard model.Shard, parsed testparser.Result) map[string]testparser.TestResult {
	byID := make(map[string]model.TestCase, shard.Len())
	nameCount := make(map[string]int, shard.Len())
	nameOwner := make(map[string]string, shard.Len())
	for _, tc := range shard.Tests {
		byID[tc.ID] = tc
		name := TestName(tc.ID)
		nameCount[name]++
		nameOwner[name] = tc.ID
	}

	matched := make(map[string]testparser.TestResult)
	exact := make(map[string]bool)
	for _, tr := range parsed.Tests {
		if _, ok := byID[tr.ID()]; ok {
			matched[tr.ID()] = tr
			exact[tr.ID()] = true
			continue
		}
		var id string
		if tr.Package != "" {
			tc, ok := byID[tr.Name]
			if !ok || (tc.Module != "" && tc.Module != tr.Package) {
				continue
			}
			id = tc.ID
		} else if nameCount[tr.Name] == 1 {
			id = nameOwner[tr.Name]
		} else {
			continue
		}
		if !exact[id] {
			matched[id] = tr
		}
	}
	return matched
}

// uniform assigns the same outcome to every test of the shard.
func uniform(shard model.Shard, outcome model.Outcome, reason string) map[string]testparser.TestResult {
	m := make(map[string]testparser.TestResult, shard.Len())
	for _, tc := range shard.Tests {
		m[tc.ID] = testparser.TestResult{Name: tc.ID, Outcome: outcome, Reason: reason}
	}
	return m
}

// fillMissing returns one outcome per shard test in shard order. Tests absent
// from reported become ERROR with the given message.
func fillMissing(shard model.Shard, attempt int, reported map[string]testparser.TestResult, missingMsg string) []model.TestOutcome {
	outcomes := make([]model.TestOutcome, 0, shard.Len())
	for _, tc := range shard.Tests {
		o := model.TestOutcome{ID: tc.ID, Shard: shard.Index, Attempt: attempt}
		if tr, ok := reported[tc.ID]; ok {
			o.Outcome = tr.Outcome
			o.Message = tr.Reason
			o.Duration = tr.Elapsed
		} else {
			o.Outcome = model.OutcomeError
			o.Message = missingMsg
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
