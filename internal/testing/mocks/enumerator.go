package mocks

import (
	"context"
	"fmt"
	"iter"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Enumerator implements enumerate.Enumerator over a fixed test list.
type Enumerator struct {
	tests []model.TestCase
	err   error
}

// NewEnumerator creates an enumerator yielding tests in order.
func NewEnumerator(tests ...model.TestCase) *Enumerator {
	return &Enumerator{tests: tests}
}

// WithError makes the sequence end with err after all tests.
func (m *Enumerator) WithError(err error) *Enumerator {
	m.err = err
	return m
}

// Enumerate implements enumerate.Enumerator.
func (m *Enumerator) Enumerate(ctx context.Context) iter.Seq2[model.TestCase, error] {
	return func(yield func(model.TestCase, error) bool) {
		for _, tc := range m.tests {
			if err := ctx.Err(); err != nil {
				yield(model.TestCase{}, err)
				return
			}
			if !yield(tc, nil) {
				return
			}
		}
		if m.err != nil {
			yield(model.TestCase{}, m.err)
		}
	}
}

// TestCases returns n test cases with IDs "t00", "t01", ... in module "m".
func TestCases(n int) []model.TestCase {
	tests := make([]model.TestCase, n)
	for i := range tests {
		tests[i] = model.TestCase{ID: fmt.Sprintf("t%02d", i), Module: "m"}
	}
	return tests
}
