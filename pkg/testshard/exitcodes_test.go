package testshard_test

import (
	"testing"

	"github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/pkg/testshard"
)

// TestExitCodeValues pins the documented exit codes.
func TestExitCodeValues(t *testing.T) {
	tests := []struct {
		name     string
		constant int
		expected int
	}{
		{"ExitSuccess", testshard.ExitSuccess, 0},
		{"ExitTestFailures", testshard.ExitTestFailures, 1},
		{"ExitConfigError", testshard.ExitConfigError, 2},
		{"ExitInfrastructureError", testshard.ExitInfrastructureError, 3},
		{"ExitCancelled", testshard.ExitCancelled, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("testshard.%s = %d, want %d", tt.name, tt.constant, tt.expected)
			}
		})
	}
}

// TestExitCodeConsistency verifies that public exit code constants match
// the internal errors package constants.
func TestExitCodeConsistency(t *testing.T) {
	tests := []struct {
		name     string
		public   int
		internal int
	}{
		{"ExitSuccess", testshard.ExitSuccess, errors.ExitSuccess},
		{"ExitTestFailures", testshard.ExitTestFailures, errors.ExitTestFailures},
		{"ExitConfigError", testshard.ExitConfigError, errors.ExitConfigError},
		{"ExitInfrastructureError", testshard.ExitInfrastructureError, errors.ExitInfrastructureError},
		{"ExitCancelled", testshard.ExitCancelled, errors.ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.public != tt.internal {
				t.Errorf("testshard.%s = %d, internal errors.%s = %d", tt.name, tt.public, tt.name, tt.internal)
			}
		})
	}
}
