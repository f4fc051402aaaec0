// Package testshard provides public constants for external tools
// integrating with testshard.
package testshard

// Exit codes returned by the testshard CLI.
// These constants allow CI scripts and wrappers to check exit codes
// symbolically rather than using magic numbers.
const (
	// ExitSuccess indicates every test passed.
	ExitSuccess = 0

	// ExitTestFailures indicates the suite ran to completion and tests failed.
	ExitTestFailures = 1

	// ExitConfigError indicates invalid flags, configuration or shard spec.
	ExitConfigError = 2

	// ExitInfrastructureError indicates the pipeline itself failed: test
	// discovery, a shard timeout or crash, or an aggregation conflict.
	ExitInfrastructureError = 3

	// ExitCancelled indicates fail-fast or an interrupt stopped the run.
	ExitCancelled = 4
)
