// Package errors provides structured error types and exit codes for testshard.
//
// The taxonomy separates a red test suite from a broken pipeline: test
// failures are never represented as errors (they live in the SuiteReport),
// while every error kind here aborts the run with its own exit code.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes consumed by CI.
const (
	ExitSuccess             = 0 // All tests passed
	ExitTestFailures        = 1 // Suite ran to completion but tests failed
	ExitConfigError         = 2 // Invalid flags, config file or shard spec
	ExitInfrastructureError = 3 // Discovery, timeout, crash or aggregation failure
	ExitCancelled           = 4 // Run cancelled by fail-fast or interrupt
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindInvalidShardSpec
	KindDiscovery
	KindAggregation
	KindInfrastructure
	KindCancelled
)

var kindNames = map[ErrorKind]string{
	KindRuntime:          "runtime",
	KindConfig:           "config",
	KindInvalidShardSpec: "invalid shard spec",
	KindDiscovery:        "discovery",
	KindAggregation:      "aggregation",
	KindInfrastructure:   "infrastructure",
	KindCancelled:        "cancelled",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// TestshardError is the base error type for testshard.
type TestshardError struct {
	Kind    ErrorKind
	Message string
	Shard   int   // Shard index if applicable, -1 otherwise
	Cause   error // Underlying error
}

func (e *TestshardError) Error() string {
	msg := e.Message
	if e.Shard >= 0 {
		msg = fmt.Sprintf("[shard %d] %s", e.Shard, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TestshardError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *TestshardError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindInvalidShardSpec:
		return ExitConfigError
	case KindCancelled:
		return ExitCancelled
	default:
		return ExitInfrastructureError
	}
}

func newError(kind ErrorKind, message string) *TestshardError {
	return &TestshardError{Kind: kind, Message: message, Shard: -1}
}

// New creates a new runtime error.
func New(message string) *TestshardError {
	return newError(KindRuntime, message)
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *TestshardError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *TestshardError {
	return newError(KindConfig, message)
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *TestshardError {
	return Config(fmt.Sprintf(format, args...))
}

// WrapConfig wraps a cause as a configuration error.
func WrapConfig(cause error, message string) *TestshardError {
	e := newError(KindConfig, message)
	e.Cause = cause
	return e
}

// InvalidShardSpecf reports an impossible (index, count) pair or strategy.
func InvalidShardSpecf(format string, args ...interface{}) *TestshardError {
	return newError(KindInvalidShardSpec, fmt.Sprintf(format, args...))
}

// Discovery wraps a failure to enumerate the suite.
func Discovery(cause error, message string) *TestshardError {
	e := newError(KindDiscovery, message)
	e.Cause = cause
	return e
}

// Discoveryf creates a discovery error with formatting and no cause.
func Discoveryf(format string, args ...interface{}) *TestshardError {
	return newError(KindDiscovery, fmt.Sprintf(format, args...))
}

// Aggregationf reports a broken merge invariant, such as a test reported by two shards.
func Aggregationf(format string, args ...interface{}) *TestshardError {
	return newError(KindAggregation, fmt.Sprintf(format, args...))
}

// Infrastructure wraps an orchestration failure that is not the suite's fault.
func Infrastructure(cause error, message string) *TestshardError {
	e := newError(KindInfrastructure, message)
	e.Cause = cause
	return e
}

// Cancelled creates a cancellation error carrying the reason.
func Cancelled(reason string) *TestshardError {
	return newError(KindCancelled, reason)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *TestshardError {
	e := New(message)
	e.Cause = err
	return e
}

// ShardError creates an error scoped to a shard.
func ShardError(kind ErrorKind, shard int, message string) *TestshardError {
	e := newError(kind, message)
	e.Shard = shard
	return e
}

// Is reports whether err is or wraps a TestshardError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var te *TestshardError
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var te *TestshardError
	if errors.As(err, &te) {
		return te.ExitCode()
	}
	return ExitInfrastructureError
}
