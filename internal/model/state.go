package model

import (
	"fmt"
	"sort"
)

// ShardState is a node of the per-shard scheduling state machine:
//
//	PENDING -> RUNNING -> {SUCCEEDED, FAILED, FAILED_RETRYING}
//	FAILED_RETRYING -> RUNNING
//
// CANCELLED is entered from PENDING, RUNNING or FAILED_RETRYING when a
// fail-fast or interrupt stops the run.
type ShardState string

const (
	StatePending        ShardState = "PENDING"
	StateRunning        ShardState = "RUNNING"
	StateSucceeded      ShardState = "SUCCEEDED"
	StateFailed         ShardState = "FAILED"
	StateFailedRetrying ShardState = "FAILED_RETRYING"
	StateCancelled      ShardState = "CANCELLED"
)

var transitions = map[ShardState][]ShardState{
	StatePending:        {StateRunning, StateCancelled},
	StateRunning:        {StateSucceeded, StateFailed, StateFailedRetrying, StateCancelled},
	StateFailedRetrying: {StateRunning, StateCancelled},
}

// Terminal reports whether no further transitions are possible.
func (s ShardState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to ShardState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error for an illegal edge.
func ValidateTransition(from, to ShardState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal shard transition %s -> %s", from, to)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
