// Package executor runs one shard attempt as an isolated subprocess.
package executor

import (
	"context"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Executor runs one attempt of one shard.
//
// Execute never returns an error: timeouts, crashes and test failures are
// recorded in the returned ShardResult so that a failing shard cannot take
// the scheduler down with it.
type Executor interface {
	Execute(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult {
	return f(ctx, shard, attempt, timeout)
}
