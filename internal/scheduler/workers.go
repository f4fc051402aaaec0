package scheduler

import (
	"runtime"
	"strconv"

	"go.uber.org/zap"
)

// ParallelEnv overrides the detected CPU count as the default worker count.
const ParallelEnv = "TESTSHARD_PARALLEL"

const (
	// minParallelWorkers keeps at least one slot so dispatch cannot stall,
	// even if runtime.NumCPU() reports 0 in a restricted container.
	minParallelWorkers = 1

	// maxParallelWorkers caps TESTSHARD_PARALLEL. Each worker is a test
	// subprocess; beyond this the machine is oversubscribed anyway.
	maxParallelWorkers = 256
)

// defaultWorkerCount returns the CPU-based worker count, at least 1.
func defaultWorkerCount(cpus int) int {
	return max(minParallelWorkers, cpus)
}

// DetectWorkers returns the default worker count for this machine.
// TESTSHARD_PARALLEL wins when it is a number in [1, 256]; invalid values
// log a warning and fall back to the CPU count. getenv is os.Getenv outside
// tests; cpus is runtime.NumCPU() unless the caller fabricates it.
func DetectWorkers(getenv func(string) string, cpus int, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	env := getenv(ParallelEnv)
	if env == "" {
		return defaultWorkerCount(cpus)
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		log.Warn("invalid "+ParallelEnv+" value (not a number), using CPU count",
			zap.String("value", env), zap.Int("cpus", cpus))
		return defaultWorkerCount(cpus)
	}

	if n < minParallelWorkers || n > maxParallelWorkers {
		log.Warn(ParallelEnv+" out of range, using CPU count",
			zap.Int("value", n), zap.Int("min", minParallelWorkers), zap.Int("max", maxParallelWorkers))
		return defaultWorkerCount(cpus)
	}

	return n
}

// NumCPU reports the CPUs available to this process.
func NumCPU() int {
	return runtime.NumCPU()
}

// ClampWorkers bounds a worker count to [1, max(1, shardCount)].
func ClampWorkers(workers, shardCount int) int {
	return max(minParallelWorkers, min(workers, shardCount))
}
