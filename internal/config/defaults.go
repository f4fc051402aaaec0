package config

import (
	"github.com/AndreyAkinshin/testshard/internal/enumerate"
	"github.com/AndreyAkinshin/testshard/internal/partition"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// Default configuration values.
const (
	DefaultExec         = "go test -json -count=1 -run ${run_regex} ${package}"
	DefaultLogDir       = ".testshard/logs"
	DefaultReportFormat = "json"
	DefaultStrategy     = string(partition.RoundRobin)
	DefaultPolicy       = string(scheduler.CancelRunning)
	DefaultEnumerator   = string(enumerate.KindGo)
)

// ApplyDefaults fills in default values for unset fields. workers is the
// detected worker count (CPU count or TESTSHARD_PARALLEL); it becomes the
// default worker count and, when unset, the shard count.
func ApplyDefaults(cfg *Config, workers int) {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = workers
	}
	if cfg.ShardCount == 0 {
		cfg.ShardCount = cfg.WorkerCount
	}
	if cfg.Strategy == "" {
		cfg.Strategy = DefaultStrategy
	}
	if cfg.FailFastPolicy == "" {
		cfg.FailFastPolicy = DefaultPolicy
	}
	if cfg.Enumerator == "" {
		cfg.Enumerator = DefaultEnumerator
	}
	if cfg.Exec == "" {
		cfg.Exec = DefaultExec
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = DefaultReportFormat
	}
}
