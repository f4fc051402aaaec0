package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testshard/internal/enumerate"
	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/partition"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration with defaults applied and returns
// warnings for settings that are accepted but have no effect.
//
// A bad shard count or strategy is an InvalidShardSpec error; anything else
// is a config error. Both exit with the configuration exit code.
func Validate(cfg *Config) (warnings []string, err error) {
	if cfg.ShardCount < 1 {
		return nil, tserrors.InvalidShardSpecf("shard_count must be positive, got %d", cfg.ShardCount)
	}
	if _, err := partition.ParseStrategy(cfg.Strategy); err != nil {
		return nil, err
	}
	if cfg.WorkerCount < 1 {
		return nil, invalid("worker_count", fmt.Sprintf("must be positive, got %d", cfg.WorkerCount))
	}
	if cfg.Retry < 0 {
		return nil, invalid("retry", fmt.Sprintf("must not be negative, got %d", cfg.Retry))
	}
	if _, err := scheduler.ParsePolicy(cfg.FailFastPolicy); err != nil {
		return nil, err
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Exec) == "" {
		return nil, invalid("exec", "is required")
	}
	switch cfg.ReportFormat {
	case "json", "yaml":
	default:
		return nil, invalid("report_format", fmt.Sprintf(`must be "json" or "yaml", got %q`, cfg.ReportFormat))
	}

	kind, err := enumerate.ParseKind(cfg.Enumerator)
	if err != nil {
		return nil, err
	}
	switch kind {
	case enumerate.KindManifest:
		if cfg.Manifest == "" {
			return nil, invalid("manifest", "is required by the manifest enumerator")
		}
	case enumerate.KindCommand:
		if strings.TrimSpace(cfg.ListCommand) == "" {
			return nil, invalid("list_command", "is required by the command enumerator")
		}
	}

	if kind != enumerate.KindManifest && cfg.Manifest != "" {
		warnings = append(warnings, fmt.Sprintf("manifest is ignored by the %s enumerator", kind))
	}
	if kind != enumerate.KindCommand && cfg.ListCommand != "" {
		warnings = append(warnings, fmt.Sprintf("list_command is ignored by the %s enumerator", kind))
	}
	if kind != enumerate.KindGo && cfg.ListPattern != "" {
		warnings = append(warnings, fmt.Sprintf("list_pattern is ignored by the %s enumerator", kind))
	}
	if cfg.WorkerCount > cfg.ShardCount {
		warnings = append(warnings, fmt.Sprintf("worker_count %d exceeds shard_count %d; only %d workers will be used",
			cfg.WorkerCount, cfg.ShardCount, cfg.ShardCount))
	}
	if !cfg.FailFast && cfg.FailFastPolicy != DefaultPolicy {
		warnings = append(warnings, "fail_fast_policy has no effect without fail_fast")
	}
	return warnings, nil
}

// TimeoutDuration parses the per-attempt timeout. Empty means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, invalid("timeout", err.Error())
	}
	if d < 0 {
		return 0, invalid("timeout", "must not be negative")
	}
	return d, nil
}

func invalid(field, message string) error {
	return tserrors.WrapConfig(&ValidationError{Field: field, Message: message}, "invalid configuration")
}
