package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/testshard/internal/config"
	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/report"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// runFlags mirrors config.Config. A flag overrides the file only when it was
// set on the command line.
type runFlags struct {
	configPath     string
	shardCount     int
	workerCount    int
	retry          int
	failFast       bool
	failFastPolicy string
	strategy       string
	timeout        string
	enumerator     string
	listPattern    string
	listCommand    string
	manifest       string
	exec           string
	outputFormat   string
	workdir        string
	logDir         string
	report         string
	reportFormat   string
	metricsFile    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "config file (default: "+config.FileName+" in the working directory or a parent)")
	fs.IntVar(&f.shardCount, "shard-count", 0, "number of shards (default: worker count)")
	fs.IntVar(&f.workerCount, "worker-count", 0, "concurrent shard processes (default: CPU count or "+scheduler.ParallelEnv+")")
	fs.IntVar(&f.retry, "retry", 0, "extra attempts for a failed shard")
	fs.BoolVar(&f.failFast, "fail-fast", false, "stop dispatching after the first failed shard")
	fs.StringVar(&f.failFastPolicy, "fail-fast-policy", "", "running shards on fail-fast: cancel-running or let-finish")
	fs.StringVar(&f.strategy, "strategy", "", "partition strategy: round-robin, cost or module")
	fs.StringVar(&f.timeout, "timeout", "", "per-attempt timeout, e.g. 10m (default: none)")
	fs.StringVar(&f.enumerator, "enumerator", "", "test source: go, manifest or command")
	fs.StringVar(&f.listPattern, "list-pattern", "", "go test -list pattern")
	fs.StringVar(&f.listCommand, "list-command", "", "command printing one test per line")
	fs.StringVar(&f.manifest, "manifest", "", "test manifest file")
	fs.StringVar(&f.exec, "exec", "", "shard command template")
	fs.StringVar(&f.outputFormat, "output-format", "", "shard output parser, or exit to trust the exit code")
	fs.StringVar(&f.workdir, "workdir", "", "working directory of enumeration and shard processes")
	fs.StringVar(&f.logDir, "log-dir", "", "root directory of shard logs")
	fs.StringVar(&f.report, "report", "", "write the suite report to this file")
	fs.StringVar(&f.reportFormat, "report-format", "", "report format: json or yaml (default: from the file extension)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
}

// apply copies the flags that were set onto cfg. Positional arguments
// replace the configured suite.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config, suite []string) {
	changed := cmd.Flags().Changed
	setInt := func(name string, dst *int, v int) {
		if changed(name) {
			*dst = v
		}
	}
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}

	setInt("shard-count", &cfg.ShardCount, f.shardCount)
	setInt("worker-count", &cfg.WorkerCount, f.workerCount)
	setInt("retry", &cfg.Retry, f.retry)
	if changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
	setString("fail-fast-policy", &cfg.FailFastPolicy, f.failFastPolicy)
	setString("strategy", &cfg.Strategy, f.strategy)
	setString("timeout", &cfg.Timeout, f.timeout)
	setString("enumerator", &cfg.Enumerator, f.enumerator)
	setString("list-pattern", &cfg.ListPattern, f.listPattern)
	setString("list-command", &cfg.ListCommand, f.listCommand)
	setString("manifest", &cfg.Manifest, f.manifest)
	setString("exec", &cfg.Exec, f.exec)
	setString("output-format", &cfg.OutputFormat, f.outputFormat)
	setString("workdir", &cfg.Workdir, f.workdir)
	setString("log-dir", &cfg.LogDir, f.logDir)
	setString("report", &cfg.Report, f.report)
	setString("report-format", &cfg.ReportFormat, f.reportFormat)
	setString("metrics-file", &cfg.MetricsFile, f.metricsFile)

	if len(suite) > 0 {
		cfg.Suite = suite
	}
}

// loadConfig layers defaults, the config file and the flags, then validates
// the result. Warnings go to stderr.
func (a *app) loadConfig(cmd *cobra.Command, f *runFlags, suite []string) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		a.log.Debug("using config", zap.String("path", f.configPath))
	} else {
		wd, err := a.getwd()
		if err != nil {
			return nil, tserrors.Infrastructure(err, "failed to get working directory")
		}
		found, path, err := config.Discover(wd)
		if err != nil {
			return nil, err
		}
		cfg = found
		if path != "" {
			a.log.Debug("using config", zap.String("path", path))
		}
	}

	if cmd.Flags().Changed("shard-count") && f.shardCount < 1 {
		return nil, tserrors.InvalidShardSpecf("shard count must be >= 1, got %d", f.shardCount)
	}
	if cmd.Flags().Changed("worker-count") && f.workerCount < 1 {
		return nil, tserrors.Configf("worker count must be >= 1, got %d", f.workerCount)
	}
	f.apply(cmd, cfg, suite)
	if cfg.Report != "" && cfg.ReportFormat == "" {
		cfg.ReportFormat = string(report.FormatForPath(cfg.Report, report.JSON))
	}

	config.ApplyDefaults(cfg, scheduler.DetectWorkers(a.getenv, a.cpus(), a.log))
	warnings, err := config.Validate(cfg)
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
