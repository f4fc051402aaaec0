package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/testshard/internal/orchestrator"
	"github.com/AndreyAkinshin/testshard/internal/report"
)

func (a *app) runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Partition the suite and run the shards in parallel",
		Long: `Enumerate the tests of the suite, split them into shards and run every
shard as a subprocess. Positional arguments replace the configured suite
(Go package patterns for the go enumerator).

The exec template may use ${tests}, ${run_regex}, ${packages},
${shard_index}, ${shard_count} and ${attempt}. A template that uses
${package} runs once per package of the shard, with ${tests} and
${run_regex} limited to that package.`,
		Example: `  testshard run ./...
  testshard run --shard-count 8 --worker-count 4 --retry 1 ./...
  testshard run --enumerator manifest --manifest tests.yaml --exec './run.sh ${tests}' --output-format exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, &f, args)
			if err != nil {
				return err
			}

			orch := orchestrator.New(cfg,
				orchestrator.WithLogger(a.log),
				orchestrator.WithOutput(a.out),
			)
			a.log.Debug("starting run",
				zap.String("run_id", orch.RunID()),
				zap.Int("shards", cfg.ShardCount),
				zap.Int("workers", cfg.WorkerCount),
				zap.Int("retry", cfg.Retry),
				zap.String("strategy", cfg.Strategy))
			a.out.Info("Running %d shard(s) on %d worker(s), run %s", cfg.ShardCount, cfg.WorkerCount, orch.RunID())

			rep, err := orch.Run(cmd.Context())
			if rep != nil {
				report.Print(a.out, rep)
				if cfg.Report != "" && err == nil {
					a.out.Hint("Report written to %s", cfg.Report)
				}
			}
			if err != nil {
				return err
			}
			a.code = orchestrator.ExitCode(rep, nil)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
