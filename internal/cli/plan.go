package cli

import (
	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/testshard/internal/orchestrator"
	"github.com/AndreyAkinshin/testshard/internal/partition"
)

func (a *app) planCommand() *cobra.Command {
	var (
		f            runFlags
		shardIndex   int
		showTests    bool
		showCommands bool
	)
	cmd := &cobra.Command{
		Use:   "plan [suite...]",
		Short: "Print the partition without running anything",
		Long: `Enumerate the suite and print how it would be split into shards.

With --shard-index, print only the test IDs of that shard, one per line, so
that an external CI matrix can run a single shard.`,
		Example: `  testshard plan --shard-count 4 ./...
  testshard plan --shard-count 4 --shard-index 2 ./...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("shard-index") {
				if err := partition.ValidateSpec(shardIndex, cfg.ShardCount); err != nil {
					return err
				}
			}

			orch := orchestrator.New(cfg, orchestrator.WithLogger(a.log))
			shards, err := orch.Plan(cmd.Context())
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("shard-index") {
				for _, id := range shards[shardIndex].IDs() {
					a.out.Println("%s", id)
				}
				return nil
			}

			var commands func(i int) string
			if showCommands {
				exec, err := orchestrator.NewExecutor(cfg, orch.RunID(), a.log)
				if err != nil {
					return err
				}
				commands = func(i int) string { return exec.Command(shards[i], 1) }
			}

			total := 0
			for i, s := range shards {
				total += s.Len()
				a.out.PlanShard(s.Index, s.Len(), s.Cost)
				if commands != nil {
					a.out.PlanDetail("$ %s", commands(i))
				}
				if showTests {
					for _, id := range s.IDs() {
						a.out.PlanDetail("%s", id)
					}
				}
			}
			a.out.Info("%d tests in %d shards (%s, %d workers)", total, len(shards), cfg.Strategy, min(cfg.WorkerCount, len(shards)))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&shardIndex, "shard-index", 0, "print the test IDs of this shard only")
	cmd.Flags().BoolVar(&showTests, "tests", false, "list the tests of every shard")
	cmd.Flags().BoolVar(&showCommands, "commands", false, "show the command each shard would run")
	return cmd
}
