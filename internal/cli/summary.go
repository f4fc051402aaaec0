package cli

import (
	"github.com/spf13/cobra"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/orchestrator"
	"github.com/AndreyAkinshin/testshard/internal/report"
)

// summaryCommand re-prints a report written by an earlier run. The exit code
// is the one the run ended with.
func (a *app) summaryCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "summary <report>",
		Short: "Print the summary of a saved report",
		Example: `  testshard summary .testshard/report.json
  testshard summary --format yaml report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := report.Read(args[0])
			if err != nil {
				return tserrors.WrapConfig(err, "cannot load report "+args[0])
			}

			if format != "" {
				f, err := report.ParseFormat(format)
				if err != nil {
					return tserrors.WrapConfig(err, "invalid --format")
				}
				if err := report.Encode(a.stdout, rep, f); err != nil {
					return tserrors.Infrastructure(err, "failed to encode report")
				}
			} else {
				report.Print(a.out, rep)
			}
			a.code = orchestrator.ExitCode(rep, nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "re-encode the report as json or yaml instead of printing the summary")
	return cmd
}
