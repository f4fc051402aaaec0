// Package cli provides the command-line interface for testshard.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/logging"
	"github.com/AndreyAkinshin/testshard/internal/output"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

// Version is set at build time.
var Version = "dev"

// app carries the per-invocation state shared by all commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
	getenv func(string) string
	getwd  func() (string, error)
	cpus   func() int

	verbose bool
	quiet   bool

	out  *output.Writer
	log  *zap.Logger
	code int
}

// Run executes the CLI with the given arguments and returns an exit code.
// SIGINT and SIGTERM cancel the run; running shards are stopped and the
// partial report is still written.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  output.IsTerminal(),
		getenv: os.Getenv,
		getwd:  os.Getwd,
		cpus:   scheduler.NumCPU,
	}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) int {
	a.out = output.NewWithWriters(a.stdout, a.stderr, a.color)
	a.log = zap.NewNop()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	_ = a.log.Sync()
	if err != nil {
		a.out.ErrorPrefix("%v", err)
		return exitCode(err)
	}
	return a.code
}

// exitCode maps a command error to a process exit code. Errors cobra
// raises itself (unknown commands, wrong argument counts) are usage errors.
func exitCode(err error) int {
	var te *tserrors.TestshardError
	if errors.As(err, &te) {
		return te.ExitCode()
	}
	return tserrors.ExitConfigError
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "testshard",
		Short: "Split a test suite into shards and run them in parallel",
		Long: `testshard enumerates a test suite, partitions it into N shards, runs the
shards as subprocesses on a pool of workers and merges the results into one
report.

Exit codes:
  0  all tests passed
  1  the suite ran and tests failed
  2  invalid flags, configuration or shard spec
  3  infrastructure error (discovery, timeout, crash, aggregation)
  4  cancelled by fail-fast or interrupt`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose && a.quiet {
				return tserrors.Config("--quiet and --verbose are mutually exclusive")
			}
			a.out.SetQuiet(a.quiet)
			log, err := logging.New(a.verbose, a.quiet)
			if err != nil {
				return tserrors.Wrap(err, "failed to initialize logger")
			}
			a.log = log
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return tserrors.WrapConfig(err, cmd.CommandPath())
	})
	root.SetVersionTemplate("testshard {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "errors and the final summary only")

	root.AddCommand(
		a.runCommand(),
		a.planCommand(),
		a.summaryCommand(),
		a.initCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.out.Println("testshard %s", Version)
		},
	}
}
