package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/shell"
	"github.com/AndreyAkinshin/testshard/internal/testparser"
)

// FormatExitCode derives every test's outcome from the process exit status
// alone, for commands whose output cannot be parsed per test.
const FormatExitCode = "exit"

// waitDelay bounds how long a killed shard may hold its output pipes open
// through orphaned children.
const waitDelay = 5 * time.Second

// Options configures a ProcessExecutor.
type Options struct {
	// Command is the shell command template run for each shard attempt.
	Command string
	// Format selects the output parser (see testparser.Registry), or
	// FormatExitCode. Default: testparser.DefaultFormat.
	Format string
	// Dir is the working directory of shard processes.
	Dir string
	// Env adds variables to the inherited environment.
	Env map[string]string
	// LogDir is the root of shard logs. Empty disables log files.
	LogDir string
	// RunID scopes logs so that runs never share a directory.
	RunID  string
	Logger *zap.Logger
}

// ProcessExecutor runs each shard attempt as a shell subprocess.
type ProcessExecutor struct {
	opts   Options
	parser testparser.Parser // nil for FormatExitCode
	log    *zap.Logger
}

// NewProcessExecutor validates opts and returns an executor.
// An unknown output format or an executable missing from PATH is a
// configuration error, reported before any shard runs.
func NewProcessExecutor(opts Options) (*ProcessExecutor, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, tserrors.Config("exec command is empty")
	}
	if name := shell.CommandName(opts.Command); name != "" && !strings.Contains(name, "${") && !shell.Available(name) {
		return nil, tserrors.Configf("exec command %q not found in PATH", name)
	}

	e := &ProcessExecutor{opts: opts, log: opts.Logger}
	if e.log == nil {
		e.log = zap.NewNop()
	}

	format := opts.Format
	if format == "" {
		format = testparser.DefaultFormat
	}
	if format != FormatExitCode {
		e.parser = testparser.NewRegistry().GetParser(format)
		if e.parser == nil {
			return nil, tserrors.Configf("unknown output format %q (valid: %s, %s)",
				format, strings.Join(testparser.NewRegistry().Formats(), ", "), FormatExitCode)
		}
	}
	return e, nil
}

// LogPath returns the log file for one shard attempt:
// <LogDir>/<RunID>/shard-NNN/attempt-K.log.
func LogPath(logDir, runID string, shard, attempt int) string {
	return filepath.Join(logDir, runID, fmt.Sprintf("shard-%03d", shard), fmt.Sprintf("attempt-%d.log", attempt))
}

// Command returns the interpolated shell command for a shard attempt.
// A template that references ${package} is rendered once per module of the
// shard, with the other variables scoped to that module's tests, and the
// renderings run in sequence.
func (e *ProcessExecutor) Command(shard model.Shard, attempt int) string {
	if !references(e.opts.Command, VarPackage) {
		return shell.Interpolate(e.opts.Command, templateVars(shard, attempt))
	}
	groups := byModule(shard)
	cmds := make([]string, 0, len(groups))
	for _, g := range groups {
		vars := templateVars(g, attempt)
		vars[VarPackage] = ""
		if mod := g.Tests[0].Module; mod != "" {
			vars[VarPackage] = shell.Quote(mod)
		}
		cmds = append(cmds, shell.Interpolate(e.opts.Command, vars))
	}
	if len(cmds) == 0 {
		return shell.Interpolate(e.opts.Command, templateVars(shard, attempt))
	}
	return shell.Sequence(cmds)
}

// Execute runs the shard attempt and classifies the result.
func (e *ProcessExecutor) Execute(ctx context.Context, shard model.Shard, attempt int, timeout time.Duration) model.ShardResult {
	start := time.Now()
	result := model.ShardResult{
		Shard:     shard.Index,
		Attempt:   attempt,
		Retries:   attempt - 1,
		StartedAt: start,
		ExitCode:  -1,
	}
	log := e.log.With(zap.Int("shard", shard.Index), zap.Int("attempt", attempt))

	logFile, logPath, err := e.openLog(shard.Index, attempt)
	if err != nil {
		log.Error("cannot create shard log", zap.Error(err))
		result.Failure = model.FailureCrash
		result.Message = err.Error()
		result.Outcomes = fillMissing(shard, attempt, nil, "crash: "+err.Error())
		result.Duration = time.Since(start)
		return result
	}
	result.LogPath = logPath
	defer logFile.Close()

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	cmdStr := e.Command(shard, attempt)
	cmd := shell.Command(runCtx, cmdStr)
	cmd.Dir = e.opts.Dir
	cmd.WaitDelay = waitDelay
	env := shardEnv(shard, attempt)
	for k, v := range e.opts.Env {
		env[k] = v
	}
	cmd.Env = shell.Environ(os.Environ(), env)

	var stdout bytes.Buffer
	cmd.Stdout = io.MultiWriter(logFile, &stdout)
	cmd.Stderr = logFile

	log.Debug("starting shard", zap.String("command", cmdStr), zap.Int("tests", shard.Len()))
	runErr := cmd.Run()
	result.Duration = time.Since(start)
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	var reported map[string]testparser.TestResult
	if e.parser != nil {
		reported = matchResults(shard, e.parser.Parse(stdout.String()))
	} else if runErr == nil {
		reported = uniform(shard, model.OutcomePass, "")
	}

	e.classify(&result, shard, attempt, reported, runErr, ctx.Err(), runCtx.Err())

	fields := []zap.Field{
		zap.Duration("duration", result.Duration),
		zap.Int("exit_code", result.ExitCode),
		zap.String("log", logPath),
	}
	if result.Failure != model.FailureNone {
		log.Info("shard attempt failed", append(fields, zap.String("failure", string(result.Failure)), zap.String("reason", result.Message))...)
	} else {
		log.Debug("shard attempt passed", fields...)
	}
	return result
}

// classify fills outcomes, failure kind and message from the process
// result. Tests without a reported outcome become ERROR with the failure
// reason; tests that reported keep their outcome.
func (e *ProcessExecutor) classify(result *model.ShardResult, shard model.Shard, attempt int, reported map[string]testparser.TestResult, runErr, parentErr, runCtxErr error) {
	missing := shard.Len() - len(reported)

	var exitErr *exec.ExitError
	switch {
	case parentErr != nil:
		result.Failure = model.FailureCancelled
		result.Message = "cancelled: " + parentErr.Error()
		result.Outcomes = fillMissing(shard, attempt, reported, "cancelled")
		return
	case errors.Is(runCtxErr, context.DeadlineExceeded):
		result.Failure = model.FailureTimeout
		result.Message = fmt.Sprintf("timed out after %s", result.Duration.Round(time.Millisecond))
		result.Outcomes = fillMissing(shard, attempt, reported, "timeout")
		return
	case runErr != nil && !errors.As(runErr, &exitErr):
		result.Failure = model.FailureCrash
		result.Message = runErr.Error()
		result.Outcomes = fillMissing(shard, attempt, reported, "crash: "+runErr.Error())
		return
	}

	if e.parser == nil && runErr != nil {
		reported = uniform(shard, model.OutcomeFail, runErr.Error())
		missing = 0
	}

	switch {
	case runErr != nil && missing > 0:
		result.Failure = model.FailureCrash
		result.Message = fmt.Sprintf("%v with %d of %d tests unreported", runErr, missing, shard.Len())
		result.Outcomes = fillMissing(shard, attempt, reported, "crash: "+runErr.Error())
	case missing > 0:
		result.Failure = model.FailureTests
		result.Message = fmt.Sprintf("%d of %d tests reported no outcome", missing, shard.Len())
		result.Outcomes = fillMissing(shard, attempt, reported, "no outcome reported")
	default:
		result.Outcomes = fillMissing(shard, attempt, reported, "")
		failed := 0
		for _, o := range result.Outcomes {
			if !o.Outcome.Passing() {
				failed++
			}
		}
		switch {
		case failed > 0:
			result.Failure = model.FailureTests
			result.Message = fmt.Sprintf("%d of %d tests failed", failed, shard.Len())
		case runErr != nil:
			// Every test passed but the process still failed, e.g. in TestMain
			// or a package-level leak check.
			result.Failure = model.FailureCrash
			result.Message = runErr.Error() + " after all tests passed"
		}
	}
}

// openLog creates the attempt's log file. O_EXCL guarantees a log is never
// overwritten within a run.
func (e *ProcessExecutor) openLog(shard, attempt int) (*os.File, string, error) {
	if e.opts.LogDir == "" {
		f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		return f, "", err
	}
	path := LogPath(e.opts.LogDir, e.opts.RunID, shard, attempt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("create log file: %w", err)
	}
	return f, path, nil
}
