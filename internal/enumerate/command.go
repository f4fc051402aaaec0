package enumerate

import (
	"context"
	"iter"
	"os"
	"os/exec"
	"strconv"
	"strings"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/shell"
)

// CommandEnumerator runs a shell command that prints one test per line.
// A line is either a bare ID or tab-separated columns:
//
//	<id>
//	<module>\t<id>
//	<module>\t<id>\t<cost>
//
// Blank lines and lines starting with '#' are ignored.
type CommandEnumerator struct {
	Command string
	Dir     string
	Env     map[string]string
}

// Enumerate runs the command and yields one test per output line.
func (e *CommandEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.TestCase, error] {
	return func(yield func(model.TestCase, error) bool) {
		if strings.TrimSpace(e.Command) == "" {
			yield(model.TestCase{}, tserrors.Config("list command is empty"))
			return
		}

		var lineErr error
		stopped := false
		lineNo := 0
		err := streamLines(ctx, func(ctx context.Context) *exec.Cmd {
			cmd := shell.Command(ctx, e.Command)
			cmd.Dir = e.Dir
			cmd.Env = shell.Environ(os.Environ(), e.Env)
			return cmd
		}, func(line string) bool {
			lineNo++
			tc, ok, err := ParseListLine(line)
			if err != nil {
				lineErr = tserrors.Discoveryf("list output line %d: %v", lineNo, err)
				return false
			}
			if !ok {
				return true
			}
			if !yield(tc, nil) {
				stopped = true
				return false
			}
			return true
		})

		switch {
		case stopped:
		case lineErr != nil:
			yield(model.TestCase{}, lineErr)
		case err != nil:
			yield(model.TestCase{}, err)
		}
	}
}

// ParseListLine parses one line of list command output. ok is false for
// blank and comment lines.
func ParseListLine(line string) (tc model.TestCase, ok bool, err error) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
		return model.TestCase{}, false, nil
	}

	fields := strings.Split(line, "\t")
	switch len(fields) {
	case 1:
		tc.ID = strings.TrimSpace(fields[0])
	case 2:
		tc.Module = strings.TrimSpace(fields[0])
		tc.ID = strings.TrimSpace(fields[1])
	case 3:
		tc.Module = strings.TrimSpace(fields[0])
		tc.ID = strings.TrimSpace(fields[1])
		cost, perr := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if perr != nil || !(cost >= 0) {
			return model.TestCase{}, false, tserrors.Discoveryf("invalid cost %q", fields[2])
		}
		tc.Cost = cost
	default:
		return model.TestCase{}, false, tserrors.Discoveryf("expected at most 3 tab-separated columns, got %d", len(fields))
	}
	if tc.ID == "" {
		return model.TestCase{}, false, tserrors.Discoveryf("empty test ID")
	}
	return tc, true, nil
}
