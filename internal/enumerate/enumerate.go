// Package enumerate discovers the ordered list of tests in a suite.
//
// Enumerators are lazy: tests are yielded as the underlying source produces
// them. The same suite state always yields the same tests in the same order.
// Any failure to load the suite is a discovery error, which is fatal for the
// whole run.
package enumerate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os/exec"
	"strings"
	"time"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Enumerator produces the tests of a suite.
type Enumerator interface {
	// Enumerate returns a finite sequence of test cases. A non-nil error
	// ends the sequence.
	Enumerate(ctx context.Context) iter.Seq2[model.TestCase, error]
}

// Kind names an enumerator implementation.
type Kind string

const (
	KindGo       Kind = "go"
	KindManifest Kind = "manifest"
	KindCommand  Kind = "command"
)

// Kinds lists the supported enumerator kinds.
var Kinds = []Kind{KindGo, KindManifest, KindCommand}

// ParseKind converts a flag value into a Kind. An empty string selects KindGo.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindGo, nil
	}
	for _, k := range Kinds {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", tserrors.Configf("unknown enumerator %q (valid: go, manifest, command)", s)
}

// Collect drains seq into a slice. It fails on the first error and on any
// empty or duplicate test ID.
func Collect(seq iter.Seq2[model.TestCase, error]) ([]model.TestCase, error) {
	var tests []model.TestCase
	seen := make(map[string]int)
	for tc, err := range seq {
		if err != nil {
			return nil, asDiscovery(err)
		}
		if tc.ID == "" {
			return nil, tserrors.Discoveryf("test at position %d has an empty ID", len(tests))
		}
		if pos, dup := seen[tc.ID]; dup {
			return nil, tserrors.Discoveryf("duplicate test ID %q at positions %d and %d", tc.ID, pos, len(tests))
		}
		seen[tc.ID] = len(tests)
		tests = append(tests, tc)
	}
	return tests, nil
}

func asDiscovery(err error) error {
	var tsErr *tserrors.TestshardError
	if errors.As(err, &tsErr) {
		return err
	}
	return tserrors.Discovery(err, "test discovery failed")
}

// errStopped is returned by streamLines when the consumer stopped early.
var errStopped = errors.New("enumeration stopped")

// waitDelay bounds how long a killed list command may hold its output pipes
// open through orphaned children.
const waitDelay = 2 * time.Second

// maxStderrTail bounds the stderr excerpt attached to discovery errors.
const maxStderrTail = 2048

// streamLines starts the command built by newCmd and calls each for every
// stdout line until each returns false. Stopping early kills the process.
// A non-zero exit is reported with the tail of stderr.
func streamLines(ctx context.Context, newCmd func(context.Context) *exec.Cmd, each func(line string) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := newCmd(ctx)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return tserrors.Discovery(err, "list command setup failed")
	}
	if err := cmd.Start(); err != nil {
		return tserrors.Discovery(err, "list command failed to start")
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	stopped := false
	for scanner.Scan() {
		if !each(scanner.Text()) {
			stopped = true
			break
		}
	}
	if stopped {
		cancel()
		_ = cmd.Wait()
		return errStopped
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return tserrors.Discovery(ctxErr, "test discovery interrupted")
	}
	if waitErr != nil {
		return tserrors.Discovery(waitErr, fmt.Sprintf("list command failed: %s", stderrTail(stderr.String())))
	}
	if scanErr != nil {
		return tserrors.Discovery(scanErr, "reading list command output")
	}
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no output on stderr"
	}
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return s
}
