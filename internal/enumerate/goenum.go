package enumerate

import (
	"context"
	"iter"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/shell"
)

// DefaultListPattern selects top-level tests and fuzz targets.
const DefaultListPattern = "^(Test|Fuzz)"

// goListSummary matches the per-package trailer of go test -list:
//
//	ok  	example.com/pkg	0.005s
//	?   	example.com/pkg	[no test files]
var goListSummary = regexp.MustCompile(`^(ok|\?)\s+(\S+)\s+`)

// goListFailure matches a package that could not be built or listed.
var goListFailure = regexp.MustCompile(`^FAIL\s+(\S+)`)

// GoEnumerator lists Go tests with go test -list. Each test's ID is
// "<package>.<TestName>" and its module is the package import path.
type GoEnumerator struct {
	Dir      string   // Module directory (default: current directory)
	Packages []string // Package patterns (default: ./...)
	Pattern  string   // -list regexp (default: DefaultListPattern)
	GoBinary string   // go executable (default: "go")
	Logger   *zap.Logger
}

// Args returns the go command arguments used for listing.
func (e *GoEnumerator) Args() []string {
	pattern := e.Pattern
	if pattern == "" {
		pattern = DefaultListPattern
	}
	pkgs := e.Packages
	if len(pkgs) == 0 {
		pkgs = []string{"./..."}
	}
	return append([]string{"test", "-list", pattern}, pkgs...)
}

// Enumerate runs go test -list and yields tests package by package.
func (e *GoEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.TestCase, error] {
	return func(yield func(model.TestCase, error) bool) {
		log := e.Logger
		if log == nil {
			log = zap.NewNop()
		}
		bin := e.GoBinary
		if bin == "" {
			bin = "go"
		}
		args := e.Args()
		log.Debug("listing go tests", zap.String("dir", e.Dir), zap.Strings("args", args))

		var pending []string
		var failed []string
		stopped := false

		err := streamLines(ctx, func(ctx context.Context) *exec.Cmd {
			cmd := exec.CommandContext(ctx, bin, args...)
			cmd.Dir = e.Dir
			cmd.Env = os.Environ()
			shell.KillGroupOnCancel(cmd)
			return cmd
		}, func(line string) bool {
			line = strings.TrimRight(line, "\r")
			if m := goListSummary.FindStringSubmatch(line); m != nil {
				names := pending
				pending = nil
				log.Debug("listed package", zap.String("package", m[2]), zap.Int("tests", len(names)))
				for _, name := range names {
					if !yield(model.TestCase{ID: m[2] + "." + name, Module: m[2]}, nil) {
						stopped = true
						return false
					}
				}
				return true
			}
			if m := goListFailure.FindStringSubmatch(line); m != nil {
				failed = append(failed, m[1])
				pending = nil
				return true
			}
			if isGoTestName(line) {
				pending = append(pending, line)
			}
			return true
		})

		if stopped {
			return
		}
		if err != nil {
			if len(failed) > 0 {
				err = tserrors.Discovery(err, "packages failed to build: "+strings.Join(failed, ", "))
			}
			yield(model.TestCase{}, err)
			return
		}
		if len(failed) > 0 {
			yield(model.TestCase{}, tserrors.Discoveryf("packages failed to build: %s", strings.Join(failed, ", ")))
		}
	}
}

// isGoTestName reports whether a go test -list output line is a test name.
// Names are identifiers starting with Test, Fuzz, Benchmark or Example.
func isGoTestName(line string) bool {
	for _, prefix := range []string{"Test", "Fuzz", "Benchmark", "Example"} {
		if strings.HasPrefix(line, prefix) {
			return !strings.ContainsAny(line, " \t")
		}
	}
	return false
}
