package executor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/shell"
)

// Template variables available to the exec command.
const (
	VarTests      = "tests"       // shell-quoted test IDs
	VarRunRegex   = "run_regex"   // anchored go test -run pattern of test names
	VarPackages   = "packages"    // shell-quoted distinct modules, first-seen order
	VarPackage    = "package"     // one module; the command runs once per module
	VarShardIndex = "shard_index" // 0-based
	VarShardCount = "shard_count"
	VarAttempt    = "attempt" // 1-based
)

// Environment variables exported to every shard process.
const (
	EnvShardIndex = shell.EnvPrefix + "SHARD_INDEX"
	EnvShardCount = shell.EnvPrefix + "SHARD_COUNT"
	EnvAttempt    = shell.EnvPrefix + "ATTEMPT"
	EnvTests      = shell.EnvPrefix + "TESTS"
)

// templateVars returns the interpolation values for one shard attempt.
func templateVars(shard model.Shard, attempt int) map[string]string {
	return map[string]string{
		VarTests:      shell.QuoteAll(shard.IDs()),
		VarRunRegex:   shell.Quote(RunRegex(shard)),
		VarPackages:   shell.QuoteAll(modules(shard)),
		VarShardIndex: strconv.Itoa(shard.Index),
		VarShardCount: strconv.Itoa(shard.Count),
		VarAttempt:    strconv.Itoa(attempt),
	}
}

// shardEnv returns the TESTSHARD_ variables for one shard attempt.
// TESTSHARD_TESTS holds one ID per line.
func shardEnv(shard model.Shard, attempt int) map[string]string {
	return map[string]string{
		EnvShardIndex: strconv.Itoa(shard.Index),
		EnvShardCount: strconv.Itoa(shard.Count),
		EnvAttempt:    strconv.Itoa(attempt),
		EnvTests:      strings.Join(shard.IDs(), "\n"),
	}
}

// RunRegex builds a go test -run pattern that matches exactly the shard's
// top-level tests. Go test IDs are "<package>.<Name>"; the name is the part
// after the last dot. An empty shard yields a pattern that matches nothing.
func RunRegex(shard model.Shard) string {
	if len(shard.Tests) == 0 {
		return "^$"
	}
	seen := make(map[string]bool, len(shard.Tests))
	names := make([]string, 0, len(shard.Tests))
	for _, tc := range shard.Tests {
		name := TestName(tc.ID)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, regexp.QuoteMeta(name))
	}
	return "^(" + strings.Join(names, "|") + ")$"
}

// TestName strips the package qualifier from a Go test ID.
func TestName(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

// references reports whether tmpl uses ${name} outside an escape.
func references(tmpl, name string) bool {
	return strings.Contains(strings.ReplaceAll(tmpl, "$${", ""), "${"+name+"}")
}

// byModule splits a shard into one sub-shard per module, in first-seen
// order. Every sub-shard keeps the shard's index and count.
func byModule(shard model.Shard) []model.Shard {
	pos := make(map[string]int)
	var groups []model.Shard
	for _, tc := range shard.Tests {
		i, ok := pos[tc.Module]
		if !ok {
			i = len(groups)
			pos[tc.Module] = i
			groups = append(groups, model.Shard{Index: shard.Index, Count: shard.Count})
		}
		groups[i].Tests = append(groups[i].Tests, tc)
	}
	return groups
}

func modules(shard model.Shard) []string {
	seen := make(map[string]bool)
	var mods []string
	for _, tc := range shard.Tests {
		if tc.Module == "" || seen[tc.Module] {
			continue
		}
		seen[tc.Module] = true
		mods = append(mods, tc.Module)
	}
	return mods
}
