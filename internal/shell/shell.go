// Package shell builds the subprocesses that list and run tests.
package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// varPattern matches variable references in the format ${varname}.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// escapePlaceholder temporarily replaces escaped variable syntax ($${var})
// during interpolation. NUL cannot appear in a shell command string, so it
// never collides with a substituted value.
const escapePlaceholder = "\x00ESCAPED\x00"

// EnvPrefix marks the variables testshard exports to shard processes.
const EnvPrefix = "TESTSHARD_"

// Interpolate replaces ${var} with values from vars.
// Escaping: $${var} becomes ${var} (literal). Unknown variables are kept.
func Interpolate(cmd string, vars map[string]string) string {
	result := strings.ReplaceAll(cmd, "$${", escapePlaceholder)

	result = varPattern.ReplaceAllStringFunc(result, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})

	return strings.ReplaceAll(result, escapePlaceholder, "${")
}

// Quote returns s as a single POSIX shell word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isSafeRune(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("@%+=:,./-_", r)
}

// QuoteAll quotes each element and joins them with spaces.
func QuoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = Quote(w)
	}
	return strings.Join(quoted, " ")
}

// Command creates a cross-platform shell command bound to ctx.
// On Unix it runs sh -c; on Windows it runs PowerShell by full path.
// Cancelling ctx kills the shell together with everything it started.
func Command(ctx context.Context, cmdStr string) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = windowsCommand(ctx, cmdStr)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", cmdStr)
	}
	KillGroupOnCancel(cmd)
	return cmd
}

// Sequence joins commands into one script that runs them all in order and
// exits with the last non-zero status, or 0 when every command succeeded.
func Sequence(cmds []string) string {
	if len(cmds) == 1 {
		return cmds[0]
	}
	var b strings.Builder
	if runtime.GOOS == "windows" {
		b.WriteString("$rc = 0\n")
		for _, c := range cmds {
			b.WriteString(c + "\nif ($LASTEXITCODE -ne 0) { $rc = $LASTEXITCODE }\n")
		}
		b.WriteString("exit $rc")
		return b.String()
	}
	b.WriteString("rc=0\n")
	for _, c := range cmds {
		b.WriteString("( " + c + "\n) || rc=$?\n")
	}
	b.WriteString("exit $rc")
	return b.String()
}

func windowsCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	systemRoot := os.Getenv("SYSTEMROOT")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}
	powershellPath := filepath.Join(systemRoot, "System32", "WindowsPowerShell", "v1.0", "powershell.exe")
	return exec.CommandContext(ctx, powershellPath, "-NoProfile", "-NonInteractive", "-Command", cmdStr)
}

// Environ returns the process environment for a child command.
//
// Precedence (highest to lowest):
//  1. extra, applied in sorted key order
//  2. the inherited environment, minus any TESTSHARD_ variables left over
//     from an enclosing run
func Environ(environ []string, extra map[string]string) []string {
	env := make([]string, 0, len(environ)+len(extra))
	for _, kv := range environ {
		if strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// CommandName extracts the executable name (first word) from a shell command.
// Commands starting with a quote are shell expressions and return "".
func CommandName(cmdStr string) string {
	trimmed := strings.TrimSpace(cmdStr)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' || trimmed[0] == '\'' {
		return ""
	}
	name := strings.Fields(trimmed)[0]
	// VAR=value prefixes are environment assignments, not the executable.
	if strings.Contains(name, "=") {
		return ""
	}
	return name
}

// Available reports whether cmdName can be executed: it is a shell builtin,
// or it resolves through PATH.
func Available(cmdName string) bool {
	if _, ok := builtins[cmdName]; ok {
		return true
	}
	_, err := exec.LookPath(cmdName)
	return err == nil
}

// builtins is the set of common shell builtins that don't exist as external
// commands in PATH but are always available via sh -c.
var builtins = map[string]struct{}{
	"exit": {}, "test": {}, "[": {}, "echo": {}, "cd": {}, "pwd": {},
	"export": {}, "unset": {}, "set": {}, "true": {}, "false": {},
	"read": {}, "eval": {}, "exec": {}, "source": {}, ".": {},
	"trap": {}, "wait": {}, "kill": {}, "type": {}, "command": {},
	"printf": {}, "ulimit": {}, "umask": {}, "if": {}, "for": {}, "while": {},
}
