package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		verbose, quiet bool
		want           zapcore.Level
	}{
		{false, false, zapcore.InfoLevel},
		{true, false, zapcore.DebugLevel},
		{false, true, zapcore.WarnLevel},
		{true, true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("Level(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	log, err := New(true, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should enable debug")
	}

	quiet, err := New(false, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("quiet logger should drop info")
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, zapcore.InfoLevel)

	log.Debug("hidden")
	log.Info("shard finished", zap.Int("shard", 3))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %q", out)
	}
	for _, want := range []string{"INFO", "testshard", "shard finished", `"shard": 3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	log := zap.NewExample()
	if OrNop(log) != log {
		t.Error("OrNop should return a non-nil logger unchanged")
	}
}
