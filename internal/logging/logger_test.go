package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Tests share the global logger and must not run in parallel.

// setupTestLogger configures a logger with a custom writer for tests.
func setupTestLogger(t *testing.T, output *bytes.Buffer, level string) {
	t.Helper()

	prev := Logger()
	t.Cleanup(func() { SetLoggerForTest(prev) })
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(parseLevel(level)))
}

func TestLevelHelpers(t *testing.T) {
	tests := []struct {
		name  string
		level string
		log   func(string, ...any)
		kv    []any
		want  []string
	}{
		{"info", "info", Info, []any{"foo", 42, "bar", true}, []string{`"level":"info"`, `"foo":42`, `"bar":true`}},
		{"warn", "warn", Warn, []any{"code", 99}, []string{`"level":"warn"`, `"code":99`}},
		{"error", "error", Error, []any{"fatal", false}, []string{`"level":"error"`, `"fatal":false`}},
		{"debug", "debug", Debug, []any{"id", "x"}, []string{`"level":"debug"`, `"id":"x"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			setupTestLogger(t, &buf, tt.level)

			tt.log("test message", tt.kv...)

			out := buf.String()
			if !strings.Contains(out, "test message") {
				t.Errorf("message missing from %s", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %s missing %s", out, want)
				}
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(t, &buf, "info")

	Error("render failed", "error", errors.New("browser crashed"))

	if !strings.Contains(buf.String(), `"error":"browser crashed"`) {
		t.Errorf("error field not rendered: %s", buf.String())
	}
}

func TestOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(t, &buf, "info")

	Info("odd", "dangling")

	if !strings.Contains(buf.String(), `"!BADKEY":"dangling"`) {
		t.Errorf("dangling key not flagged: %s", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(t, &buf, "warn")

	Info("hidden")
	SetLogLevel("info")
	Info("should be visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info log emitted at warn level")
	}
	if !strings.Contains(out, "should be visible") {
		t.Error("expected info log after SetLogLevel not found")
	}
}

func TestParseLevelFallback(t *testing.T) {
	for _, level := range []string{"", "invalid", "LOUD"} {
		if got := parseLevel(level); got != zerolog.InfoLevel {
			t.Errorf("parseLevel(%q) = %v, want info", level, got)
		}
	}
	if got := parseLevel("debug"); got != zerolog.DebugLevel {
		t.Errorf("parseLevel(debug) = %v", got)
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() {
		_ = Close()
		SetLoggerForTest(prev)
	})

	logFile := filepath.Join(t.TempDir(), "md2pdf.log")
	InitLogger(Config{File: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1, Level: "invalid"})
	Info("hello", "k", "v")
	Debug("filtered")

	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"k":"v"`) {
		t.Errorf("log file missing entry: %s", data)
	}
	if strings.Contains(string(data), "filtered") {
		t.Error("debug entry written at info level")
	}
}
