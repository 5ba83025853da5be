// Package logging holds the process-wide zerolog logger used by the service
// and the CLI, with optional lumberjack file rotation.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much is logged.
type Config struct {
	// File enables rotated JSON logging to this path in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Level is a zerolog level name; unknown names fall back to info.
	Level string
	// Pretty writes human-readable console output instead of JSON on stderr.
	Pretty bool
}

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	closer io.Closer
)

// InitLogger replaces the global logger. Calling it again closes the
// previous log file.
func InitLogger(cfg Config) {
	var console io.Writer = os.Stderr
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	out := console
	var rotated *lumberjack.Logger
	if cfg.File != "" {
		rotated = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = zerolog.MultiLevelWriter(console, rotated)
	}

	l := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(cfg.Level))

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	if rotated != nil {
		closer = rotated
	}
	logger = l
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// Logger returns the current global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLoggerForTest replaces the global logger.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetLogLevel changes the level of the global logger.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func Debug(msg string, kv ...any) { l := Logger(); emit(l.Debug(), msg, kv) }
func Info(msg string, kv ...any)  { l := Logger(); emit(l.Info(), msg, kv) }
func Warn(msg string, kv ...any)  { l := Logger(); emit(l.Warn(), msg, kv) }

// Error logs at error level. An error value under the key "error" or "err"
// is rendered with zerolog's error field.
func Error(msg string, kv ...any) { l := Logger(); emit(l.Error(), msg, kv) }

// emit adds key-value pairs to e. A trailing key without a value is logged
// under "!BADKEY".
func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			e = e.Interface("!BADKEY", kv[i])
			continue
		}
		if err, isErr := kv[i+1].(error); isErr && (key == "error" || key == "err") {
			e = e.AnErr(zerolog.ErrorFieldName, err)
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
