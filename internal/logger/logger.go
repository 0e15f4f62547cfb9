package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wastedetect/internal/config"
)

// Logger provides leveled logging (info/warning/error) to stdout/stderr and
// to one file per level under the configured log directory.
type Logger struct {
	sugar *zap.SugaredLogger
	files []*os.File
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	if err := os.MkdirAll(cfg.Log.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{}
	cores, err := l.setupCores(cfg.Log.Directory, level)
	if err != nil {
		l.Close()
		return nil, err
	}

	l.sugar = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// setupCores builds the console core and one JSON file core per level.
func (l *Logger) setupCores(dir string, minLevel zapcore.Level) ([]zapcore.Core, error) {
	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	stdoutLevels := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl < zapcore.ErrorLevel
	})
	stderrLevels := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), stdoutLevels),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), stderrLevels),
	}

	perLevel := []struct {
		file  string
		match func(zapcore.Level) bool
	}{
		{"info.log", func(lvl zapcore.Level) bool { return lvl == zapcore.InfoLevel }},
		{"warning.log", func(lvl zapcore.Level) bool { return lvl == zapcore.WarnLevel }},
		{"error.log", func(lvl zapcore.Level) bool { return lvl >= zapcore.ErrorLevel }},
	}

	for _, pl := range perLevel {
		f, err := l.openLogFile(filepath.Join(dir, pl.file))
		if err != nil {
			return nil, err
		}
		match := pl.match
		enabler := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= minLevel && match(lvl)
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), enabler))
	}

	return cores, nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// With returns a child Logger that adds the given key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Close flushes buffered entries and closes the log files.
func (l *Logger) Close() error {
	var firstErr error
	if l.sugar != nil {
		// Sync on stdout/stderr fails on some platforms; the files matter.
		_ = l.sugar.Sync()
	}
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
