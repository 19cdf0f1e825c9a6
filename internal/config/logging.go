package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string. Unknown values mean error.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	if l == LogLevelDebug {
		return zapcore.DebugLevel
	}
	return zapcore.ErrorLevel
}

// Logger writes leveled lines through a zap console core. Filtering happens
// in the core, so a Logger at LogLevelOff is a no-op sink.
type Logger struct {
	zl *zap.SugaredLogger

	mu   sync.Mutex
	file *os.File
}

// NewLogger creates a logger appending to filePath. An off level or an empty
// path yields a logger that discards everything.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		return NullLogger(), nil
	}

	filePath, err := ExpandHome(filePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Logger{zl: newSugared(level, f), file: f}, nil
}

// NewWriterLogger creates a logger writing to w. The CLI uses it to send
// verbose output to stderr when no log file is configured.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	if level == LogLevelOff || w == nil {
		return NullLogger()
	}
	return &Logger{zl: newSugared(level, zapcore.AddSync(w))}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{zl: zap.NewNop().Sugar()}
}

func newSugared(level LogLevel, ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = zapcore.OmitKey

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(ws), level.zapLevel())
	return zap.New(core).Sugar()
}

// Close flushes buffered entries and closes the log file, if any.
func (l *Logger) Close() error {
	_ = l.zl.Sync()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Debug logs a formatted debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debugf(format, args...)
}

// Error logs a formatted error message.
func (l *Logger) Error(format string, args ...any) {
	l.zl.Errorf(format, args...)
}

// Debugw logs a debug message with structured key/value pairs.
func (l *Logger) Debugw(msg string, keysAndValues ...any) {
	l.zl.Debugw(msg, keysAndValues...)
}

// Errorw logs an error message with structured key/value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...any) {
	l.zl.Errorw(msg, keysAndValues...)
}

// ExpandHome expands a leading "~/" to the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
