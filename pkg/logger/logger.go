// Package logger provides structured logging for the strata installer.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger provides structured logging interface.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional key-value pairs.
	With(keysAndValues ...any) Logger
}

// Level represents the log level.
type Level string

const (
	// LevelDebug represents debug-level logging.
	LevelDebug Level = "DEBUG"

	// LevelInfo represents info-level logging.
	LevelInfo Level = "INFO"

	// LevelWarn represents warning-level logging.
	LevelWarn Level = "WARN"

	// LevelError represents error-level logging.
	LevelError Level = "ERROR"

	// LogFilePermissions defines the file permissions for log files (owner read/write only).
	LogFilePermissions = 0o600
)

// WriterLogger implements Logger writing line-oriented key=value records.
type WriterLogger struct {
	out       io.Writer
	baseKVs   []any
	debugMode bool
	traceMode bool
}

// NewFileLogger creates a WriterLogger appending to a log file.
func NewFileLogger(filePath string, debugMode, traceMode bool) (*WriterLogger, error) {
	//nolint:gosec // log path is resolved under the user's state directory
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &WriterLogger{
		out:       file,
		debugMode: debugMode,
		traceMode: traceMode,
	}, nil
}

// NewWriterLogger creates a WriterLogger with a custom writer.
func NewWriterLogger(out io.Writer, debugMode, traceMode bool) *WriterLogger {
	return &WriterLogger{
		out:       out,
		debugMode: debugMode,
		traceMode: traceMode,
	}
}

// Debug logs debug-level messages. Emitted only in trace mode.
func (l *WriterLogger) Debug(msg string, keysAndValues ...any) {
	if !l.traceMode {
		return
	}

	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs info-level messages. Emitted in debug or trace mode.
func (l *WriterLogger) Info(msg string, keysAndValues ...any) {
	if !l.debugMode && !l.traceMode {
		return
	}

	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs warning-level messages.
func (l *WriterLogger) Warn(msg string, keysAndValues ...any) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs error-level messages.
func (l *WriterLogger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues...)
}

// With returns a new logger with additional base key-value pairs.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (l *WriterLogger) With(keysAndValues ...any) Logger {
	newKVs := make([]any, len(l.baseKVs)+len(keysAndValues))
	copy(newKVs, l.baseKVs)
	copy(newKVs[len(l.baseKVs):], keysAndValues)

	return &WriterLogger{
		out:       l.out,
		baseKVs:   newKVs,
		debugMode: l.debugMode,
		traceMode: l.traceMode,
	}
}

func (l *WriterLogger) log(level Level, msg string, keysAndValues ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	var builder strings.Builder

	builder.WriteString(timestamp)
	builder.WriteString(" ")
	builder.WriteString(string(level))
	builder.WriteString(" ")
	builder.WriteString(msg)

	if len(l.baseKVs) > 0 {
		l.writeKeyValues(&builder, l.baseKVs)
	}

	if len(keysAndValues) > 0 {
		l.writeKeyValues(&builder, keysAndValues)
	}

	builder.WriteString("\n")

	if l.out != nil {
		_, _ = l.out.Write([]byte(builder.String()))
	}
}

func (l *WriterLogger) writeKeyValues(builder *strings.Builder, kvs []any) {
	for i := 0; i < len(kvs); i += 2 {
		if i+1 >= len(kvs) {
			// Odd number of arguments, skip the last one
			break
		}

		key := fmt.Sprintf("%v", kvs[i])
		value := fmt.Sprintf("%v", kvs[i+1])

		builder.WriteString(" ")
		builder.WriteString(key)
		builder.WriteString("=")

		if strings.ContainsAny(value, " \t\n\"") {
			builder.WriteString(l.quote(value))
		} else {
			builder.WriteString(value)
		}
	}
}

func (*WriterLogger) quote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")

	return "\"" + s + "\""
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing.
func (*NoOpLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NoOpLogger) Info(string, ...any) {}

// Warn does nothing.
func (*NoOpLogger) Warn(string, ...any) {}

// Error does nothing.
func (*NoOpLogger) Error(string, ...any) {}

// With returns the same NoOpLogger.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (n *NoOpLogger) With(...any) Logger {
	return n
}
