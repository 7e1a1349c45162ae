// Package klog is the kernel-side leveled logger (spec §6's
// EMERGENCY..DEBUG scale). Two Sink implementations satisfy the same
// interface: ConsoleSink, grounded in the teacher's freestanding
// uartPutsDirect idiom (internal/console), which every command in this
// repository (cmd/nexke, cmd/nexboot, cmd/nnimage) logs through; and
// LogrusSink, backed by github.com/sirupsen/logrus, for hosted callers
// that want logrus output. No command here constructs a LogrusSink.
package klog

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"nexke/internal/console"
)

// Level is spec §6's EMERGENCY..DEBUG scale, ordered least to most
// verbose so "log at or above this level" is a single comparison.
type Level int

const (
	Emergency Level = iota
	Alert
	Critical
	Error
	Warning
	Notice
	Info
	Debug
)

func (l Level) String() string {
	switch l {
	case Emergency:
		return "EMERG"
	case Alert:
		return "ALERT"
	case Critical:
		return "CRIT"
	case Error:
		return "ERROR"
	case Warning:
		return "WARN"
	case Notice:
		return "NOTICE"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Sink is the backend a Logger writes through.
type Sink interface {
	Log(level Level, msg string)
}

// Logger filters by a minimum level and formats before handing off to
// a Sink, matching the teacher's own "format once, write raw bytes"
// split between message construction and the UART write itself.
type Logger struct {
	sink Sink
	min  Level
}

// New creates a Logger that drops anything below min.
func New(sink Sink, min Level) *Logger {
	return &Logger{sink: sink, min: min}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level > l.min {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.sink.Log(level, msg)
}

func (l *Logger) Emergencyf(format string, args ...any) { l.log(Emergency, format, args...) }
func (l *Logger) Alertf(format string, args ...any)     { l.log(Alert, format, args...) }
func (l *Logger) Criticalf(format string, args ...any)  { l.log(Critical, format, args...) }
func (l *Logger) Errorf(format string, args ...any)     { l.log(Error, format, args...) }
func (l *Logger) Warningf(format string, args ...any)   { l.log(Warning, format, args...) }
func (l *Logger) Noticef(format string, args ...any)    { l.log(Notice, format, args...) }
func (l *Logger) Infof(format string, args ...any)      { l.log(Info, format, args...) }
func (l *Logger) Debugf(format string, args ...any)     { l.log(Debug, format, args...) }

// ConsoleSink writes "[LEVEL] msg\r\n" lines through an
// internal/console.Console, the freestanding path cmd/nexke uses.
type ConsoleSink struct {
	console *console.Console
}

// NewConsoleSink wraps c.
func NewConsoleSink(c *console.Console) *ConsoleSink {
	return &ConsoleSink{console: c}
}

func (s *ConsoleSink) Log(level Level, msg string) {
	s.console.WriteString("[" + level.String() + "] " + msg + "\r\n")
}

// LogrusSink adapts a *logrus.Logger as a Sink for hosted tools.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink wraps logger.
func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Log(level Level, msg string) {
	switch level {
	case Emergency, Alert, Critical:
		s.logger.Error(msg)
	case Error:
		s.logger.Error(msg)
	case Warning:
		s.logger.Warn(msg)
	case Notice, Info:
		s.logger.Info(msg)
	case Debug:
		s.logger.Debug(msg)
	}
}
