package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	ERROR Level = iota
	WARN
	INFO
	DEBUG
)

func (l Level) String() string {
	switch l {
	case ERROR:
		return "error"
	case WARN:
		return "warn"
	case INFO:
		return "info"
	case DEBUG:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "error":
		return ERROR, nil
	case "warn":
		return WARN, nil
	case "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	}
	return INFO, fmt.Errorf("invalid log level: %s", lvl)
}

// Logger is a simple leveled logger.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger writing to stderr with the standard log flags.
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(level Level, w io.Writer) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return &Logger{level: ERROR, out: log.New(io.Discard, "", 0)}
}

// Level reports the logger's threshold.
func (l *Logger) Level() Level {
	return l.level
}

// Errorf prints a formatted error message.
func (l *Logger) Errorf(format string, v ...any) {
	l.logf(ERROR, format, v...)
}

// Warnf prints a formatted warning message.
func (l *Logger) Warnf(format string, v ...any) {
	l.logf(WARN, format, v...)
}

// Infof prints a formatted info message.
func (l *Logger) Infof(format string, v ...any) {
	l.logf(INFO, format, v...)
}

// Debugf prints a formatted debug message.
func (l *Logger) Debugf(format string, v ...any) {
	l.logf(DEBUG, format, v...)
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if l == nil || l.level < level {
		return
	}
	l.out.Printf(format, v...)
}
