package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log lines by severity. Lines below the logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	serviceName string
	out         io.Writer
	level       Level
	mu          *sync.Mutex
}

var (
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

var (
	cyan    = color.New(color.FgCyan)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
	magenta = color.New(color.FgMagenta)
)

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
		out:         color.Output,
		level:       levelFromEnv(),
		mu:          &sync.Mutex{},
	}
}

// NewWithWriter is New with an explicit sink, used by tests to capture output.
func NewWithWriter(serviceName string, w io.Writer, level Level) *Logger {
	return &Logger{
		serviceName: serviceName,
		out:         w,
		level:       level,
		mu:          &sync.Mutex{},
	}
}

// With returns a logger for a sub-component sharing the same sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		serviceName: l.serviceName + "/" + component,
		out:         l.out,
		level:       l.level,
		mu:          l.mu,
	}
}

func levelFromEnv() Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) formatMessage(level, emoji, msg string) string {
	_, file, line, _ := runtime.Caller(3)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fileName := filepath.Base(file)

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		fileName,
		line,
		l.serviceName,
		msg,
	)
}

func (l *Logger) write(lvl Level, c *color.Color, name, emoji, msg string) {
	if lvl < l.level {
		return
	}
	formatted := l.formatMessage(name, emoji, msg)
	l.mu.Lock()
	defer l.mu.Unlock()
	c.Fprintln(l.out, formatted)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.write(LevelInfo, cyan, "INFO", INFO_EMOJI, fmt.Sprintf(msg, args...))
}

func (l *Logger) Success(msg string, args ...interface{}) {
	l.write(LevelInfo, green, "SUCCESS", SUCCESS_EMOJI, fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.write(LevelWarn, yellow, "WARN", WARN_EMOJI, fmt.Sprintf(msg, args...))
}

// Error logs msg with err appended to args and returns err wrapped with msg, so
// callers can log and return in one line.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	text := fmt.Sprintf(msg, args...)
	l.write(LevelError, red, "ERROR", ERROR_EMOJI, fmt.Sprintf("%s: %v", text, err))
	return fmt.Errorf("%s: %w", text, err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.write(LevelDebug, magenta, "DEBUG", DEBUG_EMOJI, fmt.Sprintf(msg, args...))
}
