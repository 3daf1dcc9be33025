package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelStrings = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides leveled logging with timestamp and key/value context
type Logger struct {
	minLevel LogLevel
}

// NewLogger creates a new logger instance
func NewLogger(minLevel LogLevel) *Logger {
	return &Logger{minLevel: minLevel}
}

// Default logger instance (INFO level)
var defaultLogger = NewLogger(INFO)

// formatMessage creates the log line with timestamp, level and sorted context
func formatMessage(level LogLevel, message string, context map[string]interface{}) string {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var contextStr string
	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, context[k]))
		}
		contextStr = " | " + strings.Join(pairs, " ")
	}

	return fmt.Sprintf("[%s] %s: %s%s", timestamp, levelStrings[level], message, contextStr)
}

func (l *Logger) log(level LogLevel, message string, context map[string]interface{}) {
	if level < l.minLevel {
		return
	}

	msg := formatMessage(level, message, context)
	if level >= ERROR {
		fmt.Fprintln(os.Stderr, msg)
	} else {
		fmt.Fprintln(os.Stdout, msg)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, context ...map[string]interface{}) {
	l.log(DEBUG, message, first(context))
}

// Info logs an info message
func (l *Logger) Info(message string, context ...map[string]interface{}) {
	l.log(INFO, message, first(context))
}

// Warn logs a warning message
func (l *Logger) Warn(message string, context ...map[string]interface{}) {
	l.log(WARN, message, first(context))
}

// Error logs an error message
func (l *Logger) Error(message string, context ...map[string]interface{}) {
	l.log(ERROR, message, first(context))
}

func first(context []map[string]interface{}) map[string]interface{} {
	if len(context) > 0 {
		return context[0]
	}
	return nil
}

// Package-level convenience functions using the default logger

func Debug(message string, context ...map[string]interface{}) {
	defaultLogger.Debug(message, context...)
}

func Info(message string, context ...map[string]interface{}) {
	defaultLogger.Info(message, context...)
}

func Warn(message string, context ...map[string]interface{}) {
	defaultLogger.Warn(message, context...)
}

func Error(message string, context ...map[string]interface{}) {
	defaultLogger.Error(message, context...)
}

// SetMinLevel sets the minimum log level for the default logger
func SetMinLevel(level LogLevel) {
	defaultLogger.minLevel = level
}
