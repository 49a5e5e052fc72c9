// Package logx provides structured logging for the hemoflow daemon and
// batch jobs.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger emits structured JSON log lines with key-value fields.
type Logger struct {
	l *logrus.Logger
}

// New creates a new structured logger at the given level
// (debug|info|warn|error).
func New(levelStr string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "msg",
		},
	})
	l.SetLevel(parseLevel(levelStr))
	return &Logger{l: l}
}

// SetOutput redirects log output, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.l.SetOutput(w)
}

func parseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fields converts alternating key-value arguments to logrus fields. A single
// map argument is used as-is.
func fields(keysAndValues ...interface{}) logrus.Fields {
	f := logrus.Fields{}
	if len(keysAndValues) == 1 {
		if m, ok := keysAndValues[0].(map[string]interface{}); ok {
			for k, v := range m {
				f[k] = v
			}
			return f
		}
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprintf("%v", keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues...)).Debug(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues...)).Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues...)).Warn(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues...)).Error(msg)
}
