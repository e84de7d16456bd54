// Package logging provides the structured, logrus-backed logger used
// throughout the advisor.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used by every package in
// this module.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	Fatal(msg string, err error, fields ...Field)

	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field        { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field   { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Format selects the logrus formatter.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures a new Logger.
type Config struct {
	Level  string
	Format Format
	Output io.Writer
}

type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// New builds a logrus-backed Logger from Config.
func New(cfg Config) Logger {
	logger := logrus.New()

	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	switch cfg.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return &structuredLogger{logger: logger, fields: make(logrus.Fields)}
}

func (l *structuredLogger) entry(fields ...Field) *logrus.Entry {
	e := l.logger.WithFields(l.fields)
	for _, f := range fields {
		e = e.WithField(f.Key, f.Value)
	}
	return e
}

func (l *structuredLogger) Debug(msg string, fields ...Field) { l.entry(fields...).Debug(msg) }
func (l *structuredLogger) Info(msg string, fields ...Field)  { l.entry(fields...).Info(msg) }
func (l *structuredLogger) Warn(msg string, fields ...Field)  { l.entry(fields...).Warn(msg) }

func (l *structuredLogger) Error(msg string, err error, fields ...Field) {
	e := l.entry(fields...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (l *structuredLogger) Fatal(msg string, err error, fields ...Field) {
	e := l.entry(fields...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Fatal(msg)
}

func (l *structuredLogger) WithFields(fields ...Field) Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &structuredLogger{logger: l.logger, fields: merged}
}

// Nop returns a Logger that discards everything, for tests that don't
// care about log output.
func Nop() Logger {
	return New(Config{Level: "panic", Output: io.Discard})
}
