package log

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger using logrus.
// Badger's info output (compactions, memtable flushes) is demoted to debug.
type BadgerLogrusAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }

// Infof logs at debug level
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// ChromedpAdapter routes chromedp's printf-style callbacks into logrus.
// Pass Logf to chromedp.WithLogf and Errorf to chromedp.WithErrorf.
type ChromedpAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewChromedpAdapter creates a new adapter
func NewChromedpAdapter(entry *logrus.Entry) *ChromedpAdapter {
	return &ChromedpAdapter{entry}
}

// Logf logs protocol chatter at debug level
func (l *ChromedpAdapter) Logf(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// Errorf logs a browser-side error. chromedp reports unknown CDP events here, so these are warnings.
func (l *ChromedpAdapter) Errorf(f string, v ...interface{}) { l.Entry.Warnf(f, v...) }

// PgxTraceAdapter implements tracelog.Logger using logrus
type PgxTraceAdapter struct {
	*logrus.Entry
}

// NewPgxTraceAdapter creates a new adapter
func NewPgxTraceAdapter(entry *logrus.Entry) *PgxTraceAdapter {
	return &PgxTraceAdapter{entry}
}

// Log implements tracelog.Logger
func (l *PgxTraceAdapter) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	entry := l.Entry.WithContext(ctx)
	if len(data) > 0 {
		entry = entry.WithFields(logrus.Fields(data))
	}
	entry.Log(pgxToLogrusLevel(level), msg)
}

// pgxToLogrusLevel maps pgx trace levels onto logrus levels. pgx's info level covers every
// query, so it is demoted to debug.
func pgxToLogrusLevel(level tracelog.LogLevel) logrus.Level {
	switch level {
	case tracelog.LogLevelTrace:
		return logrus.TraceLevel
	case tracelog.LogLevelDebug, tracelog.LogLevelInfo:
		return logrus.DebugLevel
	case tracelog.LogLevelWarn:
		return logrus.WarnLevel
	case tracelog.LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.DebugLevel
	}
}

// KafkaLoggers returns the info and error loggers for a kafka.Writer
func KafkaLoggers(entry *logrus.Entry) (info, errLog kafka.Logger) {
	info = kafka.LoggerFunc(func(msg string, args ...interface{}) {
		entry.Debugf(strings.TrimSpace(msg), args...)
	})
	errLog = kafka.LoggerFunc(func(msg string, args ...interface{}) {
		entry.Errorf(strings.TrimSpace(msg), args...)
	})
	return info, errLog
}
