package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogKind classifies a status entry.
type LogKind string

const (
	LogSuccess LogKind = "success"
	LogError   LogKind = "error"
)

// LogEntry is one record in the status log. Entries are what the UI layer
// renders and what callers inspect to count per-source failures.
type LogEntry struct {
	ID      string
	Title   string
	Message string
	Kind    LogKind
	Time    time.Time
}

// StatusLog records operation outcomes and forwards them to the process
// logger. It is the append-only status surface shared by all components.
type StatusLog struct {
	mu      sync.Mutex
	entries []LogEntry
	logger  *logrus.Logger
}

// NewStatusLog creates a status log backed by a structured logger.
func NewStatusLog() *StatusLog {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetOutput(os.Stderr)

	return &StatusLog{logger: log}
}

// Successf records a success entry.
func (l *StatusLog) Successf(id, title, format string, args ...interface{}) {
	l.add(id, title, fmt.Sprintf(format, args...), LogSuccess)
}

// Errorf records an error entry.
func (l *StatusLog) Errorf(id, title, format string, args ...interface{}) {
	l.add(id, title, fmt.Sprintf(format, args...), LogError)
}

func (l *StatusLog) add(id, title, message string, kind LogKind) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{
		ID:      id,
		Title:   title,
		Message: message,
		Kind:    kind,
		Time:    time.Now(),
	})
	l.mu.Unlock()

	fields := logrus.Fields{"id": id, "title": title}
	if kind == LogError {
		l.logger.WithFields(fields).Error(message)
	} else {
		l.logger.WithFields(fields).Info(message)
	}
}

// Entries returns a snapshot of all recorded entries.
func (l *StatusLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Errors returns only the error entries.
func (l *StatusLog) Errors() []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Kind == LogError {
			out = append(out, e)
		}
	}
	return out
}

// Logger exposes the underlying structured logger.
func (l *StatusLog) Logger() *logrus.Logger {
	return l.logger
}
