// Package oplog records mutating store operations as JSON lines
package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event names written by the stores
const (
	EventSave      = "save"
	EventRestore   = "restore"
	EventDelete    = "delete"
	EventTagCreate = "tag.create"
	EventTagRename = "tag.rename"
	EventTagDelete = "tag.delete"
	EventTagMerge  = "tag.merge"
	EventPrune     = "prune"
)

// Appender receives one call per completed mutation
type Appender interface {
	Append(event, detail string) error
}

// Discard drops every entry
var Discard Appender = discard{}

type discard struct{}

func (discard) Append(string, string) error { return nil }

// Entry is one line of the log
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Event  string    `json:"event"`
	Detail string    `json:"detail"`
}

// Log appends entries to a file, one JSON object per line
type Log struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *logrus.Logger
}

// Open opens or creates the log file at path
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "event",
		},
	})

	return &Log{path: path, file: f, logger: logger}, nil
}

// Append writes an entry for event. The line is formatted by logrus but
// written here, so a failed write reaches the caller.
func (l *Log) Append(event, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("operation log %s is closed", l.path)
	}

	entry := l.logger.WithFields(logrus.Fields{
		"id":     uuid.New().String(),
		"detail": detail,
	})
	entry.Time = time.Now()
	entry.Level = logrus.InfoLevel
	entry.Message = event

	line, err := entry.Bytes()
	if err != nil {
		return fmt.Errorf("failed to format operation log entry: %w", err)
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("failed to write operation log: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest entries, oldest first. Lines that do
// not parse are skipped.
func (l *Log) Recent(n int) ([]Entry, error) {
	return ReadRecent(l.path, n)
}

// Close closes the underlying file
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadRecent reads up to n of the newest entries from the log at path. A
// missing file has no entries.
func ReadRecent(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil || e.Event == "" {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
