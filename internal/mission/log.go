package mission

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a mission log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// LogEntry is one append-only audit record. Ordering is insertion order.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// Log is the mission-scoped audit trail. Every state transition in the engine
// appends here; consumers read forward only.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
	subs    []func(LogEntry)
	now     func() time.Time
}

// NewLog creates an empty mission log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append records a new entry and notifies subscribers in insertion order.
func (l *Log) Append(sev Severity, format string, args ...any) LogEntry {
	l.mu.Lock()
	entry := LogEntry{
		ID:        uuid.New().String(),
		Timestamp: l.now().UTC(),
		Message:   fmt.Sprintf(format, args...),
		Severity:  sev,
	}
	l.entries = append(l.entries, entry)
	subs := make([]func(LogEntry), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
	return entry
}

// Subscribe registers a callback invoked for every appended entry.
func (l *Log) Subscribe(fn func(LogEntry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears the log for a new mission. Subscribers stay registered.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
