package mission

import (
	"testing"
)

func TestLogAppendOrderAndSeverity(t *testing.T) {
	l := NewLog()

	l.Append(SeverityInfo, "uplink established")
	l.Append(SeverityWarning, "unit dispatched: %s", "Fire-Ladder")
	l.Append(SeverityError, "dispatch failed")

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Severity != SeverityInfo || entries[2].Severity != SeverityError {
		t.Errorf("severities out of order: %+v", entries)
	}
	if entries[1].Message != "unit dispatched: Fire-Ladder" {
		t.Errorf("unexpected message %q", entries[1].Message)
	}
	if entries[0].ID == entries[1].ID {
		t.Error("entries share an id")
	}
}

func TestLogSubscribersSeeEveryEntry(t *testing.T) {
	l := NewLog()
	var seen []LogEntry
	l.Subscribe(func(e LogEntry) { seen = append(seen, e) })

	l.Append(SeverityInfo, "one")
	l.Append(SeveritySuccess, "two")

	if len(seen) != 2 {
		t.Fatalf("subscriber saw %d entries, want 2", len(seen))
	}
	if seen[0].Message != "one" || seen[1].Message != "two" {
		t.Errorf("entries delivered out of order: %+v", seen)
	}
}

func TestLogResetClearsEntriesKeepsSubscribers(t *testing.T) {
	l := NewLog()
	notified := 0
	l.Subscribe(func(LogEntry) { notified++ })

	l.Append(SeverityInfo, "before reset")
	l.Reset()
	if len(l.Entries()) != 0 {
		t.Error("expected empty log after reset")
	}

	l.Append(SeverityInfo, "after reset")
	if notified != 2 {
		t.Errorf("subscriber notified %d times, want 2", notified)
	}
}

func TestCatalogLookup(t *testing.T) {
	m, ok := ByID("alpha")
	if !ok {
		t.Fatal("alpha mission missing")
	}
	if m.Geofence == nil || m.Geofence.MaxRangeMeters != 100 {
		t.Errorf("alpha should carry the 100m geofence rule, got %+v", m.Geofence)
	}

	if b, ok := ByID("beta"); !ok || b.Geofence != nil {
		t.Errorf("beta should be unrestricted, got %+v ok=%v", b.Geofence, ok)
	}

	if _, ok := ByID("delta"); ok {
		t.Error("unknown mission should not resolve")
	}
}
