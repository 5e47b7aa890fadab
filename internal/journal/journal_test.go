package journal

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordTurn(t *testing.T) {
	s := testStore(t)

	if err := s.RecordTurn("20240603-1", "turn on the lights", "light_toggle", "Lights on.", false); err != nil {
		t.Fatalf("RecordTurn() error: %v", err)
	}
	if err := s.RecordTurn("20240603-1", "gibberish", "general", "raw model text", true); err != nil {
		t.Fatalf("RecordTurn() error: %v", err)
	}

	n, err := s.TurnCount("20240603-1")
	if err != nil {
		t.Fatalf("TurnCount() error: %v", err)
	}
	if n != 2 {
		t.Errorf("TurnCount() = %d, want 2", n)
	}
}

func TestTurnCountIsolatedBySession(t *testing.T) {
	s := testStore(t)

	if err := s.RecordTurn("session-a", "hi", "general", "hello", false); err != nil {
		t.Fatalf("RecordTurn() error: %v", err)
	}

	n, err := s.TurnCount("session-b")
	if err != nil {
		t.Fatalf("TurnCount() error: %v", err)
	}
	if n != 0 {
		t.Errorf("TurnCount() = %d, want 0 for a different session", n)
	}
}

func TestRecordTimerEvent(t *testing.T) {
	s := testStore(t)

	if err := s.RecordTimerEvent("abc12345", "scheduled", 300); err != nil {
		t.Fatalf("RecordTimerEvent() error: %v", err)
	}
	if err := s.RecordTimerEvent("abc12345", "fired", 300); err != nil {
		t.Fatalf("RecordTimerEvent() error: %v", err)
	}

	scheduled, err := s.TimerEventCount("scheduled")
	if err != nil {
		t.Fatalf("TimerEventCount() error: %v", err)
	}
	if scheduled != 1 {
		t.Errorf("TimerEventCount(scheduled) = %d, want 1", scheduled)
	}

	fired, err := s.TimerEventCount("fired")
	if err != nil {
		t.Fatalf("TimerEventCount() error: %v", err)
	}
	if fired != 1 {
		t.Errorf("TimerEventCount(fired) = %d, want 1", fired)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal_test.db")

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.RecordTurn("k", "hi", "general", "hello", false); err != nil {
		t.Fatalf("RecordTurn() error: %v", err)
	}
	s.Close()

	s2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.TurnCount("k")
	if err != nil {
		t.Fatalf("TurnCount() error: %v", err)
	}
	if n != 1 {
		t.Errorf("TurnCount() after reopen = %d, want 1", n)
	}
}
