package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/arena/internal/event"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBattle writes a battle row with an empty config.
func createTestBattle(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.WriteBattle(context.Background(), id, "test-"+id, nil); err != nil {
		t.Fatalf("WriteBattle() failed: %v", err)
	}
}

// queuedEvent returns p as it looks after being queued at tick with seq.
func queuedEvent(t *testing.T, tick int64, seq uint64, p event.Payload) *event.Event {
	t.Helper()
	e := event.New(p)
	if err := e.Freeze(tick, seq); err != nil {
		t.Fatalf("Freeze() failed: %v", err)
	}
	return e
}
