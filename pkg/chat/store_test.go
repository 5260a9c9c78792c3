package chat

import (
	"testing"
	"time"
)

func at(min int) time.Time {
	return time.Date(2026, 5, 12, 9, min, 0, 0, time.UTC)
}

func msg(id string, min int) Message {
	return Message{ID: id, Content: "c-" + id, Kind: KindText, CreatedAt: at(min)}
}

func TestStore_IdempotentUpsert(t *testing.T) {
	s := NewStore()
	m := msg("1", 0)

	if !s.Upsert(m) {
		t.Fatal("first upsert must report a change")
	}
	if s.Upsert(m) {
		t.Error("identical re-upsert must not report a change")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestStore_OrderInvariance(t *testing.T) {
	a, b, c := msg("a", 3), msg("b", 1), msg("c", 2)

	s1 := NewStore()
	s1.Upsert(a, b, c)
	s2 := NewStore()
	s2.Upsert(c)
	s2.Upsert(a)
	s2.Upsert(b)

	snap1, snap2 := s1.Snapshot(), s2.Snapshot()
	for i := range snap1 {
		if snap1[i].ID != snap2[i].ID {
			t.Fatalf("order differs at %d: %s vs %s", i, snap1[i].ID, snap2[i].ID)
		}
	}
	if snap1[0].ID != "b" || snap1[1].ID != "c" || snap1[2].ID != "a" {
		t.Errorf("not sorted by createdAt: %v", []string{snap1[0].ID, snap1[1].ID, snap1[2].ID})
	}
}

func TestStore_TieBreakByInsertionOrder(t *testing.T) {
	s := NewStore()
	x, y := msg("x", 5), msg("y", 5)
	s.Upsert(x)
	s.Upsert(y)

	snap := s.Snapshot()
	if snap[0].ID != "x" || snap[1].ID != "y" {
		t.Errorf("equal timestamps should keep insertion order: %s, %s", snap[0].ID, snap[1].ID)
	}
}

func TestStore_ReadMonotonic(t *testing.T) {
	s := NewStore()
	s.Upsert(msg("1", 0))

	if !s.RecordRead("1", "u2") {
		t.Fatal("first reader should flip IsRead")
	}
	// A later merge without the read flag must not revert it.
	s.Upsert(msg("1", 0))
	if !s.Snapshot()[0].IsRead {
		t.Error("IsRead reverted by merge")
	}
	if s.RecordRead("1", "u2") {
		t.Error("duplicate reader should not report a change")
	}
}

func TestStore_MergeRules(t *testing.T) {
	s := NewStore()

	// Realtime delivers first, without sender detail.
	live := msg("1", 0)
	s.Upsert(live)

	// REST then enriches the same id.
	rest := msg("1", 0)
	rest.Sender = &Sender{ID: "u2", Nickname: "Mina"}
	rest.FromHistory = true
	if !s.Upsert(rest) {
		t.Fatal("sender enrichment is an observable change")
	}

	got := s.Snapshot()[0]
	if got.Sender == nil || got.Sender.Nickname != "Mina" {
		t.Fatalf("richer sender should win: %+v", got.Sender)
	}
	if !got.FromHistory {
		t.Error("history origin must be sticky")
	}

	// A later live merge without a sender keeps the known one, and the
	// origin flag survives.
	liveAgain := msg("1", 0)
	s.Upsert(liveAgain)
	got = s.Snapshot()[0]
	if got.Sender == nil || !got.FromHistory {
		t.Errorf("merge dropped sticky fields: %+v", got)
	}
}

func TestStore_ContentOverwrite(t *testing.T) {
	s := NewStore()
	s.Upsert(msg("1", 0))

	edited := msg("1", 0)
	edited.Content = "edited"
	if !s.Upsert(edited) {
		t.Fatal("content change must be observable")
	}
	if s.Snapshot()[0].Content != "edited" {
		t.Error("incoming content is authoritative")
	}
}

func TestStore_ReadByFoldsIntoReaders(t *testing.T) {
	s := NewStore()
	m := msg("1", 0)
	m.ReadBy = []string{"u2", "u3"}
	s.Upsert(m)

	got := s.Snapshot()[0]
	if !got.IsRead {
		t.Error("readBy on payload should mark the message read")
	}
	readers := s.Readers("1")
	if len(readers) != 2 || readers[0] != "u2" || readers[1] != "u3" {
		t.Errorf("readers: %v", readers)
	}
}

func TestStore_ResetIsolation(t *testing.T) {
	s := NewStore()
	s.Upsert(msg("1", 0), msg("2", 1))
	s.RecordRead("1", "u2")

	s.Reset()
	if len(s.Snapshot()) != 0 {
		t.Fatal("snapshot after reset must be empty")
	}
	// A late-arriving message from before the reset does not resurrect
	// anything else; only its own explicit re-upsert appears.
	s.Upsert(msg("2", 1))
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != "2" {
		t.Errorf("unexpected snapshot after reset: %v", snap)
	}
	if snap[0].IsRead {
		t.Error("reader sets must not survive reset")
	}
}
