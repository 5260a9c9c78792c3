package chat

import (
	"sort"
	"sync"
)

type entry struct {
	msg     Message
	seq     uint64
	readers map[string]struct{}
}

// Store is the de-duplicating merge map for one open room. Messages from
// the REST history fetch and from live events upsert into it by id; the
// snapshot is always sorted by CreatedAt with insertion order breaking ties.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSeq uint64
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Upsert merges messages into the store and reports whether any observed
// field actually changed; callers use the result as a render gate.
// Applying the same message twice is a no-op the second time.
func (s *Store) Upsert(msgs ...Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range msgs {
		if s.upsertLocked(&msgs[i]) {
			changed = true
		}
	}
	return changed
}

func (s *Store) upsertLocked(in *Message) bool {
	e, ok := s.entries[in.ID]
	if !ok {
		e = &entry{seq: s.nextSeq, readers: make(map[string]struct{})}
		s.nextSeq++
		e.msg = *in
		e.msg.ReadBy = nil
		for _, r := range in.ReadBy {
			e.readers[r] = struct{}{}
		}
		e.msg.IsRead = in.IsRead || len(e.readers) > 0
		s.entries[in.ID] = e
		return true
	}

	prev := e.msg

	// Incoming content, timestamp and kind are authoritative.
	e.msg.Content = in.Content
	e.msg.CreatedAt = in.CreatedAt
	e.msg.Kind = in.Kind
	e.msg.Control = in.Control

	// Prefer the richer sender; recompute ownership from it.
	if in.Sender != nil {
		e.msg.Sender = in.Sender
		e.msg.IsOwn = in.IsOwn
	}

	// Sticky flags: read and history-origin never revert.
	e.msg.IsRead = e.msg.IsRead || in.IsRead
	e.msg.FromHistory = e.msg.FromHistory || in.FromHistory

	for _, r := range in.ReadBy {
		e.readers[r] = struct{}{}
	}
	if len(e.readers) > 0 {
		e.msg.IsRead = true
	}

	return observedChange(prev, e.msg)
}

// observedChange compares the fields the UI renders; merges that only touch
// bookkeeping do not count as changes.
func observedChange(a, b Message) bool {
	if a.Content != b.Content || a.Kind != b.Kind || !a.CreatedAt.Equal(b.CreatedAt) {
		return true
	}
	if a.IsRead != b.IsRead || a.IsOwn != b.IsOwn {
		return true
	}
	as, bs := a.Sender, b.Sender
	if (as == nil) != (bs == nil) {
		return true
	}
	if as != nil && (as.ID != bs.ID || as.Nickname != bs.Nickname || as.AvatarURL != bs.AvatarURL) {
		return true
	}
	return false
}

// RecordRead adds userID to the message's reader set and flips IsRead on
// its first reader. Reports whether anything changed.
func (s *Store) RecordRead(messageID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[messageID]
	if !ok {
		return false
	}
	if _, seen := e.readers[userID]; seen {
		return false
	}
	e.readers[userID] = struct{}{}
	if !e.msg.IsRead {
		e.msg.IsRead = true
		return true
	}
	return false
}

// Readers returns the reader set of a message.
func (s *Store) Readers(messageID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[messageID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.readers))
	for r := range e.readers {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns all messages sorted ascending by CreatedAt, insertion
// order on equal timestamps.
func (s *Store) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].msg.CreatedAt.Equal(ordered[j].msg.CreatedAt) {
			return ordered[i].msg.CreatedAt.Before(ordered[j].msg.CreatedAt)
		}
		return ordered[i].seq < ordered[j].seq
	})

	out := make([]Message, len(ordered))
	for i, e := range ordered {
		out[i] = e.msg
	}
	return out
}

// Len returns the number of distinct messages held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset clears all entries. Called on room switch.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.nextSeq = 0
}
