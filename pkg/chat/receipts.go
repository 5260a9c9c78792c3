package chat

import "sync"

// ReceiptTracker decides which incoming message should be acknowledged to
// the backend. Only the most recent unread incoming message (not own, not
// system, has a sender) is a candidate, and each id is submitted at most
// once: a last-acknowledged cursor plus an in-flight flag guard against
// repeat submissions while one is pending.
type ReceiptTracker struct {
	mu        sync.Mutex
	store     *Store
	lastAcked string
	pending   string
}

func NewReceiptTracker(store *Store) *ReceiptTracker {
	return &ReceiptTracker{store: store}
}

// RecordRead folds an inbound read receipt into the store.
func (t *ReceiptTracker) RecordRead(messageID, userID string) bool {
	return t.store.RecordRead(messageID, userID)
}

// BeginAck returns the message id that should be marked as read on the
// backend, claiming it as in flight. ok is false when there is nothing new
// to acknowledge or a submission is already pending.
func (t *ReceiptTracker) BeginAck(viewerID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != "" {
		return "", false
	}
	target := latestIncoming(t.store.Snapshot(), viewerID)
	if target == "" || target == t.lastAcked {
		return "", false
	}
	t.pending = target
	return target, true
}

// FinishAck completes a submission started by BeginAck. A failed submission
// releases the in-flight claim so the same id can be retried.
func (t *ReceiptTracker) FinishAck(messageID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != messageID {
		return
	}
	t.pending = ""
	if err == nil {
		t.lastAcked = messageID
	}
}

// Reset clears the cursor and any in-flight claim. Called on room switch
// together with the store reset.
func (t *ReceiptTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastAcked = ""
	t.pending = ""
}

// latestIncoming picks the chronologically last unread message another
// user sent. A message the viewer has already read (read_by on a history
// payload) never needs another acknowledgement.
func latestIncoming(snapshot []Message, viewerID string) string {
	for i := len(snapshot) - 1; i >= 0; i-- {
		m := snapshot[i]
		if m.Kind == KindSystem || m.Sender == nil {
			continue
		}
		if m.IsOwn || m.Sender.ID == viewerID {
			continue
		}
		if m.IsRead {
			continue
		}
		return m.ID
	}
	return ""
}
