package chat

import (
	"fmt"
	"sync"

	chatcore "github.com/courtline/rally/pkg/chat"
)

// renderer prints the ordered message tail, skipping ids already shown.
// Merges that change an already-printed message (a read receipt, a sender
// enrichment) reprint it with its markers.
type renderer struct {
	mu       sync.Mutex
	session  *chatcore.Session
	shown    map[string]chatcore.Message
	approval chatcore.ApprovalStatus
}

func newRenderer(session *chatcore.Session) *renderer {
	return &renderer{
		session: session,
		shown:   make(map[string]chatcore.Message),
	}
}

func (r *renderer) renderAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.session.Snapshot() {
		r.printLocked(m)
	}
	r.bannerLocked()
}

func (r *renderer) renderNew() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.session.Snapshot() {
		prev, seen := r.shown[m.ID]
		if seen && prev.IsRead == m.IsRead && prev.Content == m.Content && sameSender(prev.Sender, m.Sender) {
			continue
		}
		r.printLocked(m)
	}
	r.bannerLocked()
}

func (r *renderer) printLocked(m chatcore.Message) {
	r.shown[m.ID] = m
	when := m.CreatedAt.Local().Format("15:04")

	if m.Kind == chatcore.KindSystem {
		if m.IsControl() {
			fmt.Printf("  [%s] ── %s ──\n", when, controlLine(m.Control))
		} else {
			fmt.Printf("  [%s] ── %s ──\n", when, m.Content)
		}
		return
	}

	who := "?"
	if m.Sender != nil {
		who = m.Sender.Nickname
		if who == "" {
			who = m.Sender.ID
		}
	}
	if m.IsOwn {
		who = "you"
	}
	marker := ""
	if m.IsOwn && m.IsRead {
		marker = " ✓"
	}
	body := m.Content
	if m.Kind == chatcore.KindImage {
		body = "(image) " + body
	}
	fmt.Printf("  [%s] %s: %s%s\n", when, who, body, marker)
}

func (r *renderer) bannerLocked() {
	st := r.session.Approval()
	if st == r.approval {
		return
	}
	r.approval = st
	if st != chatcore.StatusNone {
		fmt.Printf("  ── approval: %s ──\n", st)
	}
}

func sameSender(a, b *chatcore.Sender) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Nickname == b.Nickname
}

func controlLine(c *chatcore.ControlMeta) string {
	name := c.ParticipantName
	if name == "" {
		name = c.ParticipantID
	}
	switch c.Kind {
	case chatcore.ControlRequest:
		return fmt.Sprintf("%s requested approval", name)
	case chatcore.ControlConfirm:
		if name == "" {
			return "participation confirmed"
		}
		return fmt.Sprintf("%s confirmed", name)
	case chatcore.ControlCancel:
		return "approval cancelled"
	}
	return string(c.Kind)
}
