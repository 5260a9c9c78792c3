package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/courtline/rally/pkg/bus"
	"github.com/courtline/rally/pkg/logger"
)

// Backend is the REST collaborator consumed by a session. Implemented by
// api.Client.
type Backend interface {
	RoomMessages(ctx context.Context, roomID string, limit int, before string) ([]map[string]any, error)
	SendMessage(ctx context.Context, roomID, content, kind string) (map[string]any, error)
	MarkRead(ctx context.Context, roomID, messageID string) error
	ApproveParticipant(ctx context.Context, roomID, participantID string) error
}

// Channel is the realtime collaborator: room interest only. Implemented by
// realtime.Manager.
type Channel interface {
	Join(roomID string)
	Leave(roomID string)
}

// ErrNotAllowed is returned when an approval action is gated off by the
// derived status. It reflects the advisory UI gate, not backend authority.
var ErrNotAllowed = errors.New("chat: action not allowed in current approval state")

// SessionOptions configures one open chat room.
type SessionOptions struct {
	RoomID     string
	ViewerID   string
	ViewerName string
	// IsHost is supplied externally (room metadata), never derived here.
	IsHost          bool
	HistoryPageSize int
}

// Session owns the reconciliation state for a single open room: history
// fetch through the Backend, live events folded in by the realtime wiring,
// and imperative actions. Switching rooms means closing the session and
// opening a new one; the store never survives a room switch.
type Session struct {
	opts     SessionOptions
	store    *Store
	receipts *ReceiptTracker
	backend  Backend
	channel  Channel
	events   *bus.EventBus

	mu     sync.Mutex
	closed bool
}

func NewSession(opts SessionOptions, backend Backend, channel Channel, events *bus.EventBus) *Session {
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = 50
	}
	store := NewStore()
	return &Session{
		opts:     opts,
		store:    store,
		receipts: NewReceiptTracker(store),
		backend:  backend,
		channel:  channel,
		events:   events,
	}
}

func (s *Session) RoomID() string { return s.opts.RoomID }
func (s *Session) IsHost() bool   { return s.opts.IsHost }

// Open joins the room on the realtime channel and loads message history.
// The join may be deferred inside the channel until its connection is up.
func (s *Session) Open(ctx context.Context) error {
	s.channel.Join(s.opts.RoomID)
	return s.RefreshHistory(ctx)
}

// RefreshHistory fetches the history page and merges it into the store.
// Also invoked on every reconnect, as the cache-invalidation step.
func (s *Session) RefreshHistory(ctx context.Context) error {
	raws, err := s.backend.RoomMessages(ctx, s.opts.RoomID, s.opts.HistoryPageSize, "")
	if err != nil {
		return fmt.Errorf("fetching history for room %s: %w", s.opts.RoomID, err)
	}
	now := time.Now()
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, Normalize(raw, s.opts.ViewerID, now, true))
	}
	if s.store.Upsert(msgs...) {
		s.publishUpdate()
	}
	logger.DebugCF("chat", "History merged", map[string]any{
		"room": s.opts.RoomID, "fetched": len(msgs), "total": s.store.Len(),
	})
	return nil
}

// Snapshot returns the ordered message view-models for rendering.
func (s *Session) Snapshot() []Message {
	return s.store.Snapshot()
}

// Approval returns the derived approval status for the room.
func (s *Session) Approval() ApprovalStatus {
	return DeriveApproval(s.store.Snapshot())
}

// SendMessage posts a message to the room. The backend's representation of
// the sent message, when returned, merges straight into the store; the
// realtime echo later merges into the same entry by id.
func (s *Session) SendMessage(ctx context.Context, content string, kind Kind) error {
	raw, err := s.backend.SendMessage(ctx, s.opts.RoomID, content, string(kind))
	if err != nil {
		return err
	}
	if raw != nil {
		m := Normalize(raw, s.opts.ViewerID, time.Now(), false)
		if s.store.Upsert(m) {
			s.publishUpdate()
		}
	}
	return nil
}

// AckLatest submits a mark-as-read for the most recent unread incoming
// message, at most once per message id and never concurrently. A no-op
// when there is nothing to acknowledge.
func (s *Session) AckLatest(ctx context.Context) error {
	id, ok := s.receipts.BeginAck(s.opts.ViewerID)
	if !ok {
		return nil
	}
	err := s.backend.MarkRead(ctx, s.opts.RoomID, id)
	s.receipts.FinishAck(id, err)
	if err != nil {
		return err
	}
	if s.receipts.RecordRead(id, s.opts.ViewerID) {
		s.publishUpdate()
	}
	return nil
}

// RequestApproval sends the participant's approval request as a control
// system message. Gated by the derived status; the backend still enforces
// real authorization.
func (s *Session) RequestApproval(ctx context.Context) error {
	if !CanRequest(s.Approval(), s.opts.IsHost) {
		return ErrNotAllowed
	}
	return s.sendControl(ctx, ControlMeta{
		Kind:            ControlRequest,
		ParticipantID:   s.opts.ViewerID,
		ParticipantName: s.opts.ViewerName,
	})
}

// ConfirmParticipant performs the authoritative approval call and then
// announces it with a confirm control message.
func (s *Session) ConfirmParticipant(ctx context.Context, participantID, participantName string) error {
	if !CanConfirm(s.Approval(), s.opts.IsHost) {
		return ErrNotAllowed
	}
	if err := s.backend.ApproveParticipant(ctx, s.opts.RoomID, participantID); err != nil {
		return err
	}
	return s.sendControl(ctx, ControlMeta{
		Kind:            ControlConfirm,
		ParticipantID:   participantID,
		ParticipantName: participantName,
	})
}

// CancelApproval announces cancellation of the pending request or of a
// prior confirmation.
func (s *Session) CancelApproval(ctx context.Context) error {
	if !CanCancel(s.Approval(), s.opts.IsHost) {
		return ErrNotAllowed
	}
	return s.sendControl(ctx, ControlMeta{Kind: ControlCancel})
}

func (s *Session) sendControl(ctx context.Context, meta ControlMeta) error {
	payload := map[string]string{"kind": string(meta.Kind)}
	if meta.ParticipantID != "" {
		payload["subject_participant_id"] = meta.ParticipantID
	}
	if meta.ParticipantName != "" {
		payload["subject_participant_name"] = meta.ParticipantName
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding control message: %w", err)
	}
	return s.SendMessage(ctx, string(content), KindSystem)
}

// HandleIncoming folds a live new-message event into the store. Events
// tagged with another room's id are ignored; a reset store never resurrects
// a stale room's messages.
func (s *Session) HandleIncoming(roomID string, raw map[string]any) {
	if !s.accepts(roomID) {
		return
	}
	m := Normalize(raw, s.opts.ViewerID, time.Now(), false)
	if s.store.Upsert(m) {
		s.publishUpdate()
	}
}

// HandleReadReceipt records that a user has read a message.
func (s *Session) HandleReadReceipt(roomID string, raw map[string]any) {
	if !s.accepts(roomID) {
		return
	}
	messageID := pickString(raw, "message_id", "messageId", "id")
	userID := pickString(raw, "user_id", "userId", "reader_id", "readerId")
	if messageID == "" || userID == "" {
		return
	}
	if s.receipts.RecordRead(messageID, userID) {
		s.publishUpdate()
	}
}

// HandlePresence surfaces user join/leave events as notices.
func (s *Session) HandlePresence(roomID string, joined bool, raw map[string]any) {
	if !s.accepts(roomID) {
		return
	}
	name := pickString(raw, "nickname", "name", "username", "user_id", "userId")
	verb := "left"
	if joined {
		verb = "joined"
	}
	s.publishNotice("info", fmt.Sprintf("%s %s the room", name, verb))
}

// HandleApproved surfaces the backend's authoritative approval event.
func (s *Session) HandleApproved(roomID string, raw map[string]any) {
	if !s.accepts(roomID) {
		return
	}
	name := pickString(raw, "participant_name", "participantName", "nickname", "participant_id", "participantId")
	s.publishNotice("info", fmt.Sprintf("participation approved: %s", name))
	// The confirm control message arrives through the message stream; the
	// derived status updates from it, not from this event.
	s.publishUpdate()
}

// HandleConnected runs on every realtime (re)connect: the channel has
// already re-issued the room join, so the session only needs to refetch
// history to close any gap from the outage.
func (s *Session) HandleConnected(ctx context.Context) {
	if err := s.RefreshHistory(ctx); err != nil {
		logger.WarnCF("chat", "History refresh after reconnect failed", map[string]any{
			"room": s.opts.RoomID, "error": err.Error(),
		})
	}
}

func (s *Session) accepts(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return roomID == "" || roomID == s.opts.RoomID
}

// Close leaves the room and discards all local state. The session must not
// be reused; open a new one to switch rooms.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.channel.Leave(s.opts.RoomID)
	s.store.Reset()
	s.receipts.Reset()
}

func (s *Session) publishUpdate() {
	if s.events == nil {
		return
	}
	_ = s.events.PublishUpdate(context.TODO(), bus.Update{RoomID: s.opts.RoomID})
}

func (s *Session) publishNotice(level, text string) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishNotice(context.TODO(), bus.Notice{
		RoomID: s.opts.RoomID,
		Level:  level,
		Text:   text,
	})
}
