// Package chat implements the message reconciliation core: normalizing
// heterogeneous backend payloads, merging REST history with live events,
// tracking read receipts and deriving the participant approval status.
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a message.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindSystem Kind = "system"
)

// Sender identifies the author of a message. Nil for system messages.
type Sender struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ControlKind is an approval workflow action encoded in a system message.
type ControlKind string

const (
	ControlRequest ControlKind = "request"
	ControlConfirm ControlKind = "confirm"
	ControlCancel  ControlKind = "cancel"
)

// ControlMeta is the parsed control payload of an approval system message.
type ControlMeta struct {
	Kind            ControlKind `json:"kind"`
	ParticipantID   string      `json:"participant_id,omitempty"`
	ParticipantName string      `json:"participant_name,omitempty"`
}

// Message is the internal representation every payload shape normalizes to.
type Message struct {
	ID        string
	Content   string
	Kind      Kind
	Sender    *Sender
	CreatedAt time.Time

	// IsOwn is recomputed on every merge from the freshest known sender.
	IsOwn bool
	// IsRead flips true once any read receipt references this message and
	// stays true until the store is reset.
	IsRead bool
	// FromHistory marks messages ever observed via the REST history fetch.
	// Sticky across merges.
	FromHistory bool

	Control *ControlMeta

	// ReadBy carries reader ids observed on the raw payload; the store
	// folds them into its per-message reader sets on upsert.
	ReadBy []string
}

// IsControl reports whether the message carries an approval action.
func (m *Message) IsControl() bool {
	if m.Kind != KindSystem || m.Control == nil {
		return false
	}
	switch m.Control.Kind {
	case ControlRequest, ControlConfirm, ControlCancel:
		return true
	}
	return false
}

// Normalize converts a raw decoded payload from either the REST or the
// realtime source into a Message. Missing fields default (empty content,
// text kind, nil sender, createdAt = now); it never fails. fromHistory
// tags messages that arrived via the REST fetch.
func Normalize(raw map[string]any, viewerID string, now time.Time, fromHistory bool) Message {
	m := Message{
		ID:          pickString(raw, "id", "message_id", "messageId", "_id"),
		Content:     pickString(raw, "content", "text", "body"),
		Kind:        normalizeKind(pickString(raw, "message_type", "messageType", "kind", "type")),
		CreatedAt:   pickTime(raw, now, "created_at", "createdAt", "timestamp", "sent_at", "sentAt"),
		FromHistory: fromHistory,
	}
	if m.ID == "" {
		// Keep the message rather than drop it; a synthetic id means it can
		// never merge with a later representation of itself.
		m.ID = uuid.New().String()
	}

	if s := pickMap(raw, "sender", "user", "author"); s != nil {
		sender := &Sender{
			ID:        pickString(s, "id", "user_id", "userId", "_id"),
			Nickname:  pickString(s, "nickname", "name", "username", "display_name", "displayName"),
			AvatarURL: pickString(s, "avatar_url", "avatarUrl", "profile_image", "profileImage"),
		}
		if sender.ID != "" || sender.Nickname != "" {
			m.Sender = sender
		}
	} else if id := pickString(raw, "sender_id", "senderId"); id != "" {
		m.Sender = &Sender{ID: id}
	}

	m.IsOwn = m.Sender != nil && viewerID != "" && m.Sender.ID == viewerID
	m.ReadBy = pickStrings(raw, "read_by", "readBy", "readers")
	m.Control = parseControl(m.Content)
	return m
}

// parseControl attempts to read an approval control payload out of message
// content. Anything that is not a JSON object with a recognized kind yields
// nil; parse failures never propagate.
func parseControl(content string) *ControlMeta {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil
	}
	kind := ControlKind(pickString(raw, "kind", "type", "action"))
	switch kind {
	case ControlRequest, ControlConfirm, ControlCancel:
	default:
		return nil
	}
	return &ControlMeta{
		Kind:            kind,
		ParticipantID:   pickString(raw, "subject_participant_id", "subjectParticipantId", "participant_id", "participantId"),
		ParticipantName: pickString(raw, "subject_participant_name", "subjectParticipantName", "participant_name", "participantName"),
	}
}

func normalizeKind(s string) Kind {
	switch strings.ToLower(s) {
	case "image", "img", "photo":
		return KindImage
	case "system", "control":
		return KindSystem
	default:
		return KindText
	}
}

func pickString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickMap(raw map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := raw[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func pickStrings(raw map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch vv := v.(type) {
		case []string:
			return vv
		case []any:
			out := make([]string, 0, len(vv))
			for _, e := range vv {
				if s, ok := e.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

// pickTime accepts RFC3339(Nano) strings and epoch numbers. Epoch values
// above 1e12 are treated as milliseconds.
func pickTime(raw map[string]any, fallback time.Time, keys ...string) time.Time {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch vv := v.(type) {
		case string:
			if t, err := time.Parse(time.RFC3339Nano, vv); err == nil {
				return t
			}
			if t, err := time.Parse(time.RFC3339, vv); err == nil {
				return t
			}
		case float64:
			if vv > 1e12 {
				return time.UnixMilli(int64(vv)).UTC()
			}
			if vv > 0 {
				return time.Unix(int64(vv), 0).UTC()
			}
		case json.Number:
			if n, err := vv.Int64(); err == nil && n > 0 {
				if n > 1e12 {
					return time.UnixMilli(n).UTC()
				}
				return time.Unix(n, 0).UTC()
			}
		}
	}
	return fallback
}
