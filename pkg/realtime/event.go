// Package realtime maintains the single live websocket connection to the
// Courtline backend: room join/leave, inbound event dispatch and bounded
// automatic reconnection. It translates payload shape only; business
// meaning belongs to the chat package.
package realtime

import (
	"encoding/json"
	"strings"
)

// EventType is an inbound realtime event kind, canonicalized from the
// wire's snake_case or camelCase names.
type EventType string

const (
	// EventConnected is synthetic: fired after every successful connect or
	// reconnect so consumers can re-establish room interest and refetch.
	EventConnected EventType = "connected"

	EventNewMessage          EventType = "new_message"
	EventMessageRead         EventType = "message_read"
	EventUserJoined          EventType = "user_joined"
	EventUserLeft            EventType = "user_left"
	EventParticipantApproved EventType = "participant_approved"
)

// Event is one inbound realtime event after shape translation.
type Event struct {
	Type   EventType
	RoomID string
	Data   map[string]any
}

// Handler consumes dispatched events. Handlers run on the read pump
// goroutine and must not block.
type Handler func(Event)

type envelope struct {
	Event   string          `json:"event"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

// decodeEvent parses a wire frame into an Event. Unknown or malformed
// frames return ok=false and are skipped, never surfaced.
func decodeEvent(frame []byte) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, false
	}
	name := env.Event
	if name == "" {
		name = env.Type
	}
	t, ok := canonicalEvent(name)
	if !ok {
		return Event{}, false
	}

	raw := env.Data
	if len(raw) == 0 {
		raw = env.Payload
	}
	data := map[string]any{}
	if len(raw) > 0 {
		// Malformed data keeps the event with an empty payload.
		_ = json.Unmarshal(raw, &data)
	}

	ev := Event{Type: t, Data: data}
	for _, k := range []string{"room_id", "roomId", "chat_id", "chatId"} {
		if s, ok := data[k].(string); ok && s != "" {
			ev.RoomID = s
			break
		}
	}
	return ev, true
}

// canonicalEvent maps the wire's event-name variants onto EventTypes.
func canonicalEvent(name string) (EventType, bool) {
	norm := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(name))
	switch norm {
	case "new_message", "newmessage", "message_created", "message":
		return EventNewMessage, true
	case "message_read", "messageread", "message_read_by", "read_by", "readby":
		return EventMessageRead, true
	case "user_joined", "userjoined", "join":
		return EventUserJoined, true
	case "user_left", "userleft", "leave":
		return EventUserLeft, true
	case "participant_approved", "participantapproved":
		return EventParticipantApproved, true
	}
	return "", false
}
