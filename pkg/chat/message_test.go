package chat

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

func TestNormalize_SnakeCase(t *testing.T) {
	raw := map[string]any{
		"id":           "m1",
		"content":      "see you at court 3",
		"message_type": "text",
		"created_at":   "2026-05-12T09:00:00Z",
		"sender": map[string]any{
			"id":         "u2",
			"nickname":   "Mina",
			"avatar_url": "https://cdn.example/a.png",
		},
		"read_by": []any{"u1"},
	}

	m := Normalize(raw, "u1", testNow, true)
	if m.ID != "m1" || m.Content != "see you at court 3" || m.Kind != KindText {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Sender == nil || m.Sender.Nickname != "Mina" || m.Sender.AvatarURL == "" {
		t.Fatalf("sender not normalized: %+v", m.Sender)
	}
	if m.IsOwn {
		t.Error("message from u2 should not be own for viewer u1")
	}
	if !m.FromHistory {
		t.Error("history flag not set")
	}
	if len(m.ReadBy) != 1 || m.ReadBy[0] != "u1" {
		t.Errorf("read_by not carried: %v", m.ReadBy)
	}
	if !m.CreatedAt.Equal(time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at: %v", m.CreatedAt)
	}
}

func TestNormalize_CamelCase(t *testing.T) {
	raw := map[string]any{
		"messageId":   "m2",
		"content":     "ok",
		"messageType": "text",
		"createdAt":   "2026-05-12T09:05:00+09:00",
		"user": map[string]any{
			"userId":      "u1",
			"displayName": "Jun",
		},
		"readBy": []any{"u2", "u3"},
	}

	m := Normalize(raw, "u1", testNow, false)
	if m.ID != "m2" {
		t.Fatalf("id: %q", m.ID)
	}
	if m.Sender == nil || m.Sender.ID != "u1" || m.Sender.Nickname != "Jun" {
		t.Fatalf("sender: %+v", m.Sender)
	}
	if !m.IsOwn {
		t.Error("viewer's own message not detected")
	}
	if len(m.ReadBy) != 2 {
		t.Errorf("readBy: %v", m.ReadBy)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	m := Normalize(map[string]any{}, "u1", testNow, false)
	if m.ID == "" {
		t.Error("expected synthetic id for id-less payload")
	}
	if m.Content != "" || m.Kind != KindText || m.Sender != nil {
		t.Errorf("defaults: %+v", m)
	}
	if !m.CreatedAt.Equal(testNow) {
		t.Errorf("created_at should default to now, got %v", m.CreatedAt)
	}
}

func TestNormalize_EpochTimestamps(t *testing.T) {
	secs := Normalize(map[string]any{"id": "a", "created_at": float64(1777777777)}, "", testNow, false)
	if secs.CreatedAt.Year() < 2026 {
		t.Errorf("epoch seconds: %v", secs.CreatedAt)
	}
	millis := Normalize(map[string]any{"id": "b", "timestamp": float64(1777777777000)}, "", testNow, false)
	if !millis.CreatedAt.Equal(secs.CreatedAt) {
		t.Errorf("epoch millis mismatch: %v vs %v", millis.CreatedAt, secs.CreatedAt)
	}
}

func TestNormalize_SenderIDOnly(t *testing.T) {
	m := Normalize(map[string]any{"id": "m3", "sender_id": "u9"}, "u9", testNow, false)
	if m.Sender == nil || m.Sender.ID != "u9" {
		t.Fatalf("flat sender_id not picked up: %+v", m.Sender)
	}
	if !m.IsOwn {
		t.Error("ownership from flat sender_id")
	}
}

func TestParseControl(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    ControlKind
	}{
		{"request snake", `{"kind":"request","subject_participant_id":"u2","subject_participant_name":"Mina"}`, ControlRequest},
		{"confirm camel", `{"kind":"confirm","subjectParticipantId":"u2"}`, ControlConfirm},
		{"cancel", `{"kind":"cancel"}`, ControlCancel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := parseControl(tc.content)
			if c == nil || c.Kind != tc.want {
				t.Fatalf("got %+v, want kind %s", c, tc.want)
			}
		})
	}
}

func TestParseControl_Tolerant(t *testing.T) {
	for _, content := range []string{
		"plain text",
		"{not json at all",
		`{"kind":"unknown"}`,
		`{"foo":"bar"}`,
		"",
	} {
		if c := parseControl(content); c != nil {
			t.Errorf("content %q should not parse as control, got %+v", content, c)
		}
	}
}

func TestIsControl(t *testing.T) {
	m := Normalize(map[string]any{
		"id":           "s1",
		"message_type": "system",
		"content":      `{"kind":"request","subject_participant_id":"u2"}`,
	}, "u1", testNow, false)
	if !m.IsControl() {
		t.Fatal("system message with control payload should be a control message")
	}

	// Control-shaped content in a plain text message is not a control.
	plain := Normalize(map[string]any{
		"id":      "s2",
		"content": `{"kind":"request"}`,
	}, "u1", testNow, false)
	if plain.IsControl() {
		t.Error("text message must not count as control")
	}
}
