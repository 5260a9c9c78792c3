package chat

import (
	"testing"
)

func control(id string, min int, kind ControlKind) Message {
	return Message{
		ID:        id,
		Kind:      KindSystem,
		CreatedAt: at(min),
		Control:   &ControlMeta{Kind: kind, ParticipantID: "u2"},
	}
}

func TestDeriveApproval_Determinism(t *testing.T) {
	s := NewStore()
	if got := DeriveApproval(s.Snapshot()); got != StatusNone {
		t.Fatalf("empty log: %q", got)
	}

	s.Upsert(control("c1", 1, ControlRequest))
	if got := DeriveApproval(s.Snapshot()); got != StatusRequested {
		t.Fatalf("after request: %q", got)
	}

	s.Upsert(control("c2", 2, ControlConfirm))
	if got := DeriveApproval(s.Snapshot()); got != StatusConfirmed {
		t.Fatalf("after confirm: %q", got)
	}

	s.Upsert(control("c3", 3, ControlCancel))
	if got := DeriveApproval(s.Snapshot()); got != StatusCancelled {
		t.Fatalf("after cancel: %q", got)
	}

	s.Upsert(control("c4", 4, ControlRequest))
	if got := DeriveApproval(s.Snapshot()); got != StatusRequested {
		t.Fatalf("after re-request: %q", got)
	}
}

func TestDeriveApproval_ChronologicalNotArrival(t *testing.T) {
	s := NewStore()
	// Confirm arrives before the request it answers; the later timestamp
	// still wins.
	s.Upsert(control("c2", 2, ControlConfirm))
	s.Upsert(control("c1", 1, ControlRequest))
	if got := DeriveApproval(s.Snapshot()); got != StatusConfirmed {
		t.Fatalf("chronologically last must win: %q", got)
	}
}

func TestDeriveApproval_IgnoresNonControl(t *testing.T) {
	s := NewStore()
	s.Upsert(control("c1", 1, ControlRequest))
	s.Upsert(msg("t1", 5)) // plain chat after the request
	sys := Message{ID: "s1", Kind: KindSystem, CreatedAt: at(6), Content: "court changed"}
	s.Upsert(sys)

	if got := DeriveApproval(s.Snapshot()); got != StatusRequested {
		t.Fatalf("non-control messages must not affect status: %q", got)
	}
}

func TestApprovalGates(t *testing.T) {
	cases := []struct {
		status     ApprovalStatus
		isHost     bool
		canRequest bool
		canConfirm bool
		canCancel  bool
	}{
		{StatusNone, false, true, false, false},
		{StatusNone, true, false, false, false},
		{StatusRequested, false, false, false, false},
		{StatusRequested, true, false, true, true},
		{StatusConfirmed, true, false, false, true},
		{StatusConfirmed, false, false, false, false},
		{StatusCancelled, false, true, false, false},
		{StatusCancelled, true, false, false, false},
	}
	for _, tc := range cases {
		if got := CanRequest(tc.status, tc.isHost); got != tc.canRequest {
			t.Errorf("CanRequest(%q,host=%v)=%v", tc.status, tc.isHost, got)
		}
		if got := CanConfirm(tc.status, tc.isHost); got != tc.canConfirm {
			t.Errorf("CanConfirm(%q,host=%v)=%v", tc.status, tc.isHost, got)
		}
		if got := CanCancel(tc.status, tc.isHost); got != tc.canCancel {
			t.Errorf("CanCancel(%q,host=%v)=%v", tc.status, tc.isHost, got)
		}
	}
}
