package chat

// ApprovalStatus is the derived state of the participant approval workflow
// for a room. It is never stored: it is recomputed from the ordered message
// log on every update, so it can transiently lag if events arrive out of
// order. The backend remains the authority.
type ApprovalStatus string

const (
	StatusNone      ApprovalStatus = ""
	StatusRequested ApprovalStatus = "requested"
	StatusConfirmed ApprovalStatus = "confirmed"
	StatusCancelled ApprovalStatus = "cancelled"
)

// DeriveApproval returns the status implied by the chronologically last
// approval control message in the snapshot, or StatusNone when there is
// none. Pure; safe to call on every update.
func DeriveApproval(snapshot []Message) ApprovalStatus {
	for i := len(snapshot) - 1; i >= 0; i-- {
		if !snapshot[i].IsControl() {
			continue
		}
		switch snapshot[i].Control.Kind {
		case ControlRequest:
			return StatusRequested
		case ControlConfirm:
			return StatusConfirmed
		case ControlCancel:
			return StatusCancelled
		}
	}
	return StatusNone
}

// The Can* gates are advisory only: they enable or disable UI actions.
// The backend enforces real authorization on the corresponding calls.

// CanRequest reports whether a participant may send an approval request.
func CanRequest(status ApprovalStatus, isHost bool) bool {
	return !isHost && (status == StatusNone || status == StatusCancelled)
}

// CanConfirm reports whether the host may confirm the pending request.
func CanConfirm(status ApprovalStatus, isHost bool) bool {
	return isHost && status == StatusRequested
}

// CanCancel reports whether the host may cancel a request or confirmation.
func CanCancel(status ApprovalStatus, isHost bool) bool {
	return isHost && (status == StatusRequested || status == StatusConfirmed)
}
