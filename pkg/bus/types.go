package bus

// Update signals that the visible state of a room changed (new or merged
// message, read receipt, approval transition). Consumers pull the fresh
// snapshot from the session; the update itself carries no message data.
type Update struct {
	RoomID string `json:"room_id"`
}

// Notice is a human-readable event line for the UI: presence changes,
// connection state, approval announcements.
type Notice struct {
	RoomID string `json:"room_id"`
	Level  string `json:"level"` // "info" | "error"
	Text   string `json:"text"`
}
