package domain

// SendMessageCommand carries one message sending intent from a session
// into the coordinator. CreatedAt is stamped by the server, never
// trusted from the client.
type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Text       string
	ImageURL   string
	VideoURL   string
}

// MarkSeenCommand flags every message authored by Counterpart in the
// pair's conversation as seen by Viewer.
type MarkSeenCommand struct {
	ViewerID      string
	CounterpartID string
}
