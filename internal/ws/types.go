package ws

// server -> client message types
const (
	MsgReady          = "ready"
	MsgSessionRevoked = "session_revoked"
)

// Message is the envelope pushed to connected clients.
type Message struct {
	Type string `json:"type"`
	// JTI is the revoked session id.
	JTI string `json:"jti,omitempty"`
	// Current is true when the revoked session is the one this connection
	// authenticated with; the server closes the connection right after.
	Current bool `json:"current,omitempty"`
}
