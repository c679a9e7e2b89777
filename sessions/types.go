package sessions

import "errors"

// Session is the per-connection view handed to request handlers.
// Implementations are safe for concurrent use.
type Session interface {
	SessionID() string
	UserID() string
	// ProtocolVersion is the negotiated MCP protocol version baked into the session.
	ProtocolVersion() string
}

// SessionState is the lifecycle stage of a session as seen by a transport.
type SessionState string

const (
	// StatePending covers the window between initialize and
	// notifications/initialized.
	StatePending SessionState = "pending"
	// StateOpen sessions accept every request.
	StateOpen SessionState = "open"
	// StateClosed sessions were deleted or expired.
	StateClosed SessionState = "closed"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown, expired or revoked.
	ErrSessionNotFound = errors.New("sessions: session not found")
	// ErrUserMismatch is returned when a session is loaded by a different principal.
	ErrUserMismatch = errors.New("sessions: session belongs to another user")
)
