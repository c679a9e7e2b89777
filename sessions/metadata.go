package sessions

import "time"

// CurrentMetaVersion is written into every new SessionMetadata record.
const CurrentMetaVersion = 1

// CapabilitySet captures the client capability surface negotiated at
// initialize time.
type CapabilitySet struct {
	Roots            bool `json:"roots,omitempty"`
	RootsListChanged bool `json:"roots_list_changed,omitempty"`
	Sampling         bool `json:"sampling,omitempty"`
	Elicitation      bool `json:"elicitation,omitempty"`
}

// ClientInfo records the client identity supplied at initialization.
type ClientInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// SessionMetadata is the persisted representation of an MCP session.
//
// SessionID, UserID, ProtocolVersion, Client and Capabilities are immutable
// once created. TTL is a sliding window: the session expires when
// LastAccess + TTL < now.
type SessionMetadata struct {
	MetaVersion     int           `json:"meta_version"`
	SessionID       string        `json:"session_id"`
	UserID          string        `json:"user_id"`
	ProtocolVersion string        `json:"protocol_version,omitempty"`
	Client          ClientInfo    `json:"client,omitempty"`
	Capabilities    CapabilitySet `json:"capabilities,omitempty"`
	State           SessionState  `json:"state"`

	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	LastAccess time.Time     `json:"last_access"`
	TTL        time.Duration `json:"ttl"`

	Revoked bool `json:"revoked"`
}

// Expired reports whether the sliding window has elapsed at now.
func (m *SessionMetadata) Expired(now time.Time) bool {
	if m.TTL <= 0 {
		return false
	}
	return m.LastAccess.Add(m.TTL).Before(now)
}
