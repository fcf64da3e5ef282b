package types

// Username names one party of a conversation on a transport.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SessionID identifies one ratchet session.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }
