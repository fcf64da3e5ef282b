package domain

import (
	interfaces "drat/internal/domain/interfaces"
	types "drat/internal/domain/types"
)

// KeySize is the size in bytes of every ratchet key.
const KeySize = types.KeySize

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username         = types.Username
	Fingerprint      = types.Fingerprint
	SessionID        = types.SessionID
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	SymmetricKey     = types.SymmetricKey
	Envelope         = types.Envelope
	DecryptedMessage = types.DecryptedMessage
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayClient = interfaces.RelayClient
	Mailbox     = interfaces.Mailbox
)
