package ratchet

import "errors"

var (
	// ErrAuthentication means the AEAD tag did not verify. No plaintext is returned.
	ErrAuthentication = errors.New("ratchet: message authentication failed")
	// ErrSkipLimitExceeded means a header asked to skip more message keys than allowed.
	ErrSkipLimitExceeded = errors.New("ratchet: skip limit exceeded")
	// ErrMalformedHeader means a header could not be decoded.
	ErrMalformedHeader = errors.New("ratchet: malformed header")
	// ErrKeyDerivation means a key derivation or DH computation failed.
	ErrKeyDerivation = errors.New("ratchet: key derivation failed")
	// ErrNotReady means the send chain is uninitialised: a responder must
	// receive a message before it can send.
	ErrNotReady = errors.New("ratchet: send chain not initialised")
)
