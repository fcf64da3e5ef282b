package ratchet

import (
	"encoding/binary"
	"fmt"

	"drat/internal/domain"
)

// HeaderSize is the length of an encoded header: public key, PN, N.
const HeaderSize = domain.KeySize + 8 + 8

// Header accompanies each ciphertext in the clear.
type Header struct {
	// SenderPublicKey is the sender's current DH ratchet public key.
	SenderPublicKey domain.X25519Public
	// PrevChainLength is the number of messages in the sender's previous send chain.
	PrevChainLength uint64
	// MessageNumber is this message's index in the current send chain.
	MessageNumber uint64
}

// Bytes encodes the header: 32-byte key, then PN and N as little-endian uint64.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b, h.SenderPublicKey[:])
	binary.LittleEndian.PutUint64(b[domain.KeySize:], h.PrevChainLength)
	binary.LittleEndian.PutUint64(b[domain.KeySize+8:], h.MessageNumber)
	return b
}

// ParseHeader decodes exactly HeaderSize bytes. The all-zero public key is
// the "no peer" sentinel and is rejected.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) != HeaderSize {
		return h, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformedHeader, HeaderSize, len(b))
	}
	copy(h.SenderPublicKey[:], b[:domain.KeySize])
	if h.SenderPublicKey.IsZero() {
		return Header{}, fmt.Errorf("%w: zero sender public key", ErrMalformedHeader)
	}
	h.PrevChainLength = binary.LittleEndian.Uint64(b[domain.KeySize:])
	h.MessageNumber = binary.LittleEndian.Uint64(b[domain.KeySize+8:])
	return h, nil
}

// associatedData binds the header to the caller's associated data.
func (h Header) associatedData(ad []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(ad))
	out = append(out, h.Bytes()...)
	return append(out, ad...)
}
