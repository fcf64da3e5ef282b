package types

import (
	"crypto/subtle"
	"encoding/hex"

	"drat/internal/util/memzero"
)

// KeySize is the size in bytes of every key handled by the ratchet.
const KeySize = 32

// X25519Public is a Curve25519 public key.
type X25519Public [KeySize]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// IsZero reports whether the key is the all-zero "no peer" sentinel.
func (p X25519Public) IsZero() bool {
	var zero X25519Public
	return subtle.ConstantTimeCompare(p[:], zero[:]) == 1
}

// Equal compares two public keys in constant time.
func (p X25519Public) Equal(o X25519Public) bool {
	return subtle.ConstantTimeCompare(p[:], o[:]) == 1
}

// String returns the hex encoding of the public key.
func (p X25519Public) String() string { return hex.EncodeToString(p[:]) }

// X25519Private is a Curve25519 private key.
type X25519Private [KeySize]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Wipe zeroes the private key in place.
func (k *X25519Private) Wipe() { memzero.Zero(k[:]) }

// SymmetricKey is an opaque 32-byte secret: a root, chain or message key.
// The zero value denotes an uninitialised key.
type SymmetricKey [KeySize]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// Equal reports whether both keys hold identical bytes, in constant time.
func (k SymmetricKey) Equal(o SymmetricKey) bool {
	return subtle.ConstantTimeCompare(k[:], o[:]) == 1
}

// IsZero reports whether the key is uninitialised.
func (k SymmetricKey) IsZero() bool {
	var zero SymmetricKey
	return k.Equal(zero)
}

// Wipe zeroes the key in place.
func (k *SymmetricKey) Wipe() { memzero.Zero(k[:]) }

// String never prints key material.
func (k SymmetricKey) String() string {
	if k.IsZero() {
		return "SymmetricKey(empty)"
	}
	return "SymmetricKey(redacted)"
}
