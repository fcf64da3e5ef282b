// Package ratchet implements the Double Ratchet algorithm.
//
// The algorithm maintains a root key and two message chains (send and receive).
// Each message advances a KDF chain so that keys are forward secure. When the
// peer changes its DH ratchet public key, the receiver performs a DH ratchet
// step: it mixes fresh Diffie-Hellman output into the root key and derives new
// receive and send chains.
//
// Primitives
//
//   - KDFRoot: HKDF-SHA256 keyed by the root key over a DH output
//   - KDFChain: HMAC-SHA256 keyed by the chain key over two labels
//   - Seal/Open: AES-256-GCM-SIV with a protocol-wide constant nonce; every
//     message key is used exactly once
//
// Decrypt is transactional: when it returns an error the State is unchanged.
//
// Concurrency: State is NOT safe for concurrent use. Callers must serialise
// access per conversation (see internal/session).
package ratchet
