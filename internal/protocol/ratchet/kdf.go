package ratchet

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"drat/internal/domain"
	"drat/internal/util/memzero"
)

var (
	rootInfo     = []byte("root-keygen")
	chainInfo    = []byte("chain-keygen")
	chainLabel   = []byte("chain")
	messageLabel = []byte("message")
)

// KDFRoot derives a new root key and chain key from the current root key and
// a DH output. HKDF-SHA256 extracts with the root key as salt, then expands
// each output under its own info label.
func KDFRoot(rk domain.SymmetricKey, dhOut [32]byte) (newRK, ck domain.SymmetricKey, err error) {
	prk := hkdf.Extract(sha256.New, dhOut[:], rk[:])
	defer memzero.Zero(prk)

	if err = expand(prk, rootInfo, &newRK); err != nil {
		return newRK, ck, err
	}
	if err = expand(prk, chainInfo, &ck); err != nil {
		newRK.Wipe()
		return newRK, ck, err
	}
	return newRK, ck, nil
}

func expand(prk, info []byte, out *domain.SymmetricKey) error {
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), out[:]); err != nil {
		return fmt.Errorf("%w: hkdf expand %q: %v", ErrKeyDerivation, info, err)
	}
	return nil
}

// KDFChain advances a chain key. The next chain key and the message key are
// HMAC-SHA256 outputs keyed by ck over two distinct labels, so the message key
// reveals nothing about either chain key.
func KDFChain(ck domain.SymmetricKey) (nextCK, mk domain.SymmetricKey) {
	mac := hmac.New(sha256.New, ck[:])
	mac.Write(chainLabel)
	copy(nextCK[:], mac.Sum(nil))

	mac.Reset()
	mac.Write(messageLabel)
	copy(mk[:], mac.Sum(nil))
	return nextCK, mk
}
