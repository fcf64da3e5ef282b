package ratchet

import (
	"fmt"

	"github.com/agl/gcmsiv"

	"drat/internal/domain"
)

// protocolNonce is shared by every Seal/Open. AES-GCM-SIV tolerates nonce
// reuse and each message key encrypts a single message.
var protocolNonce = []byte("Fixed nonce!")

// Seal encrypts plaintext under mk, authenticating ad.
func Seal(mk domain.SymmetricKey, plaintext, ad []byte) ([]byte, error) {
	aead, err := gcmsiv.NewGCMSIV(mk[:])
	if err != nil {
		return nil, fmt.Errorf("%w: aes-gcm-siv: %v", ErrKeyDerivation, err)
	}
	return aead.Seal(nil, protocolNonce, plaintext, ad), nil
}

// Open decrypts ciphertext under mk. A tag mismatch yields ErrAuthentication
// and no plaintext.
func Open(mk domain.SymmetricKey, ciphertext, ad []byte) ([]byte, error) {
	aead, err := gcmsiv.NewGCMSIV(mk[:])
	if err != nil {
		return nil, fmt.Errorf("%w: aes-gcm-siv: %v", ErrKeyDerivation, err)
	}
	plaintext, err := aead.Open(nil, protocolNonce, ciphertext, ad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
