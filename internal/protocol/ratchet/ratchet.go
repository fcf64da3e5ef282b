package ratchet

import (
	"crypto/rand"
	"fmt"
	"io"

	"drat/internal/crypto"
	"drat/internal/domain"
	"drat/internal/util/memzero"
)

// chains is the mutable key schedule of a State. Decrypt works on a copy and
// commits it only after the message authenticates.
type chains struct {
	dhPriv domain.X25519Private
	dhPub  domain.X25519Public
	peer   domain.X25519Public

	rootKey domain.SymmetricKey
	sendCK  domain.SymmetricKey
	recvCK  domain.SymmetricKey

	ns, nr, pn uint64
}

func (c *chains) wipe() {
	c.dhPriv.Wipe()
	c.rootKey.Wipe()
	c.sendCK.Wipe()
	c.recvCK.Wipe()
}

// State is one party's Double Ratchet session state.
type State struct {
	chains

	skipped *SkippedKeys
	maxSkip uint64
	rand    io.Reader
}

type stagedKey struct {
	peer domain.X25519Public
	n    uint64
	mk   domain.SymmetricKey
}

func newState(opts []Option) *State {
	s := &State{
		skipped: NewSkippedKeys(),
		maxSkip: DefaultMaxSkip,
		rand:    rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitAsInitiator builds the state of the party that sends first. It already
// knows the responder's ratchet public key, so it derives the root key and
// its send chain immediately from a fresh key pair.
func InitAsInitiator(shared domain.SymmetricKey, peer domain.X25519Public, opts ...Option) (*State, error) {
	if shared.IsZero() {
		return nil, fmt.Errorf("%w: empty shared secret", ErrKeyDerivation)
	}
	if peer.IsZero() {
		return nil, fmt.Errorf("%w: empty peer public key", ErrKeyDerivation)
	}

	s := newState(opts)
	priv, pub, err := crypto.GenerateX25519From(s.rand)
	if err != nil {
		return nil, fmt.Errorf("%w: generate ratchet key: %v", ErrKeyDerivation, err)
	}
	dh, err := crypto.DH(priv, peer)
	if err != nil {
		priv.Wipe()
		return nil, fmt.Errorf("%w: dh: %v", ErrKeyDerivation, err)
	}
	rk, sendCK, err := KDFRoot(shared, dh)
	memzero.Zero(dh[:])
	if err != nil {
		priv.Wipe()
		return nil, err
	}

	s.dhPriv, s.dhPub = priv, pub
	s.peer = peer
	s.rootKey = rk
	s.sendCK = sendCK
	return s, nil
}

// InitAsResponder builds the state of the party whose key pair the initiator
// was given. Both chains stay uninitialised until the first incoming message
// forces a DH ratchet step; Encrypt fails with ErrNotReady until then.
func InitAsResponder(shared domain.SymmetricKey, priv domain.X25519Private, pub domain.X25519Public, opts ...Option) (*State, error) {
	if shared.IsZero() {
		return nil, fmt.Errorf("%w: empty shared secret", ErrKeyDerivation)
	}
	derived, err := crypto.PublicKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if pub.IsZero() || !pub.Equal(derived) {
		return nil, fmt.Errorf("%w: responder key pair mismatch", ErrKeyDerivation)
	}
	s := newState(opts)
	s.dhPriv, s.dhPub = priv, pub
	s.rootKey = shared
	return s, nil
}

// Ready reports whether the send chain is initialised.
func (s *State) Ready() bool { return !s.sendCK.IsZero() }

// PublicKey returns our current DH ratchet public key.
func (s *State) PublicKey() domain.X25519Public { return s.dhPub }

// PeerPublicKey returns the tracked peer ratchet key (zero before the first
// message for a responder).
func (s *State) PeerPublicKey() domain.X25519Public { return s.peer }

// SendCount returns the number of messages sent on the current send chain.
func (s *State) SendCount() uint64 { return s.ns }

// ReceiveCount returns the next expected message number on the receive chain.
func (s *State) ReceiveCount() uint64 { return s.nr }

// PrevChainLength returns the length of our previous send chain.
func (s *State) PrevChainLength() uint64 { return s.pn }

// MaxSkip returns the per-call skip limit.
func (s *State) MaxSkip() uint64 { return s.maxSkip }

// Skipped exposes the skipped-key store for inspection and eviction.
func (s *State) Skipped() *SkippedKeys { return s.skipped }

// PruneSkipped keeps skipped keys of at most keepChains peer ratchet keys,
// evicting the oldest. It returns the number of keys removed.
func (s *State) PruneSkipped(keepChains int) int { return s.skipped.Prune(keepChains) }

// Wipe zeroes every secret held by the state. The state is unusable afterwards.
func (s *State) Wipe() {
	s.chains.wipe()
	s.ns, s.nr, s.pn = 0, 0, 0
	s.skipped.Wipe()
}

// Encrypt advances the send chain and seals plaintext. The associated data
// bound into the tag is the encoded header followed by ad.
func (s *State) Encrypt(plaintext, ad []byte) (Header, []byte, error) {
	if !s.Ready() {
		return Header{}, nil, ErrNotReady
	}

	nextCK, mk := KDFChain(s.sendCK)
	h := Header{
		SenderPublicKey: s.dhPub,
		PrevChainLength: s.pn,
		MessageNumber:   s.ns,
	}
	ct, err := Seal(mk, plaintext, h.associatedData(ad))
	mk.Wipe()
	if err != nil {
		nextCK.Wipe()
		return Header{}, nil, err
	}

	s.sendCK = nextCK
	s.ns++
	return h, ct, nil
}

// Decrypt opens a message. It serves out-of-order messages from the skipped
// key store, performs a DH ratchet step when the sender's ratchet key changes,
// and stores keys for any messages skipped on the way. On error the state is
// left exactly as it was.
func (s *State) Decrypt(h Header, ciphertext, ad []byte) ([]byte, error) {
	if h.SenderPublicKey.IsZero() {
		return nil, fmt.Errorf("%w: zero sender public key", ErrMalformedHeader)
	}

	// The key leaves the store only once it has opened the message, so a
	// forgery neither burns it nor reorders its chain.
	if mk, ok := s.skipped.peek(h.SenderPublicKey, h.MessageNumber); ok {
		pt, err := Open(mk, ciphertext, h.associatedData(ad))
		if err != nil {
			return nil, err
		}
		mk, _ = s.skipped.Take(h.SenderPublicKey, h.MessageNumber)
		mk.Wipe()
		return pt, nil
	}

	tx := s.chains
	var staged []stagedKey
	pt, err := s.decryptTx(&tx, &staged, h, ciphertext, ad)
	if err != nil {
		tx.wipe()
		for i := range staged {
			staged[i].mk.Wipe()
		}
		return nil, err
	}

	old := s.chains
	s.chains = tx
	old.wipe()
	for _, k := range staged {
		s.skipped.Put(k.peer, k.n, k.mk)
	}
	return pt, nil
}

func (s *State) decryptTx(tx *chains, staged *[]stagedKey, h Header, ciphertext, ad []byte) ([]byte, error) {
	if !h.SenderPublicKey.Equal(tx.peer) {
		if err := s.skipKeys(tx, staged, h.PrevChainLength); err != nil {
			return nil, err
		}
		if err := s.dhRatchet(tx, h.SenderPublicKey); err != nil {
			return nil, err
		}
	}
	if err := s.skipKeys(tx, staged, h.MessageNumber); err != nil {
		return nil, err
	}
	if h.MessageNumber < tx.nr {
		return nil, fmt.Errorf("%w: message %d already consumed", ErrAuthentication, h.MessageNumber)
	}
	if tx.recvCK.IsZero() {
		return nil, fmt.Errorf("%w: no receive chain for this key", ErrAuthentication)
	}

	var mk domain.SymmetricKey
	tx.recvCK, mk = KDFChain(tx.recvCK)
	tx.nr++

	pt, err := Open(mk, ciphertext, h.associatedData(ad))
	mk.Wipe()
	return pt, err
}

// skipKeys derives receive-chain message keys up to (excluding) until and
// stages them under the tracked peer key. Nothing is derived without a
// receive chain.
func (s *State) skipKeys(tx *chains, staged *[]stagedKey, until uint64) error {
	if until > tx.nr && until-tx.nr > s.maxSkip {
		return fmt.Errorf("%w: %d keys requested, limit %d", ErrSkipLimitExceeded, until-tx.nr, s.maxSkip)
	}
	if tx.recvCK.IsZero() {
		return nil
	}
	for tx.nr < until {
		var mk domain.SymmetricKey
		tx.recvCK, mk = KDFChain(tx.recvCK)
		*staged = append(*staged, stagedKey{peer: tx.peer, n: tx.nr, mk: mk})
		tx.nr++
	}
	return nil
}

// dhRatchet rotates the root key and both chains for a new peer ratchet key.
func (s *State) dhRatchet(tx *chains, peer domain.X25519Public) error {
	tx.pn = tx.ns
	tx.ns, tx.nr = 0, 0
	tx.peer = peer

	dh, err := crypto.DH(tx.dhPriv, peer)
	if err != nil {
		return fmt.Errorf("%w: dh: %v", ErrKeyDerivation, err)
	}
	tx.rootKey, tx.recvCK, err = KDFRoot(tx.rootKey, dh)
	memzero.Zero(dh[:])
	if err != nil {
		return err
	}

	priv, pub, err := crypto.GenerateX25519From(s.rand)
	if err != nil {
		return fmt.Errorf("%w: generate ratchet key: %v", ErrKeyDerivation, err)
	}
	tx.dhPriv, tx.dhPub = priv, pub

	dh, err = crypto.DH(tx.dhPriv, peer)
	if err != nil {
		return fmt.Errorf("%w: dh: %v", ErrKeyDerivation, err)
	}
	tx.rootKey, tx.sendCK, err = KDFRoot(tx.rootKey, dh)
	memzero.Zero(dh[:])
	return err
}
