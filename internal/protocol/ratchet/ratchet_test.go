package ratchet_test

import (
	"bytes"
	"crypto/rand"
	norand "math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"drat/internal/crypto"
	"drat/internal/domain"
	"drat/internal/protocol/ratchet"
)

var testAD = []byte("Empty AD")

// newPair returns an initiator (alice) and responder (bob) sharing a fresh secret.
func newPair(t *testing.T, opts ...ratchet.Option) (alice, bob *ratchet.State) {
	t.Helper()
	var shared domain.SymmetricKey
	_, err := rand.Read(shared[:])
	require.NoError(t, err)

	bPriv, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	alice, err = ratchet.InitAsInitiator(shared, bPub, opts...)
	require.NoError(t, err)
	bob, err = ratchet.InitAsResponder(shared, bPriv, bPub, opts...)
	require.NoError(t, err)
	return alice, bob
}

type sealed struct {
	h  ratchet.Header
	ct []byte
	pt []byte
}

func send(t *testing.T, from *ratchet.State, msg string) sealed {
	t.Helper()
	h, ct, err := from.Encrypt([]byte(msg), testAD)
	require.NoError(t, err)
	return sealed{h: h, ct: ct, pt: []byte(msg)}
}

func deliver(t *testing.T, to *ratchet.State, m sealed) {
	t.Helper()
	pt, err := to.Decrypt(m.h, m.ct, testAD)
	require.NoError(t, err)
	require.Equal(t, m.pt, pt)
}

func TestDoubleRatchet_OneRoundTrip(t *testing.T) {
	alice, bob := newPair(t)

	deliver(t, bob, send(t, alice, "hi"))
	deliver(t, alice, send(t, bob, "hello"))
}

func TestDoubleRatchet_ScriptedExchange(t *testing.T) {
	alice, bob := newPair(t)
	script := []struct {
		fromAlice bool
		msg       string
	}{
		{true, "Hello Bob!"},
		{true, "How are u?"},
		{false, "Hi, Alice!"},
		{false, "I am fine!"},
		{true, "Wat's new?"},
	}
	for _, step := range script {
		if step.fromAlice {
			deliver(t, bob, send(t, alice, step.msg))
		} else {
			deliver(t, alice, send(t, bob, step.msg))
		}
	}
}

func TestDoubleRatchet_PingPong(t *testing.T) {
	alice, bob := newPair(t)
	actions := []struct {
		sender   *ratchet.State
		receiver *ratchet.State
		msgs     int
	}{
		{alice, bob, 1},
		{bob, alice, 1},
		{alice, bob, 2},
		{bob, alice, 3},
		{alice, bob, 5},
		{bob, alice, 8},
		{alice, bob, 13},
		{bob, alice, 21},
	}

	for _, action := range actions {
		for i := 0; i < action.msgs; i++ {
			msgIn := make([]byte, 16)
			_, err := rand.Read(msgIn)
			require.NoError(t, err)

			h, ct, err := action.sender.Encrypt(msgIn, testAD)
			require.NoError(t, err)
			require.Equal(t, uint64(i), h.MessageNumber)

			msgOut, err := action.receiver.Decrypt(h, ct, testAD)
			require.NoError(t, err)
			require.Equal(t, msgIn, msgOut)
		}
	}
	require.Zero(t, alice.Skipped().Len())
	require.Zero(t, bob.Skipped().Len())
}

func TestDoubleRatchet_OutOfOrder(t *testing.T) {
	alice, bob := newPair(t)

	m0 := send(t, alice, "m0")
	m1 := send(t, alice, "m1")
	m2 := send(t, alice, "m2")

	deliver(t, bob, m0)
	deliver(t, bob, m2)
	require.True(t, bob.Skipped().Has(alice.PublicKey(), 1), "m1 key must be cached")
	require.Equal(t, uint64(3), bob.ReceiveCount())

	deliver(t, bob, m1)
	require.Zero(t, bob.Skipped().Len())
	require.Equal(t, uint64(3), bob.ReceiveCount(), "skipped delivery must not move the counter")
}

func TestDoubleRatchet_ShuffledChains(t *testing.T) {
	alice, bob := newPair(t)
	actions := []struct {
		sender   *ratchet.State
		receiver *ratchet.State
		msgs     int
	}{
		{alice, bob, 2},
		{bob, alice, 3},
		{alice, bob, 5},
		{bob, alice, 7},
		{alice, bob, 11},
		{bob, alice, 19},
	}

	for _, action := range actions {
		batch := make([]sealed, action.msgs)
		for i := range batch {
			batch[i] = send(t, action.sender, string(rune('a'+i)))
		}
		norand.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
		for _, m := range batch {
			deliver(t, action.receiver, m)
		}
	}
}

func TestDoubleRatchet_LateDeliveryAcrossRatchet(t *testing.T) {
	alice, bob := newPair(t)

	a0 := send(t, alice, "a0")
	a1 := send(t, alice, "a1")
	oldAliceKey := alice.PublicKey()
	deliver(t, bob, a0)

	deliver(t, alice, send(t, bob, "b0"))

	a2 := send(t, alice, "a2")
	require.Equal(t, uint64(2), a2.h.PrevChainLength)
	require.False(t, a2.h.SenderPublicKey.Equal(oldAliceKey))

	deliver(t, bob, a2)
	require.True(t, bob.Skipped().Has(oldAliceKey, 1), "unused key of the old chain must survive the ratchet")

	deliver(t, bob, a1)
	require.Zero(t, bob.Skipped().Len())
}

func TestDoubleRatchet_DHRatchetTrigger(t *testing.T) {
	alice, bob := newPair(t)
	require.True(t, bob.PeerPublicKey().IsZero())
	aliceFirst := alice.PublicKey()

	deliver(t, bob, send(t, alice, "one"))
	require.Equal(t, alice.PublicKey(), bob.PeerPublicKey())
	require.Equal(t, uint64(1), bob.ReceiveCount())
	require.Zero(t, bob.SendCount())

	deliver(t, bob, send(t, alice, "two"))
	bobKey := bob.PublicKey()
	require.Equal(t, uint64(2), bob.ReceiveCount())
	deliver(t, alice, send(t, bob, "three"))
	deliver(t, alice, send(t, bob, "four"))
	require.Equal(t, uint64(2), bob.SendCount())
	require.Equal(t, bobKey, alice.PeerPublicKey())

	reply := send(t, alice, "five")
	require.NotEqual(t, aliceFirst, reply.h.SenderPublicKey, "alice ratcheted on bob's reply")

	deliver(t, bob, reply)
	require.Equal(t, reply.h.SenderPublicKey, bob.PeerPublicKey())
	require.Zero(t, bob.SendCount(), "send counter resets on a DH step")
	require.Equal(t, uint64(1), bob.ReceiveCount(), "receive counter resets on a DH step")
	require.Equal(t, uint64(2), bob.PrevChainLength())
	require.NotEqual(t, bobKey, bob.PublicKey(), "a fresh key pair is generated on a DH step")
}

func TestDoubleRatchet_ResponderNotReady(t *testing.T) {
	_, bob := newPair(t)
	require.False(t, bob.Ready())

	_, _, err := bob.Encrypt([]byte("too early"), nil)
	require.ErrorIs(t, err, ratchet.ErrNotReady)
}

func TestDoubleRatchet_SkipLimit(t *testing.T) {
	alice, bob := newPair(t)

	msgs := make([]sealed, ratchet.DefaultMaxSkip+2)
	for i := range msgs {
		msgs[i] = send(t, alice, "x")
	}

	last := msgs[ratchet.DefaultMaxSkip+1]
	_, err := bob.Decrypt(last.h, last.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrSkipLimitExceeded)
	require.Zero(t, bob.Skipped().Len(), "no skip entries may be allocated on rejection")
	require.False(t, bob.Ready(), "rejected message must not ratchet")
	require.True(t, bob.PeerPublicKey().IsZero())

	// Exactly at the limit is allowed.
	deliver(t, bob, msgs[ratchet.DefaultMaxSkip])
	require.Equal(t, ratchet.DefaultMaxSkip, bob.Skipped().Len())
}

func TestDoubleRatchet_CustomSkipLimit(t *testing.T) {
	alice, bob := newPair(t, ratchet.WithMaxSkip(2))
	require.Equal(t, uint64(2), bob.MaxSkip())

	_ = send(t, alice, "0")
	_ = send(t, alice, "1")
	_ = send(t, alice, "2")
	m3 := send(t, alice, "3")

	_, err := bob.Decrypt(m3.h, m3.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrSkipLimitExceeded)
}

func TestDoubleRatchet_FailedDecryptLeavesStateUntouched(t *testing.T) {
	alice, bob := newPair(t)

	m0 := send(t, alice, "m0")
	tampered := append([]byte(nil), m0.ct...)
	tampered[0] ^= 0xFF

	_, err := bob.Decrypt(m0.h, tampered, testAD)
	require.ErrorIs(t, err, ratchet.ErrAuthentication)
	require.False(t, bob.Ready())
	require.True(t, bob.PeerPublicKey().IsZero())
	require.Zero(t, bob.ReceiveCount())

	_, err = bob.Decrypt(m0.h, m0.ct, []byte("other context"))
	require.ErrorIs(t, err, ratchet.ErrAuthentication)

	deliver(t, bob, m0)
}

func TestDoubleRatchet_ForgedSkippedMessageKeepsKey(t *testing.T) {
	alice, bob := newPair(t)
	m0, m1, m2 := send(t, alice, "m0"), send(t, alice, "m1"), send(t, alice, "m2")
	deliver(t, bob, m0)
	deliver(t, bob, m2)

	_, err := bob.Decrypt(m1.h, []byte("garbage that will not authenticate"), testAD)
	require.ErrorIs(t, err, ratchet.ErrAuthentication)
	require.True(t, bob.Skipped().Has(m1.h.SenderPublicKey, 1))

	deliver(t, bob, m1)
}

func TestDoubleRatchet_ReplayRejected(t *testing.T) {
	alice, bob := newPair(t)
	m0, m1 := send(t, alice, "m0"), send(t, alice, "m1")

	deliver(t, bob, m0)
	_, err := bob.Decrypt(m0.h, m0.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrAuthentication)

	// The replay did not disturb the chain.
	deliver(t, bob, m1)
}

func TestDoubleRatchet_MalformedHeader(t *testing.T) {
	_, bob := newPair(t)
	_, err := bob.Decrypt(ratchet.Header{}, []byte("x"), nil)
	require.ErrorIs(t, err, ratchet.ErrMalformedHeader)
}

func TestDoubleRatchet_HeaderIsAuthenticated(t *testing.T) {
	alice, bob := newPair(t)
	deliver(t, bob, send(t, alice, "m0"))

	m1 := send(t, alice, "m1")
	m1.h.PrevChainLength = 5
	_, err := bob.Decrypt(m1.h, m1.ct, testAD)
	require.ErrorIs(t, err, ratchet.ErrAuthentication)
}

func TestDoubleRatchet_PruneSkipped(t *testing.T) {
	alice, bob := newPair(t)

	// Chain 1: alice skips m0.
	_ = send(t, alice, "lost")
	deliver(t, bob, send(t, alice, "a1"))
	deliver(t, alice, send(t, bob, "b0"))

	// Chain 2: alice skips again on her new key.
	_ = send(t, alice, "lost again")
	deliver(t, bob, send(t, alice, "a2"))

	require.Equal(t, 2, bob.Skipped().Len())
	require.Equal(t, 2, bob.Skipped().Chains())

	require.Equal(t, 1, bob.PruneSkipped(1))
	require.Equal(t, 1, bob.Skipped().Len())
}

func TestDoubleRatchet_ForgedSkippedKeepsChainOrder(t *testing.T) {
	alice, bob := newPair(t)

	m0 := send(t, alice, "lost")
	deliver(t, bob, send(t, alice, "a1"))
	deliver(t, alice, send(t, bob, "b0"))

	n0 := send(t, alice, "lost again")
	deliver(t, bob, send(t, alice, "a2"))
	require.Equal(t, 2, bob.Skipped().Chains())

	// A forgery against the older chain must not make it look newest.
	_, err := bob.Decrypt(m0.h, []byte("garbage that will not authenticate"), testAD)
	require.ErrorIs(t, err, ratchet.ErrAuthentication)

	require.Equal(t, 1, bob.PruneSkipped(1))
	require.False(t, bob.Skipped().Has(m0.h.SenderPublicKey, 0))
	require.True(t, bob.Skipped().Has(n0.h.SenderPublicKey, 0))
	deliver(t, bob, n0)
}

func TestInit_Errors(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	_, err = ratchet.InitAsInitiator(domain.SymmetricKey{}, pub)
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)

	_, err = ratchet.InitAsInitiator(domain.SymmetricKey{1}, domain.X25519Public{})
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)

	_, err = ratchet.InitAsResponder(domain.SymmetricKey{}, domain.X25519Private{}, pub)
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)

	otherPriv, _, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_, err = ratchet.InitAsResponder(domain.SymmetricKey{1}, otherPriv, pub)
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)

	_, err = ratchet.InitAsResponder(domain.SymmetricKey{1}, domain.X25519Private{}, pub)
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)

	_, err = ratchet.InitAsResponder(domain.SymmetricKey{1}, otherPriv, domain.X25519Public{})
	require.ErrorIs(t, err, ratchet.ErrKeyDerivation)
}

func TestInit_DeterministicRand(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	seed := bytes.Repeat([]byte{0x5A}, 32)

	a1, err := ratchet.InitAsInitiator(domain.SymmetricKey{1}, pub, ratchet.WithRand(bytes.NewReader(seed)))
	require.NoError(t, err)
	a2, err := ratchet.InitAsInitiator(domain.SymmetricKey{1}, pub, ratchet.WithRand(bytes.NewReader(seed)))
	require.NoError(t, err)
	require.Equal(t, a1.PublicKey(), a2.PublicKey())

	h1, c1, err := a1.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	h2, c2, err := a2.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Equal(t, c1, c2)
}

func TestWipe(t *testing.T) {
	alice, bob := newPair(t)
	_ = send(t, alice, "lost")
	deliver(t, bob, send(t, alice, "m1"))
	require.Equal(t, 1, bob.Skipped().Len())

	bob.Wipe()
	require.False(t, bob.Ready())
	require.Zero(t, bob.Skipped().Len())
	require.Zero(t, bob.ReceiveCount())
}
