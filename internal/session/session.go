package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drat/internal/crypto"
	"drat/internal/domain"
	"drat/internal/protocol/ratchet"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
	// ErrMisrouted means an envelope is not addressed from our peer to us.
	ErrMisrouted = errors.New("envelope not addressed to this session")
	// ErrDuplicate means an envelope ID was already opened.
	ErrDuplicate = errors.New("duplicate envelope")
)

// DefaultReplayWindow is how many recent envelope IDs a session remembers.
const DefaultReplayWindow = 1024

// Config carries the per-session settings.
type Config struct {
	Local domain.Username
	Peer  domain.Username

	// MaxSkip is the per-message skip limit; 0 means ratchet.DefaultMaxSkip.
	MaxSkip uint64
	// MaxSkippedChains bounds how many peer ratchet keys keep skipped keys;
	// 0 disables pruning.
	MaxSkippedChains int
	// ReplayWindow is the number of envelope IDs remembered; 0 means
	// DefaultReplayWindow.
	ReplayWindow int

	Logger zerolog.Logger
	Rand   io.Reader
	Now    func() time.Time
}

func (c Config) ratchetOptions() []ratchet.Option {
	var opts []ratchet.Option
	if c.MaxSkip > 0 {
		opts = append(opts, ratchet.WithMaxSkip(c.MaxSkip))
	}
	if c.Rand != nil {
		opts = append(opts, ratchet.WithRand(c.Rand))
	}
	return opts
}

// Session is a concurrency-safe handle on one party's ratchet state.
type Session struct {
	mu sync.Mutex

	id     domain.SessionID
	local  domain.Username
	peer   domain.Username
	state  *ratchet.State
	seen   *replayWindow
	keep   int
	log    zerolog.Logger
	now    func() time.Time
	closed bool
}

func newSession(cfg Config, st *ratchet.State, role string) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	window := cfg.ReplayWindow
	if window <= 0 {
		window = DefaultReplayWindow
	}
	id := domain.SessionID(uuid.NewString())
	return &Session{
		id:    id,
		local: cfg.Local,
		peer:  cfg.Peer,
		state: st,
		seen:  newReplayWindow(window),
		keep:  cfg.MaxSkippedChains,
		log: cfg.Logger.With().
			Str("session", id.String()).
			Str("local", cfg.Local.String()).
			Str("peer", cfg.Peer.String()).
			Str("role", role).
			Logger(),
		now: now,
	}
}

// NewInitiator starts a session as the party that sends first.
func NewInitiator(cfg Config, shared domain.SymmetricKey, peerPub domain.X25519Public) (*Session, error) {
	st, err := ratchet.InitAsInitiator(shared, peerPub, cfg.ratchetOptions()...)
	if err != nil {
		return nil, fmt.Errorf("init initiator: %w", err)
	}
	return newSession(cfg, st, "initiator"), nil
}

// NewResponder starts a session as the party whose key pair the initiator holds.
func NewResponder(cfg Config, shared domain.SymmetricKey, priv domain.X25519Private, pub domain.X25519Public) (*Session, error) {
	st, err := ratchet.InitAsResponder(shared, priv, pub, cfg.ratchetOptions()...)
	if err != nil {
		return nil, fmt.Errorf("init responder: %w", err)
	}
	return newSession(cfg, st, "responder"), nil
}

// NewPair bootstraps two sessions from a random shared secret and a fresh
// responder key pair, standing in for a completed key agreement.
func NewPair(initiator, responder Config) (*Session, *Session, error) {
	r := initiator.Rand
	if r == nil {
		r = rand.Reader
	}
	var shared domain.SymmetricKey
	if _, err := io.ReadFull(r, shared[:]); err != nil {
		return nil, nil, fmt.Errorf("read shared secret: %w", err)
	}
	defer shared.Wipe()

	priv, pub, err := crypto.GenerateX25519From(r)
	if err != nil {
		return nil, nil, err
	}
	a, err := NewInitiator(initiator, shared, pub)
	if err != nil {
		return nil, nil, err
	}
	b, err := NewResponder(responder, shared, priv, pub)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

// ID returns the session identifier.
func (s *Session) ID() domain.SessionID { return s.id }

// Local returns our username.
func (s *Session) Local() domain.Username { return s.local }

// Peer returns the peer username.
func (s *Session) Peer() domain.Username { return s.peer }

// PublicKey returns our current ratchet public key.
func (s *Session) PublicKey() domain.X25519Public {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PublicKey()
}

// Ready reports whether the session can send.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.state.Ready()
}

// SkippedKeys returns the number of cached skipped message keys.
func (s *Session) SkippedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Skipped().Len()
}

// Seal encrypts plaintext into an envelope addressed to the peer.
func (s *Session) Seal(plaintext, ad []byte) (domain.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Envelope{}, ErrClosed
	}

	h, ct, err := s.state.Encrypt(plaintext, ad)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("encrypt for %q: %w", s.peer, err)
	}
	env := domain.Envelope{
		ID:             uuid.NewString(),
		From:           s.local,
		To:             s.peer,
		Header:         h.Bytes(),
		Ciphertext:     ct,
		AssociatedData: append([]byte(nil), ad...),
		Timestamp:      s.now().Unix(),
	}
	s.log.Debug().
		Str("envelope", env.ID).
		Uint64("n", h.MessageNumber).
		Uint64("pn", h.PrevChainLength).
		Msg("sealed message")
	return env, nil
}

// Open decrypts an envelope from the peer. Failed envelopes leave the
// ratchet untouched so the caller may drop them and carry on.
func (s *Session) Open(env domain.Envelope) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if env.From != s.peer || env.To != s.local {
		return nil, fmt.Errorf("%w: %s -> %s", ErrMisrouted, env.From, env.To)
	}
	if env.ID != "" && s.seen.contains(env.ID) {
		s.log.Warn().Str("envelope", env.ID).Msg("dropped duplicate envelope")
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, env.ID)
	}

	h, err := ratchet.ParseHeader(env.Header)
	if err != nil {
		s.log.Warn().Err(err).Str("envelope", env.ID).Msg("rejected envelope")
		return nil, err
	}

	prevPeer := s.state.PeerPublicKey()
	pt, err := s.state.Decrypt(h, env.Ciphertext, env.AssociatedData)
	if err != nil {
		s.log.Warn().Err(err).
			Str("envelope", env.ID).
			Uint64("n", h.MessageNumber).
			Msg("rejected envelope")
		return nil, fmt.Errorf("decrypt from %q: %w", s.peer, err)
	}
	if env.ID != "" {
		s.seen.add(env.ID)
	}

	if peer := s.state.PeerPublicKey(); !peer.Equal(prevPeer) {
		ev := s.log.Debug().Str("peer_key", crypto.Fingerprint(peer).String())
		if !prevPeer.IsZero() {
			ev = ev.Str("prev_peer_key", crypto.Fingerprint(prevPeer).String())
		}
		ev.Uint64("pn", h.PrevChainLength).Msg("dh ratchet step")

		if s.keep > 0 {
			if n := s.state.PruneSkipped(s.keep); n > 0 {
				s.log.Debug().Int("evicted", n).Msg("pruned skipped keys")
			}
		}
	}
	return pt, nil
}

// Close wipes the ratchet state. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.state.Wipe()
	s.closed = true
	s.log.Debug().Msg("session closed")
	return nil
}
