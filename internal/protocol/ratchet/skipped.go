package ratchet

import "drat/internal/domain"

type skippedKeyID struct {
	peer domain.X25519Public
	n    uint64
}

// SkippedKeys holds message keys derived ahead of out-of-order messages,
// indexed by the peer ratchet key and message number. Entries are single-use:
// Take removes what it returns.
type SkippedKeys struct {
	keys map[skippedKeyID]domain.SymmetricKey

	// chains lists peer keys with live entries, oldest first.
	chains []domain.X25519Public
	counts map[domain.X25519Public]int
}

// NewSkippedKeys returns an empty store.
func NewSkippedKeys() *SkippedKeys {
	return &SkippedKeys{
		keys:   make(map[skippedKeyID]domain.SymmetricKey),
		counts: make(map[domain.X25519Public]int),
	}
}

// Put stores mk for (peer, n), replacing any previous entry.
func (s *SkippedKeys) Put(peer domain.X25519Public, n uint64, mk domain.SymmetricKey) {
	id := skippedKeyID{peer: peer, n: n}
	if _, ok := s.keys[id]; !ok {
		if s.counts[peer] == 0 {
			s.chains = append(s.chains, peer)
		}
		s.counts[peer]++
	}
	s.keys[id] = mk
}

// Take removes and returns the key for (peer, n).
func (s *SkippedKeys) Take(peer domain.X25519Public, n uint64) (domain.SymmetricKey, bool) {
	id := skippedKeyID{peer: peer, n: n}
	mk, ok := s.keys[id]
	if !ok {
		return domain.SymmetricKey{}, false
	}
	s.keys[id] = domain.SymmetricKey{}
	delete(s.keys, id)
	s.release(peer, 1)
	return mk, true
}

// peek returns the key for (peer, n) without removing it.
func (s *SkippedKeys) peek(peer domain.X25519Public, n uint64) (domain.SymmetricKey, bool) {
	mk, ok := s.keys[skippedKeyID{peer: peer, n: n}]
	return mk, ok
}

// Has reports whether a key for (peer, n) is stored.
func (s *SkippedKeys) Has(peer domain.X25519Public, n uint64) bool {
	_, ok := s.keys[skippedKeyID{peer: peer, n: n}]
	return ok
}

// Len returns the number of stored keys.
func (s *SkippedKeys) Len() int { return len(s.keys) }

// Chains returns the number of peer keys with stored entries.
func (s *SkippedKeys) Chains() int { return len(s.chains) }

// Evict wipes and removes every key stored under peer. It returns the number
// of keys removed.
func (s *SkippedKeys) Evict(peer domain.X25519Public) int {
	if s.counts[peer] == 0 {
		s.dropChain(peer)
		return 0
	}
	removed := 0
	for id := range s.keys {
		if id.peer != peer {
			continue
		}
		s.keys[id] = domain.SymmetricKey{}
		delete(s.keys, id)
		removed++
	}
	s.dropChain(peer)
	return removed
}

// Prune evicts the oldest chains until at most keep remain. It returns the
// number of keys removed.
func (s *SkippedKeys) Prune(keep int) int {
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for len(s.chains) > keep {
		removed += s.Evict(s.chains[0])
	}
	return removed
}

// Wipe zeroes and drops every stored key.
func (s *SkippedKeys) Wipe() {
	for id := range s.keys {
		s.keys[id] = domain.SymmetricKey{}
		delete(s.keys, id)
	}
	s.chains = nil
	s.counts = make(map[domain.X25519Public]int)
}

func (s *SkippedKeys) release(peer domain.X25519Public, n int) {
	s.counts[peer] -= n
	if s.counts[peer] <= 0 {
		s.dropChain(peer)
	}
}

func (s *SkippedKeys) dropChain(peer domain.X25519Public) {
	delete(s.counts, peer)
	for i, p := range s.chains {
		if p == peer {
			s.chains = append(s.chains[:i], s.chains[i+1:]...)
			return
		}
	}
}
