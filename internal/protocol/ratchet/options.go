package ratchet

import "io"

// DefaultMaxSkip bounds how many message keys one Decrypt may skip.
const DefaultMaxSkip = 100

// Option customises a State at construction.
type Option func(*State)

// WithMaxSkip sets the per-call skip limit.
func WithMaxSkip(n uint64) Option {
	return func(s *State) { s.maxSkip = n }
}

// WithRand sets the randomness source for DH key pairs. Tests use it to make
// key generation deterministic; production code keeps crypto/rand.
func WithRand(r io.Reader) Option {
	return func(s *State) {
		if r != nil {
			s.rand = r
		}
	}
}
