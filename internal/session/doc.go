// Package session wraps a ratchet.State for use by an application.
//
// A Session owns one party's ratchet state, serialises access to it with a
// mutex, turns (header, ciphertext) pairs into transport envelopes and back,
// drops duplicate deliveries by envelope ID, and evicts skipped keys of
// superseded peer ratchet keys after every DH ratchet step.
//
// Exchange drives a scripted conversation between two sessions over any
// domain.RelayClient.
package session
