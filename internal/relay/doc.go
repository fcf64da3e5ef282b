// Package relay is the store-and-forward service for encrypted envelopes.
//
// Server exposes per-recipient mailboxes over HTTP; HTTPClient implements
// domain.RelayClient against it. The relay never sees plaintext: it checks
// routing fields and header length, nothing more.
//
// Routes:
//   - POST /msg/{user}        queue an envelope for user
//   - GET  /msg/{user}?limit= list pending envelopes without removing them
//   - POST /msg/{user}/ack    drop the first {"count": n} pending envelopes
//   - GET  /healthz
//
// Non-2xx statuses are returned as errors with the HTTP method, path and
// status text.
package relay
