// Package main runs the drat relay as a standalone process. It is the same
// server as `drat relay`, configured only through DRAT_* variables.
//
// HTTP API
//
//	POST /msg/{user}
//	    Enqueue an Envelope destined to {user}. The body's "to" must match
//	    {user} and its header must be 48 bytes. If Timestamp is zero, the
//	    server fills it with the current Unix time.
//
//	GET /msg/{user}?limit=N
//	    Return up to N queued Envelopes for {user}. If limit is absent or
//	    greater than the queue length, all queued envelopes are returned.
//
//	POST /msg/{user}/ack { "count": N }
//	    Drop the first N queued envelopes for {user}. If N exceeds the queue
//	    length, the queue is cleared.
//
//	GET /healthz
//
// Prometheus metrics are served on DRAT_METRICS_ADDR (default :9090).
//
// Behaviour
//
//   - Mailboxes live in memory unless DRAT_REDIS_ADDR names a Redis server.
//   - Every request is logged with method, path, remote, status, bytes and
//     duration.
//   - The default listen address is :8080.
//
// The relay only ever stores ciphertext, headers and routing fields.
package main
