// Package commands defines the drat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - demo     Play a scripted conversation between two ratchet sessions
//   - relay    Serve the store-and-forward relay
//   - keygen   Print a fresh X25519 key pair and its fingerprint
//
// # Implementation
//
// The root command loads configuration from DRAT_* variables, applies flag
// overrides, and builds the logger and relay client before any subcommand
// runs, so handlers share one app context.
package commands
