// Package app wires application dependencies for the CLI.
//
// It loads Config from DRAT_* environment variables and builds the logger,
// relay client and mailbox the commands use, exposing them via App.
package app
