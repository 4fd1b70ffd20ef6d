// Package commands defines the agentwire CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - keygen       Generate a hybrid identity and store it encrypted
//   - fingerprint  Print the local identity's key fingerprints
//   - sessions     List checkpointed sessions for the local identity
//   - demo         Run two in-process agents through a full exchange
//
// # Implementation
//
// The root command builds the dependency graph (store, directory client,
// authorizer, transport, audit sink) before any subcommand runs, so handlers
// share one app context.
package commands
