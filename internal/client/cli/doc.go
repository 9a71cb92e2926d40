// Package cli provides the interactive erpadmin command-line client.
//
// It wires configuration, the credential store, the HTTP gateway and the
// session into an interactive REPL. Typical flow: restore the stored session
// (or prompt for credentials), start background watchers for connectivity,
// auth changes and remote sign-outs, then execute user commands.
//
// Key features:
//   - Login / Logout with transparent token renewal
//   - whoami / status to inspect the current identity and token lifetime
//   - Manual refresh and password change
//   - Optional Prometheus metrics endpoint
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
