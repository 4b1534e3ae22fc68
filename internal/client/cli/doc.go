// Package cli provides the interactive MiniCRM command-line client.
//
// It wires configuration, local storage, the remote store client, and an
// interactive REPL that keeps working while the server is unreachable.
// Typical flow: open the local database, start a background connectivity
// watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Logout
//   - Add, list, show, search and delete customers and their orders
//   - Sync pending data with the server
//   - Purge locally tombstoned rows
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
