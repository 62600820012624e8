// Package cli provides the interactive fintrack command-line client.
//
// The REPL reads one line at a time and runs it through a cobra command
// tree, so every command has flags, usage text and help for free. All
// mutations go through services.RecordService, which writes locally and
// queues the change; the sync trigger ships it when the server is reachable.
//
// Commands:
//   - register, login, logout (online with offline fallback)
//   - add, edit, archive, restore, show, list
//   - status, queue, unsynced, retry, discard, sync, compact
//   - help, exit
package cli
