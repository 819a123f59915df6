// Package app is the composition root for epterm.
//
// # Overview
//
// This package wires configuration, logging, the session store, the API client and the
// realtime bridge together, then hands them to the TUI or to the one-shot CLI commands.
// Every long-lived dependency hangs off an App value; nothing is a package global.
//
// # Architecture
//
//  1. Load ~/.config/epterm/config.toml (plus .env and NEXT_PUBLIC_API_URL)
//  2. Point the slog JSON logger at the log file
//  3. Load UI preferences (never fatal)
//  4. Open the session file
//  5. Build the API client with the session as its token source
//  6. Build the realtime bridge for the API host (it connects lazily)
//  7. Run the TUI, or a CLI command, until the context ends
//
// # Data Flow
//
//	┌──────────────┐
//	│   New()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()      Read config, .env, environment
//	       ├─────> observability.Init() JSON log file
//	       ├─────> session.Open()     Token + profile from disk
//	       ├─────> api.NewClient()    401 clears the session, fires OnUnauthorized
//	       ├─────> realtime.New()     Socket.IO bridge, ref-counted
//	       └─────> ui.Run()           Start TUI (blocks)
//
//	Follow loop (one per watched page):
//	┌────────────────────────────────────────────┐
//	│ Follow() goroutine                         │
//	│  ├─> page.Refresh()  (last start wins)     │
//	│  ├─> onUpdate(snapshot)                    │
//	│  └─> wait for <kind>:created|updated|deleted│
//	│      or the poll tick, with backoff        │
//	└────────────────────────────────────────────┘
//
// # Error Handling
//
// Fatal errors (returned from New or Run):
//   - Configuration file present but invalid
//   - Log file or session file cannot be opened
//   - API or realtime URL cannot be parsed
//
// Recoverable errors (logged, the page shows an empty list):
//   - Refresh failures while following a page
//   - Realtime connection loss; the bridge reconnects on its own
//
// # Dependencies
//
//   - config: epterm configuration
//   - observability: slog logger
//   - session: admin token and profile
//   - api: REST client for the ElectroPhobia backend
//   - realtime: change events from the event server
//   - state: page-level fetch state
//   - ui: terminal user interface
package app
