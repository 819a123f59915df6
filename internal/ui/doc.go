// Package ui provides the terminal interface for the ElectroPhobia site and its
// admin panel.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model is the single state container and every
// change flows through Update; fetches and writes run as tea.Cmd goroutines and
// come back as messages. Styling comes from lipgloss themes, blog content is
// rendered with glamour.
//
// # Package Structure
//
//   - model.go: Model, Options, the Update dispatch and key priority
//   - router.go: routes, the admin guard and per-visit view scopes
//   - commands.go: messages and the fetch commands
//   - pages.go: public pages (home, about, blogs, projects, experiences, shop, contact)
//   - admin.go: login, dashboard, contact inbox and delete confirmation
//   - editor.go: the record editors and their save paths
//   - form.go: a small multi-field form built on bubbles text inputs
//   - view.go, help.go: layout, header, footer, overlays
//   - theme.go, keys.go: themes and key bindings
//
// # Routing
//
// navigate is the only way to change page. Routes marked requiresAuth divert to
// the login page while no session is present, remembering the target, and the
// target is resumed after a successful login. There are no per-page checks.
//
// Each visit gets a viewScope: a context cancelled when the page is left and the
// realtime watchers the page asked for. Results that arrive for a cancelled
// scope are dropped, and state.List tickets make sure only the newest fetch of a
// collection is applied.
//
// # Realtime
//
// Bridge handlers run on the socket reader goroutine. They only push a changeMsg
// into the model's inbox, which a waiting command hands to Update; the page then
// refetches the collection that changed.
//
// # Errors
//
// Public pages log failed fetches and render an empty list. Admin pages show them
// as a toast. A 401 anywhere clears the session; the app reports it through
// Options.Subscribe and the model moves to the login view. An admin page
// re-enters the guard so it is resumed after logging in again.
//
// # Usage Example
//
//	err := ui.Run(ctx, ui.Options{
//		Client:  client,
//		Session: store,
//		Bridge:  bridge,
//		Prefs:   p,
//		LogPath: cfg.LogPath,
//	})
package ui
