// Package state holds page-level view state shared between fetch goroutines and
// the UI.
//
// # List and Item
//
// Every page owns a List (collections) or Item (detail views). A fetch calls
// Begin, runs the request, then hands the result to Finish together with the
// ticket Begin returned:
//
//	ticket := page.Begin()
//	blogs, err := client.Blogs.List(ctx, filter)
//	page.Finish(ticket, blogs, err)
//
// Finish ignores any ticket older than the newest one, so when a refetch is
// triggered while another is in flight the last one started wins, whatever
// order the responses arrive in.
//
// A failed list fetch leaves an empty list and records the error. Public pages
// only log it; admin pages show it in a toast.
//
// # Snapshots
//
// Snapshot returns a copy. The UI may keep or mutate it freely without racing
// the fetch goroutines, which hold the write lock only while copying.
//
// # Toast and Confirm
//
// Toast and Confirm are plain values owned by the UI model and are not safe for
// concurrent use. A toast expires DefaultToastLifetime after Show; the UI checks
// Expired on every tick.
package state
