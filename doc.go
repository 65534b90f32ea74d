// Package hxstate gives server-rendered units keyed, reference-counted
// local state that lives in one shared container, and hosts them on HTMX
// pages.
//
// # Core Concepts
//
// A Store holds a single immutable State: a table of slices indexed by key,
// plus a refcount per key. It changes only through three operations:
//
//   - Mount(key, initial): create the slice, or reference an existing one.
//     The first mounter's value stays authoritative.
//   - Unmount(key): drop a reference; the last one destroys the slice.
//   - Apply(key, reducer, action): replace the slice with reducer(slice, action).
//
// Every operation is reduced to completion and every subscriber is notified
// with the resulting snapshot before the next one runs, so all observers see
// state in dispatch order. Store.Dispatch returns only after its own
// operation has been reduced and notified; listeners that need to dispatch
// use Store.Enqueue.
//
// # Connected Units
//
// Connect wraps a presentational Renderer with a Config:
//
//	var Counter = hxstate.Connect(hxstate.Config[Count]{
//	    Key:     "counter",
//	    Reducer: reduceCount,
//	    Initial: &Count{N: 13},
//	}, counterView)
//
// Each live instance owns a Controller. Attach mounts the slice and
// subscribes; Detach unsubscribes and unmounts. In between, DispatchLocal
// routes actions through the instance's private reducer, and the new slice
// arrives through the normal notification path.
//
// The controller memoizes the merged properties handed to the unit. They are
// recomputed only when the external properties, the slice or the derived
// dispatch properties changed by shallow comparison, so notifications for
// other keys cost one comparison and nothing more.
//
// Instances attached at the same key share one slice and observe each
// other's writes. Config.Development logs a warning when that happens.
//
// # Hosting on HTMX Pages
//
// A Registry serves attached instances over HTTP:
//
//	reg := hxstate.NewRegistry(encryptionKey)
//	id, _ := reg.Attach(Counter.New(store), hxstate.Props{"label": "Clicks"})
//	http.Handle("/_s/", reg.Handler())
//
// Units render wired elements with WireOf(props)(action). The action travels
// in a signed msgpack ticket bound to the instance id (or an encrypted one
// with WithSensitiveTickets). After a dispatch the registry re-renders the
// instance and fires an hxstate:<key> event so every other instance on the
// page sharing the key re-fetches itself.
//
// Render reg.Script() once per page: it releases the page's instances with
// DELETE requests on pagehide. RunEviction detaches instances a page never
// released.
//
// CSRF protection is automatic: mutating methods require the HX-Request
// header that HTMX sends.
//
// # Errors
//
// Unmounting or applying to a key that is not mounted is a lifecycle bug and
// fails with ErrNotMounted. Dispatching through a detached instance fails
// with ErrDetached. Configuration problems are logged through the
// configured slog.Logger and never prevent construction.
package hxstate
