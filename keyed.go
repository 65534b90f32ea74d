package hxstate

import "github.com/pthm/hxstate/lib/keyed"

// Aliases for the keyed slice state held by the shared container.
type (
	State   = keyed.State
	Op      = keyed.Op
	OpKind  = keyed.OpKind
	Action  = keyed.Action
	Reducer = keyed.Reducer
)

// Operation kinds.
const (
	OpMount   = keyed.OpMount
	OpUnmount = keyed.OpUnmount
	OpApply   = keyed.OpApply
)

// Mount builds an operation that creates or references the slice at key.
func Mount(key string, initial any) Op {
	return keyed.Mount(key, initial)
}

// Unmount builds an operation that drops one reference to key.
func Unmount(key string) Op {
	return keyed.Unmount(key)
}

// Apply builds an operation that runs reducer over the slice at key.
func Apply(key string, reducer Reducer, action Action) Op {
	return keyed.Apply(key, reducer, action)
}
