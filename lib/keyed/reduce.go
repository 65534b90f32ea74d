package keyed

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Reduce.
var (
	ErrNotMounted = errors.New("keyed: key is not mounted")
	ErrNilReducer = errors.New("keyed: nil reducer")
	ErrUnknownOp  = errors.New("keyed: unknown operation")
)

// Action is the payload routed through a private reducer.
type Action struct {
	Type    string `msgpack:"t"`
	Payload any    `msgpack:"p,omitempty"`
}

// Reducer is a pure transition over a single slice.
type Reducer func(slice any, action Action) any

// OpKind tags the operation carried by an Op.
type OpKind int

// Operation kinds.
const (
	OpMount OpKind = iota + 1
	OpUnmount
	OpApply
)

func (k OpKind) String() string {
	switch k {
	case OpMount:
		return "mount"
	case OpUnmount:
		return "unmount"
	case OpApply:
		return "apply"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is a tagged union over the three operations. Only the fields relevant
// to Kind are read.
type Op struct {
	Kind    OpKind
	Key     string
	Initial any     // OpMount
	Reducer Reducer // OpApply
	Action  Action  // OpApply
}

// Mount builds an OpMount.
func Mount(key string, initial any) Op {
	return Op{Kind: OpMount, Key: key, Initial: initial}
}

// Unmount builds an OpUnmount.
func Unmount(key string) Op {
	return Op{Kind: OpUnmount, Key: key}
}

// Apply builds an OpApply.
func Apply(key string, reducer Reducer, action Action) Op {
	return Op{Kind: OpApply, Key: key, Reducer: reducer, Action: action}
}

// Reduce applies op to state and returns the next snapshot. On error the
// input state is returned unchanged.
func Reduce(state State, op Op) (State, error) {
	switch op.Kind {
	case OpMount:
		return mount(state, op.Key, op.Initial), nil
	case OpUnmount:
		return unmount(state, op.Key)
	case OpApply:
		return apply(state, op.Key, op.Reducer, op.Action)
	default:
		return state, fmt.Errorf("%w: %v", ErrUnknownOp, op.Kind)
	}
}

func mount(state State, key string, initial any) State {
	next := state.clone()
	if n, ok := next.meta[key]; ok {
		next.meta[key] = n + 1
		return next
	}
	next.meta[key] = 1
	next.slices[key] = initial
	return next
}

func unmount(state State, key string) (State, error) {
	n, ok := state.meta[key]
	if !ok {
		return state, fmt.Errorf("unmount %q: %w", key, ErrNotMounted)
	}
	next := state.clone()
	if n == 1 {
		delete(next.meta, key)
		delete(next.slices, key)
		return next, nil
	}
	next.meta[key] = n - 1
	return next, nil
}

func apply(state State, key string, reducer Reducer, action Action) (State, error) {
	if _, ok := state.meta[key]; !ok {
		return state, fmt.Errorf("apply %q: %w", key, ErrNotMounted)
	}
	if reducer == nil {
		return state, fmt.Errorf("apply %q: %w", key, ErrNilReducer)
	}
	next := state.clone()
	next.slices[key] = reducer(state.slices[key], action)
	return next, nil
}
