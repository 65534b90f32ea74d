package hxstate

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pthm/hxstate/lib/shallow"
)

// Config describes how an instance owns its slice.
//
// Exactly one of Key and KeyFunc should be set. KeyFunc is evaluated once,
// at attach, against the external properties.
//
// Instances sharing a key observe each other's writes, so they should use
// the same Reducer; nothing enforces this.
type Config[S any] struct {
	Key     string
	KeyFunc func(ownProps Props) string

	// Reducer is the private reducer applied to the slice by DispatchLocal.
	Reducer func(slice S, action Action) S

	// Initial seeds the slice on first mount. When nil the seed is
	// Reducer(zero S, Action{}).
	Initial *S

	// ActionCreators are bound to DispatchLocal once, at attach.
	ActionCreators map[string]ActionCreator

	// MapDispatch derives dispatch properties from the external properties.
	// It is re-run only when the external properties changed. It must not
	// dispatch synchronously.
	MapDispatch func(dispatch DispatchFunc, ownProps Props) Props

	// Merge combines the property sources. Defaults to DefaultMerge.
	Merge MergeFunc

	// Logger receives diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Development enables the shared-key diagnostic at attach.
	Development bool
}

// problems returns the configuration diagnostics. They never prevent
// construction.
func (cfg Config[S]) problems() []string {
	var out []string
	switch {
	case cfg.Key == "" && cfg.KeyFunc == nil:
		out = append(out, "must provide a key as a string or as a function of props")
	case cfg.Key != "" && cfg.KeyFunc != nil:
		out = append(out, "both Key and KeyFunc are set; KeyFunc wins")
	}
	if cfg.Reducer == nil {
		out = append(out, "must provide a reducer function")
	}
	return out
}

type phase int

const (
	phaseUnattached phase = iota
	phaseAttached
	phaseDetached
)

// DirtyFlags reports which inputs of the merged properties are stale.
type DirtyFlags struct {
	OwnProps      bool
	DispatchProps bool
	Slice         bool
}

// Any reports whether any flag is set.
func (d DirtyFlags) Any() bool {
	return d.OwnProps || d.DispatchProps || d.Slice
}

// Controller is the per-instance state machine:
// Unattached -> Attached -> Detached. A detached controller is never reused.
//
// It mounts a slice at attach, observes every container notification,
// tracks three independent staleness flags and memoizes the merged
// properties until one of them is set.
type Controller[S any] struct {
	mu        sync.Mutex
	container Container
	cfg       Config[S]
	logger    *slog.Logger
	reducer   Reducer
	dispatch  DispatchFunc

	phase       phase
	key         string
	unsubscribe func()

	ownProps      Props
	lastKnown     S
	seen          bool
	dispatchProps Props
	mergedProps   Props
	dirty         DirtyFlags
	recomputes    int
}

// NewController creates an unattached controller bound to container.
func NewController[S any](container Container, cfg Config[S]) *Controller[S] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller[S]{
		container:     container,
		cfg:           cfg,
		logger:        logger,
		dispatchProps: Props{},
		dirty:         DirtyFlags{OwnProps: true, DispatchProps: true, Slice: true},
	}
	c.dispatch = c.DispatchLocal
	if cfg.Reducer != nil {
		c.reducer = c.untypedReducer
	}
	return c
}

// untypedReducer adapts the typed reducer to the container's Reducer.
func (c *Controller[S]) untypedReducer(slice any, action Action) any {
	typed, ok := slice.(S)
	if !ok && slice != nil {
		c.logger.Warn("hxstate: slice has a foreign type; reducing from zero value",
			slog.String("key", c.key),
			slog.String("type", fmt.Sprintf("%T", slice)),
		)
	}
	return c.cfg.Reducer(typed, action)
}

func (c *Controller[S]) initialValue() S {
	if c.cfg.Initial != nil {
		return *c.cfg.Initial
	}
	var zero S
	if c.cfg.Reducer != nil {
		return c.cfg.Reducer(zero, Action{})
	}
	return zero
}

func (c *Controller[S]) resolveKey(ownProps Props) string {
	if c.cfg.KeyFunc != nil {
		return c.cfg.KeyFunc(ownProps)
	}
	return c.cfg.Key
}

// Attach resolves the key, mounts the slice, subscribes to the container
// and seeds the local view of the slice.
func (c *Controller[S]) Attach(ownProps Props) error {
	c.mu.Lock()
	switch c.phase {
	case phaseAttached:
		c.mu.Unlock()
		return ErrAlreadyAttached
	case phaseDetached:
		c.mu.Unlock()
		return ErrDetached
	}
	c.ownProps = ownProps
	c.key = c.resolveKey(ownProps)
	if c.cfg.ActionCreators != nil {
		c.dispatchProps = BindActionCreators(c.cfg.ActionCreators, c.dispatch)
	}
	c.phase = phaseAttached
	key := c.key
	c.mu.Unlock()

	if c.cfg.Development && c.container.GetState().RefCount(key) > 0 {
		c.logger.Warn("hxstate: multiple instances have local state mounted at the same key; "+
			"they will share state and observe each other's actions",
			slog.String("key", key),
		)
	}

	if err := c.container.Dispatch(Mount(key, c.initialValue())); err != nil {
		c.mu.Lock()
		c.phase = phaseDetached
		c.mu.Unlock()
		return fmt.Errorf("hxstate: attach %q: %w", key, err)
	}

	unsubscribe := c.container.Subscribe(c.Observe)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.Observe(c.container.GetState())
	return nil
}

// Observe re-derives the local view of the slice from a container snapshot.
// It runs on every notification; it is a no-op unless attached.
func (c *Controller[S]) Observe(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != phaseAttached {
		return
	}
	raw, ok := state.Slice(c.key)
	if !ok {
		return
	}
	slice, ok := raw.(S)
	if !ok && raw != nil {
		c.logger.Warn("hxstate: ignoring slice with a foreign type",
			slog.String("key", c.key),
			slog.String("type", fmt.Sprintf("%T", raw)),
		)
		return
	}
	if !c.seen || !shallow.Equal(slice, c.lastKnown) {
		c.lastKnown = slice
		c.seen = true
		c.dirty.Slice = true
	}
}

// SetOwnProps records new external properties, marking them dirty when they
// differ shallowly from the current ones.
func (c *Controller[S]) SetOwnProps(next Props) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !shallow.Equal(c.ownProps, next) {
		c.dirty.OwnProps = true
	}
	c.ownProps = next
}

// ShouldRecompute reports whether a recompute pass is warranted.
func (c *Controller[S]) ShouldRecompute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty.OwnProps || c.dirty.Slice
}

// MergedProps returns the merged property set, recomputing it only when a
// dirty flag is set.
func (c *Controller[S]) MergedProps() Props {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recomputeDispatchPropsIfNeeded()
	c.recomputeMergedPropsIfNeeded()
	return c.mergedProps
}

func (c *Controller[S]) recomputeDispatchPropsIfNeeded() {
	if c.cfg.MapDispatch == nil || !c.dirty.OwnProps {
		return
	}
	next := c.cfg.MapDispatch(c.dispatch, c.ownProps)
	if !shallow.Equal(c.dispatchProps, next) {
		c.dispatchProps = next
		c.dirty.DispatchProps = true
	}
}

func (c *Controller[S]) recomputeMergedPropsIfNeeded() {
	if !c.dirty.Any() {
		return
	}
	merge := c.cfg.Merge
	if merge == nil {
		merge = DefaultMerge
	}
	ephemeral := Props{
		PropLocal:         c.lastKnown,
		PropDispatchLocal: c.dispatch,
	}
	c.mergedProps = merge(c.dispatchProps, c.ownProps, ephemeral)
	c.dirty = DirtyFlags{}
	c.recomputes++
}

// DispatchLocal submits action through the private reducer to the shared
// container. The resulting slice is observed through the normal notification
// path. It fails with ErrNotAttached before attach and ErrDetached after
// detach.
func (c *Controller[S]) DispatchLocal(action Action) error {
	c.mu.Lock()
	switch c.phase {
	case phaseUnattached:
		c.mu.Unlock()
		return ErrNotAttached
	case phaseDetached:
		c.mu.Unlock()
		return ErrDetached
	}
	key, reducer := c.key, c.reducer
	c.mu.Unlock()

	return c.container.Dispatch(Apply(key, reducer, action))
}

// Detach unsubscribes and drops this instance's reference to its key. The
// slice is destroyed when this was the last reference.
func (c *Controller[S]) Detach() error {
	c.mu.Lock()
	switch c.phase {
	case phaseUnattached:
		c.mu.Unlock()
		return ErrNotAttached
	case phaseDetached:
		c.mu.Unlock()
		return ErrDetached
	}
	c.phase = phaseDetached
	unsubscribe, key := c.unsubscribe, c.key
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if err := c.container.Dispatch(Unmount(key)); err != nil {
		return fmt.Errorf("hxstate: detach %q: %w", key, err)
	}
	return nil
}

// Key returns the resolved key (empty before attach).
func (c *Controller[S]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Slice returns the last observed slice.
func (c *Controller[S]) Slice() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKnown
}

// Attached reports whether the controller is between Attach and Detach.
func (c *Controller[S]) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == phaseAttached
}

// Dirty returns the current staleness flags.
func (c *Controller[S]) Dirty() DirtyFlags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Recomputes returns how many times the merged properties were recomputed.
func (c *Controller[S]) Recomputes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputes
}
