package hxstate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Connected is a presentational unit wrapped with keyed local state.
//
// Each live instance gets its own Controller; instances created from the same
// Connected share a key unless Config.KeyFunc derives a distinct one from
// their external properties.
//
// Example:
//
//	var Counter = hxstate.Connect(hxstate.Config[Count]{
//	    Key:     "counter",
//	    Reducer: reduceCount,
//	    Initial: &Count{N: 13},
//	}, counterView)
//
//	inst := Counter.New(store)
//	inst.Attach(hxstate.Props{"label": "Clicks"})
//	defer inst.Detach()
type Connected[S any] struct {
	cfg  Config[S]
	unit Renderer
	name string
}

// Connect wraps unit. Configuration problems are reported through
// cfg.Logger but never prevent construction. Panics if unit is nil.
func Connect[S any](cfg Config[S], unit Renderer) *Connected[S] {
	if unit == nil {
		panic("hxstate: Connect requires a non-nil Renderer")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Connected[S]{
		cfg:  cfg,
		unit: unit,
		name: "Ephemeral(" + displayName(unit) + ")",
	}
	for _, problem := range cfg.problems() {
		cfg.Logger.Error("hxstate: "+problem, slog.String("component", c.name))
	}
	return c
}

// displayName returns the unit's own name when it has one.
func displayName(unit Renderer) string {
	if named, ok := unit.(interface{ Name() string }); ok && named.Name() != "" {
		return named.Name()
	}
	return fmt.Sprintf("%T", unit)
}

// Name returns the display name, Ephemeral(<unit name>).
func (c *Connected[S]) Name() string {
	return c.name
}

// Unwrap returns the wrapped presentational unit so callers can reach its
// own metadata.
func (c *Connected[S]) Unwrap() Renderer {
	return c.unit
}

// Config returns the configuration the unit was connected with.
func (c *Connected[S]) Config() Config[S] {
	return c.cfg
}

// New creates an unattached instance bound to container.
func (c *Connected[S]) New(container Container) *Instance[S] {
	return &Instance[S]{
		Controller: NewController(container, c.cfg),
		unit:       c.unit,
		name:       c.name,
	}
}

// Instance is one live occurrence of a Connected unit. It implements
// templ.Component, so it can be rendered directly from templates.
type Instance[S any] struct {
	*Controller[S]
	unit Renderer
	name string
}

// Name returns the display name of the connected unit.
func (i *Instance[S]) Name() string {
	return i.name
}

// ShouldRender is the gate a host uses to skip redundant render passes.
func (i *Instance[S]) ShouldRender() bool {
	return i.ShouldRecompute()
}

// Render renders the wrapped unit with the merged properties, recomputing
// them only when stale.
func (i *Instance[S]) Render(ctx context.Context, w io.Writer) error {
	props := i.MergedProps()
	component := i.unit.Render(ctx, props)
	if component == nil {
		return nil
	}
	return component.Render(ctx, w)
}
