package hxstate

import (
	"context"

	"github.com/a-h/templ"
)

//go:generate mockgen -destination mock_container_test.go -package hxstate -write_package_comment=false github.com/pthm/hxstate Container

// Listener receives the snapshot produced by each dispatched operation.
type Listener func(State)

// Container is the shared, centrally-dispatched state container.
//
// Dispatch applies one operation at a time and notifies every subscriber
// before the next operation is applied. Subscribe returns a function that
// removes the listener; after it returns the listener is never invoked again.
//
// Store is the in-process implementation.
type Container interface {
	GetState() State
	Dispatch(op Op) error
	Subscribe(fn Listener) (unsubscribe func())
}

// Renderer is the presentational unit wrapped by Connect.
//
// Render receives the merged property set: the external properties, the
// slice under PropLocal and the dispatch function under PropDispatchLocal.
// It should be pure - it reads props and produces output without side
// effects.
//
// Example:
//
//	func (v *CounterView) Render(ctx context.Context, props hxstate.Props) templ.Component {
//	    count, _ := hxstate.LocalOf[Count](props)
//	    return counterTemplate(count)
//	}
type Renderer interface {
	Render(ctx context.Context, props Props) templ.Component
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, props Props) templ.Component

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, props Props) templ.Component {
	return f(ctx, props)
}

// Attachable is a live instance the Registry can host. *Instance[S]
// implements it for every slice type S.
type Attachable interface {
	templ.Component
	Attach(ownProps Props) error
	Detach() error
	DispatchLocal(action Action) error
	ShouldRender() bool
	Key() string
}
