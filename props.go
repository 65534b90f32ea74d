package hxstate

// Props is a flat property record handed to a presentational unit.
type Props map[string]any

// Recognized field names in the merged property set.
const (
	// PropLocal holds the instance's current slice.
	PropLocal = "local"
	// PropDispatchLocal holds the instance's DispatchFunc.
	PropDispatchLocal = "dispatchLocal"
	// PropID holds the Registry instance id, when hosted by a Registry.
	PropID = "hxstateID"
	// PropWire holds the Registry WireFunc, when hosted by a Registry.
	PropWire = "wire"
)

// DispatchFunc submits an action to the instance's slice.
type DispatchFunc func(action Action) error

// ActionCreator builds an action from call arguments.
type ActionCreator func(args ...any) Action

// BoundAction is an ActionCreator bound to a DispatchFunc.
type BoundAction func(args ...any) error

// MergeFunc combines dispatch properties, external properties and the
// ephemeral properties (slice and dispatch function) into the final set.
type MergeFunc func(dispatchProps, ownProps, ephemeralProps Props) Props

// DefaultMerge overlays ownProps with ephemeralProps, then dispatchProps.
// Later sources win on key collision.
func DefaultMerge(dispatchProps, ownProps, ephemeralProps Props) Props {
	merged := make(Props, len(ownProps)+len(ephemeralProps)+len(dispatchProps))
	for _, layer := range []Props{ownProps, ephemeralProps, dispatchProps} {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}

// BindActionCreators wraps every creator so calling it dispatches the
// created action.
//
//	props := hxstate.BindActionCreators(map[string]hxstate.ActionCreator{
//	    "increase": func(...any) hxstate.Action { return hxstate.Action{Type: "INCREASE"} },
//	}, dispatch)
//	props["increase"].(hxstate.BoundAction)()
func BindActionCreators(creators map[string]ActionCreator, dispatch DispatchFunc) Props {
	bound := make(Props, len(creators))
	for name, create := range creators {
		create := create
		bound[name] = BoundAction(func(args ...any) error {
			return dispatch(create(args...))
		})
	}
	return bound
}

// LocalOf returns the slice carried by merged props.
func LocalOf[S any](props Props) (S, bool) {
	v, ok := props[PropLocal].(S)
	return v, ok
}

// DispatchOf returns the DispatchFunc carried by merged props, or a function
// that reports ErrNotAttached if none is present.
func DispatchOf(props Props) DispatchFunc {
	if fn, ok := props[PropDispatchLocal].(DispatchFunc); ok && fn != nil {
		return fn
	}
	return func(Action) error { return ErrNotAttached }
}
