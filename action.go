package hxstate

import (
	"encoding/json"
	"strings"

	"github.com/a-h/templ"
)

// WireFunc builds the HTMX attributes that dispatch action to the instance
// that rendered them. A Registry injects one under PropWire.
//
//	wire := props[hxstate.PropWire].(hxstate.WireFunc)
//	<button { wire(hxstate.Action{Type: "INCREASE"})... }>+</button>
type WireFunc func(action Action) templ.Attributes

// WireOf returns the WireFunc carried by merged props, or one producing no
// attributes when the instance is not hosted by a Registry.
func WireOf(props Props) WireFunc {
	if fn, ok := props[PropWire].(WireFunc); ok && fn != nil {
		return fn
	}
	return func(Action) templ.Attributes { return templ.Attributes{} }
}

// WireAttrs builds the minimal HTMX attributes for a dispatch.
//
// The ticket travels in hx-vals and the response replaces the instance's
// root element, identified by target.
func WireAttrs(path, encoded, target string) templ.Attributes {
	attrs := templ.Attributes{
		"hx-post":   path,
		"hx-target": target,
		"hx-swap":   "outerHTML",
	}
	if encoded != "" {
		data, _ := json.Marshal(map[string]string{"p": encoded})
		attrs["hx-vals"] = string(data)
	}
	return attrs
}

// EventName returns the HTMX event fired after a dispatch changes the slice
// at key. Instances sharing the key refresh when it fires.
func EventName(key string) string {
	var sb strings.Builder
	sb.WriteString("hxstate:")
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// elementID returns the DOM id of an instance's root element.
func elementID(id string) string {
	return "hxs-" + id
}
