package hxstate

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hxstate.Render(w, r, page(inst))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
//
// HTMX sends HX-Request: true on all requests.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// BuildTriggerHeader builds an HX-Trigger header value.
//
// A bare event name is returned as is; with data the value is the JSON
// object form, so HTMX fires the event with evt.detail set to data:
//
//	"hxstate:counter" + {"instance": "cnv..."} -> {"hxstate:counter": {"instance": "cnv..."}}
func BuildTriggerHeader(event string, data map[string]any) string {
	if event == "" {
		return ""
	}
	if data == nil {
		return event
	}
	payload, _ := json.Marshal(map[string]any{event: data})
	return string(payload)
}
