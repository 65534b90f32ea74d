package hxstate

import (
	"encoding/json"
	"testing"

	"github.com/a-h/templ"
)

func TestWireAttrs(t *testing.T) {
	attrs := WireAttrs("/_s/abc/dispatch", "TICKET", "#hxs-abc")

	if attrs["hx-post"] != "/_s/abc/dispatch" {
		t.Errorf("hx-post = %q, want %q", attrs["hx-post"], "/_s/abc/dispatch")
	}
	if attrs["hx-target"] != "#hxs-abc" {
		t.Errorf("hx-target = %q, want %q", attrs["hx-target"], "#hxs-abc")
	}
	if attrs["hx-swap"] != "outerHTML" {
		t.Errorf("hx-swap = %q, want %q", attrs["hx-swap"], "outerHTML")
	}

	raw, ok := attrs["hx-vals"].(string)
	if !ok {
		t.Fatalf("hx-vals missing: %v", attrs)
	}
	var vals map[string]string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		t.Fatalf("hx-vals is not JSON: %v", err)
	}
	if vals["p"] != "TICKET" {
		t.Errorf("hx-vals p = %q, want TICKET", vals["p"])
	}
}

func TestWireAttrs_NoTicket(t *testing.T) {
	attrs := WireAttrs("/_s/abc/dispatch", "", "#hxs-abc")
	if _, ok := attrs["hx-vals"]; ok {
		t.Errorf("hx-vals should be omitted without a ticket: %v", attrs)
	}
}

func TestWireOf(t *testing.T) {
	if attrs := WireOf(Props{})(Action{Type: "X"}); len(attrs) != 0 {
		t.Errorf("WireOf without a registry should produce no attributes, got %v", attrs)
	}

	called := false
	props := Props{PropWire: WireFunc(func(a Action) templ.Attributes {
		called = a.Type == "X"
		return templ.Attributes{"hx-post": "/p"}
	})}
	if attrs := WireOf(props)(Action{Type: "X"}); attrs["hx-post"] != "/p" {
		t.Errorf("hx-post = %v, want /p", attrs["hx-post"])
	}
	if !called {
		t.Error("WireOf should return the injected WireFunc")
	}
}

func TestEventName(t *testing.T) {
	tests := []struct {
		key    string
		expect string
	}{
		{"counter", "hxstate:counter"},
		{"row-1", "hxstate:row-1"},
		{"user_42", "hxstate:user_42"},
		{"has space", "hxstate:has_space"},
		{"a.b:c", "hxstate:a_b_c"},
		{"", "hxstate:"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := EventName(tt.key); got != tt.expect {
				t.Errorf("EventName(%q) = %q, want %q", tt.key, got, tt.expect)
			}
		})
	}
}
