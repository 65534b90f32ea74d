package hxstate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// TestResult holds the result of rendering an instance or serving a
// registry request in a test.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes and triggered events.
type TestResult struct {
	HTML            string
	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string
}

// TestRender renders a component and returns testable output.
//
// Use this for unit tests of an attached instance when you don't need HTTP
// mechanics:
//
//	inst := Counter.New(store)
//	inst.Attach(nil)
//	result, err := hxstate.TestRender(inst)
//	if !result.HTMLContains("13") {
//	    t.Fatal("missing initial count")
//	}
func TestRender(component templ.Component) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), component)
}

// TestRenderWithContext renders a component with a custom context.
//
// Use this when testing units that read values from context:
//
//	ctx := context.WithValue(context.Background(), "user", testUser)
//	result, err := hxstate.TestRenderWithContext(ctx, inst)
func TestRenderWithContext(ctx context.Context, component templ.Component) (*TestResult, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, err
	}

	return &TestResult{
		HTML:       buf.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestDispatch posts action to a hosted instance the way a wired button
// would, signing the ticket with the registry's own encoder.
//
//	result, err := hxstate.TestDispatch(reg, id, hxstate.Action{Type: "INCREASE"})
//	if !result.HasEvent(hxstate.EventName("counter")) {
//	    t.Fatal("siblings were not told to refresh")
//	}
func TestDispatch(reg *Registry, id string, action Action) (*TestResult, error) {
	encoded, err := reg.encodeTicket(id, action)
	if err != nil {
		return nil, err
	}
	return NewTestRequest(http.MethodPost, reg.prefix+id+"/dispatch").
		WithFormData("p", encoded).
		Execute(reg)
}

// TestGet simulates the re-fetch an instance performs when a sibling
// dispatches to its key.
func TestGet(reg *Registry, id string) (*TestResult, error) {
	return NewTestRequest(http.MethodGet, reg.prefix+id).Execute(reg)
}

// TestDetach simulates the request that detaches a hosted instance.
func TestDetach(reg *Registry, id string) (*TestResult, error) {
	return NewTestRequest(http.MethodDelete, reg.prefix+id).Execute(reg)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HasEvent checks if an event was triggered.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// parseTriggerHeader parses the HX-Trigger header value into event names.
// The header can be a simple event name or JSON.
func parseTriggerHeader(trigger string) []string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return nil
	}

	// If it starts with '{', it's JSON - parse event names from top-level keys
	if strings.HasPrefix(trigger, "{") {
		var events []string
		depth := 0
		inString := false
		stringStart := -1

		for i := 0; i < len(trigger); i++ {
			c := trigger[i]

			if inString && c == '\\' && i+1 < len(trigger) {
				i++
				continue
			}

			if c == '"' {
				if !inString {
					inString = true
					stringStart = i + 1
					continue
				}
				inString = false
				if depth == 1 {
					j := i + 1
					for j < len(trigger) && (trigger[j] == ' ' || trigger[j] == '\t') {
						j++
					}
					if j < len(trigger) && trigger[j] == ':' {
						events = append(events, trigger[stringStart:i])
					}
				}
				stringStart = -1
			} else if !inString {
				switch c {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
		}
		return events
	}

	parts := strings.Split(trigger, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			events = append(events, p)
		}
	}
	return events
}

// TestRequestBuilder provides a fluent interface for building requests
// against a Registry.
//
//	result, err := hxstate.NewTestRequest("POST", path).
//	    WithFormData("p", ticket).
//	    WithContext(ctx).
//	    Execute(reg)
type TestRequestBuilder struct {
	method   string
	url      string
	formData map[string]string
	headers  map[string]string
	htmx     bool
	ctx      context.Context
}

// NewTestRequest creates a new test request builder. The request carries
// HX-Request: true unless WithoutHTMX is called.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      url,
		formData: make(map[string]string),
		headers:  make(map[string]string),
		htmx:     true,
		ctx:      context.Background(),
	}
}

// WithFormData adds form data to the request.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData[key] = value
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithoutHTMX drops the HX-Request header.
func (b *TestRequestBuilder) WithoutHTMX() *TestRequestBuilder {
	b.htmx = false
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute serves the request through the registry's handler.
func (b *TestRequestBuilder) Execute(reg *Registry) (*TestResult, error) {
	form := url.Values{}
	for k, v := range b.formData {
		form.Set(k, v)
	}

	req := httptest.NewRequest(b.method, b.url, strings.NewReader(form.Encode()))
	req = req.WithContext(b.ctx)
	if b.htmx {
		req.Header.Set("HX-Request", "true")
	}
	if len(b.formData) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
	if trigger := rec.Header().Get("HX-Trigger"); trigger != "" {
		result.TriggeredEvents = parseTriggerHeader(trigger)
	}
	return result, nil
}
