package hxstate

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Registry hosts live instances for HTMX pages.
//
// Each attached instance gets an id and three routes under the prefix:
//
//	GET    {prefix}{id}           render the instance
//	POST   {prefix}{id}/dispatch  dispatch the action in a signed ticket
//	DELETE {prefix}{id}           detach the instance
//
// After a dispatch the response carries HX-Trigger: hxstate:<key> so that
// other instances on the page sharing the key refresh themselves.
//
// Instances are released by DELETE, which the page sends on pagehide when it
// includes Script. EvictIdle and RunEviction detach instances a page never
// released.
type Registry struct {
	mu        sync.RWMutex
	mux       *http.ServeMux
	encoder   *Encoder
	instances map[string]*hosted
	now       func() time.Time

	prefix    string
	sensitive bool
	logger    *slog.Logger
	tracer    trace.Tracer

	// OnError is called when a request fails.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewRegistry creates a registry that signs tickets with encryptionKey.
func NewRegistry(encryptionKey []byte, opts ...Option) *Registry {
	enc, err := NewEncoder(encryptionKey)
	if err != nil {
		panic(fmt.Sprintf("hxstate: failed to create encoder: %v", err))
	}
	o := applyOptions(opts)

	reg := &Registry{
		mux:       http.NewServeMux(),
		encoder:   enc,
		instances: make(map[string]*hosted),
		now:       time.Now,
		prefix:    o.prefix,
		sensitive: o.sensitive,
		logger:    o.logger,
		tracer:    o.tracer,
	}

	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case IsNotFound(err):
			http.Error(w, "Not found", http.StatusNotFound)
		case IsBadTicket(err):
			http.Error(w, "Bad request", http.StatusBadRequest)
		case errors.Is(err, ErrDetached):
			http.Error(w, "Gone", http.StatusGone)
		default:
			reg.logger.Error("hxstate: request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
	}

	reg.mux.HandleFunc("GET "+reg.prefix+"{id}", reg.handleRender)
	reg.mux.HandleFunc("POST "+reg.prefix+"{id}/dispatch", reg.handleDispatch)
	reg.mux.HandleFunc("DELETE "+reg.prefix+"{id}", reg.handleDetach)

	return reg
}

// Prefix returns the URL prefix instances are served under.
func (reg *Registry) Prefix() string {
	return reg.prefix
}

// Attach attaches inst with ownProps and hosts it. The instance receives its
// id under PropID and a WireFunc under PropWire.
func (reg *Registry) Attach(inst Attachable, ownProps Props) (string, error) {
	id := xid.New().String()

	props := make(Props, len(ownProps)+2)
	for k, v := range ownProps {
		props[k] = v
	}
	props[PropID] = id
	props[PropWire] = WireFunc(func(action Action) templ.Attributes {
		return reg.Wire(id, action)
	})

	h := &hosted{inst: inst}
	h.touch(reg.now())

	reg.mu.Lock()
	reg.instances[id] = h
	reg.mu.Unlock()

	if err := inst.Attach(props); err != nil {
		reg.mu.Lock()
		delete(reg.instances, id)
		reg.mu.Unlock()
		return "", err
	}
	return id, nil
}

// Detach detaches the instance with the given id and stops hosting it.
func (reg *Registry) Detach(id string) error {
	reg.mu.Lock()
	h, ok := reg.instances[id]
	delete(reg.instances, id)
	reg.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	return h.inst.Detach()
}

// Close detaches every hosted instance.
func (reg *Registry) Close() error {
	reg.mu.Lock()
	instances := reg.instances
	reg.instances = make(map[string]*hosted)
	reg.mu.Unlock()

	return detachAll(instances)
}

// EvictIdle detaches every instance that has not been rendered or
// dispatched to since cutoff. It returns the number of instances evicted.
func (reg *Registry) EvictIdle(cutoff time.Time) (int, error) {
	idle := make(map[string]*hosted)

	reg.mu.Lock()
	for id, h := range reg.instances {
		if h.lastSeen().Before(cutoff) {
			idle[id] = h
			delete(reg.instances, id)
		}
	}
	reg.mu.Unlock()

	return len(idle), detachAll(idle)
}

// RunEviction calls EvictIdle every interval, evicting instances idle for
// longer than maxIdle, until ctx is done.
func (reg *Registry) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := reg.EvictIdle(reg.now().Add(-maxIdle))
			if err != nil {
				reg.logger.Error("hxstate: eviction failed", slog.Any("error", err))
			}
			if n > 0 {
				reg.logger.Info("hxstate: evicted idle instances", slog.Int("count", n))
			}
		}
	}
}

func detachAll(instances map[string]*hosted) error {
	ids := make([]string, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := instances[id].inst.Detach(); err != nil {
			errs = append(errs, fmt.Errorf("detach %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of hosted instances.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.instances)
}

// Lookup returns the hosted instance with the given id and marks it as
// recently used.
func (reg *Registry) Lookup(id string) (Attachable, error) {
	reg.mu.RLock()
	h, ok := reg.instances[id]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	h.touch(reg.now())
	return h.inst, nil
}

// Wire builds the HTMX attributes that dispatch action to instance id.
// Encoding failures yield attributes without a ticket, which the dispatch
// route rejects.
func (reg *Registry) Wire(id string, action Action) templ.Attributes {
	encoded, err := reg.encodeTicket(id, action)
	if err != nil {
		reg.logger.Error("hxstate: failed to encode ticket",
			slog.String("instance", id),
			slog.String("action", action.Type),
			slog.Any("error", err),
		)
	}
	return WireAttrs(reg.prefix+id+"/dispatch", encoded, "#"+elementID(id))
}

func (reg *Registry) encodeTicket(id string, action Action) (string, error) {
	return reg.encoder.Encode(ticket{Instance: id, Action: action}, reg.sensitive)
}

func (reg *Registry) decodeTicket(id, encoded string) (Action, error) {
	var t ticket
	if err := reg.encoder.Decode(encoded, reg.sensitive, &t); err != nil {
		return Action{}, wrapEncodingError(err)
	}
	if t.Instance != id {
		return Action{}, ErrTicketMismatch
	}
	return t.Action, nil
}

// View returns the instance wrapped in its root element. The element
// re-fetches itself when another instance dispatches to the same key; the
// trigger filter skips the event raised by its own dispatch, whose response
// already swaps it.
func (reg *Registry) View(id string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		inst, err := reg.Lookup(id)
		if err != nil {
			return err
		}
		return reg.renderView(ctx, w, id, inst)
	})
}

func (reg *Registry) renderView(ctx context.Context, w io.Writer, id string, inst Attachable) error {
	key := inst.Key()
	_, err := fmt.Fprintf(w,
		`<div id="%s" data-hxstate-key="%s" data-hxstate-release="%s" hx-get="%s" hx-trigger="%s" hx-swap="outerHTML">`,
		elementID(id),
		html.EscapeString(key),
		html.EscapeString(reg.prefix+id),
		html.EscapeString(reg.prefix+id),
		refreshTrigger(key, id),
	)
	if err != nil {
		return err
	}
	if err := inst.Render(ctx, w); err != nil {
		return err
	}
	_, err = io.WriteString(w, `</div>`)
	return err
}

// refreshTrigger is the hx-trigger of an instance's root element. Instance
// ids are xids, so they need no quoting inside the filter.
func refreshTrigger(key, id string) string {
	return fmt.Sprintf("%s[detail.instance!='%s'] from:body", EventName(key), id)
}

// releaseScript sends DELETE for every instance on the page when the page is
// hidden for good, and reloads pages restored from the back/forward cache
// since their instances were released.
const releaseScript = `<script>
addEventListener("pagehide", function () {
  document.querySelectorAll("[data-hxstate-release]").forEach(function (el) {
    fetch(el.getAttribute("data-hxstate-release"), {method: "DELETE", keepalive: true, headers: {"HX-Request": "true"}});
  });
});
addEventListener("pageshow", function (e) { if (e.persisted) location.reload(); });
</script>`

// Script returns the page script that releases the page's instances when
// the page goes away. Render it once per page.
func (reg *Registry) Script() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, releaseScript)
		return err
	})
}

// Handler returns the HTTP handler for instance routes.
// Mount this at the registry prefix in your application.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CSRF protection: mutating methods require HX-Request header
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !IsHTMX(r) {
				http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
				return
			}
		}

		reg.mux.ServeHTTP(w, r)
	})
}

func (reg *Registry) startSpan(r *http.Request, name, id string) (context.Context, trace.Span) {
	return reg.tracer.Start(r.Context(), name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("hxstate.instance", id),
			attribute.String("http.method", r.Method),
		),
	)
}

func (reg *Registry) fail(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	reg.OnError(w, r, err)
}

func (reg *Registry) handleRender(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, span := reg.startSpan(r, "hxstate.render", id)
	defer span.End()

	inst, err := reg.Lookup(id)
	if err != nil {
		reg.fail(w, r, span, err)
		return
	}
	span.SetAttributes(attribute.String("hxstate.key", inst.Key()))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reg.renderView(ctx, w, id, inst); err != nil {
		reg.fail(w, r, span, err)
	}
}

func (reg *Registry) handleDispatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, span := reg.startSpan(r, "hxstate.dispatch", id)
	defer span.End()

	inst, err := reg.Lookup(id)
	if err != nil {
		reg.fail(w, r, span, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		reg.fail(w, r, span, fmt.Errorf("%w: %v", ErrInvalidFormat, err))
		return
	}
	action, err := reg.decodeTicket(id, r.FormValue("p"))
	if err != nil {
		reg.fail(w, r, span, err)
		return
	}

	key := inst.Key()
	span.SetAttributes(
		attribute.String("hxstate.key", key),
		attribute.String("hxstate.action", action.Type),
	)

	if err := inst.DispatchLocal(action); err != nil {
		reg.fail(w, r, span, err)
		return
	}

	w.Header().Set("HX-Trigger", BuildTriggerHeader(EventName(key), map[string]any{"instance": id}))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reg.renderView(ctx, w, id, inst); err != nil {
		reg.fail(w, r, span, err)
	}
}

func (reg *Registry) handleDetach(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, span := reg.startSpan(r, "hxstate.detach", id)
	defer span.End()

	if err := reg.Detach(id); err != nil {
		reg.fail(w, r, span, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// hosted is a Registry entry.
type hosted struct {
	inst Attachable
	seen atomic.Int64
}

func (h *hosted) touch(now time.Time) {
	h.seen.Store(now.UnixNano())
}

func (h *hosted) lastSeen() time.Time {
	return time.Unix(0, h.seen.Load())
}
