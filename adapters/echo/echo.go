// Package hxstateecho provides Echo framework integration for hxstate.
//
// Mount a registry onto an Echo instance or group:
//
//	e := echo.New()
//	reg := hxstateecho.Mount(e)
//	id, _ := reg.Attach(Counter.New(store), nil)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxstateecho.MountGroup(g)
package hxstateecho

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxstate"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key      []byte
	path     string
	registry []hxstate.Option
}

// WithKey sets the encryption key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the path, relative to the Echo instance or group, that
// instances are served under. Defaults to "/_s/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithRegistryOptions passes options through to hxstate.NewRegistry.
func WithRegistryOptions(opts ...hxstate.Option) Option {
	return func(o *options) {
		o.registry = append(o.registry, opts...)
	}
}

// Mount creates a registry and mounts its handler on an Echo instance.
//
//	e := echo.New()
//	reg := hxstateecho.Mount(e)
//
//	// With options:
//	reg := hxstateecho.Mount(e, hxstateecho.WithKey(key))
func Mount(e *echo.Echo, opts ...Option) *hxstate.Registry {
	o := applyOptions(opts)
	m := &mounted{}
	routes := e.Any(o.path+"*", m.serve)
	m.reg = newRegistry(o, routes)
	return m.reg
}

// MountGroup creates a registry and mounts its handler on an Echo group.
// This allows instances to share middleware with the group (auth, logging, etc.).
// Wired elements point at the full group path.
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxstateecho.MountGroup(g)
func MountGroup(g *echo.Group, opts ...Option) *hxstate.Registry {
	o := applyOptions(opts)
	m := &mounted{}
	routes := g.Any(o.path+"*", m.serve)
	m.reg = newRegistry(o, routes)
	return m.reg
}

type mounted struct {
	reg *hxstate.Registry
}

// serve rewrites the request path onto the registry prefix before handing
// it to the registry.
func (m *mounted) serve(c echo.Context) error {
	r := c.Request()
	r.URL.Path = m.reg.Prefix() + c.Param("*")
	r.URL.RawPath = ""
	m.reg.Handler().ServeHTTP(c.Response(), r)
	return nil
}

func applyOptions(opts []Option) *options {
	o := &options{path: "/_s/"}
	for _, opt := range opts {
		opt(o)
	}
	if o.path == "" || o.path[len(o.path)-1] != '/' {
		o.path += "/"
	}
	return o
}

// newRegistry creates the registry with the public prefix of the mounted
// routes, group prefix included.
func newRegistry(o *options, routes []*echo.Route) *hxstate.Registry {
	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxstateecho: failed to generate random key: %v", err))
		}
	}

	prefix := o.path
	if len(routes) > 0 {
		prefix = strings.TrimSuffix(routes[0].Path, "*")
	}

	registryOpts := append([]hxstate.Option{hxstate.WithPrefix(prefix)}, o.registry...)
	return hxstate.NewRegistry(key, registryOpts...)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxstateecho.Render(c, page(reg.View(id)))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
