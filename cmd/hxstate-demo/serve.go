package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pthm/hxstate"
	"github.com/pthm/hxstate/examples/counter"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr        string
	key         string
	prefix      string
	sensitive   bool
	development bool
	idle        time.Duration
}

func serveCmd() *cobra.Command {
	opts := serveOptions{
		addr:   envOr("HXSTATE_ADDR", ":8080"),
		key:    os.Getenv("HXSTATE_KEY"),
		prefix: envOr("HXSTATE_PREFIX", "/_s/"),
		idle:   30 * time.Minute,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo server",
		Long: `Start the demo server.

The page hosts two counters with their own keys, a third counter sharing
the first one's key, and two switches sharing one key. Clicking any of them
refreshes every instance mounted at the same key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", opts.addr, "Listen address (env HXSTATE_ADDR)")
	cmd.Flags().StringVar(&opts.key, "key", opts.key, "Ticket signing key (env HXSTATE_KEY)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", opts.prefix, "URL prefix for instance routes (env HXSTATE_PREFIX)")
	cmd.Flags().BoolVar(&opts.sensitive, "sensitive", false, "Encrypt dispatch tickets")
	cmd.Flags().BoolVar(&opts.development, "dev", false, "Warn when instances share a key")
	cmd.Flags().DurationVar(&opts.idle, "idle", opts.idle, "Detach instances unused for this long")

	return cmd
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	key := []byte(opts.key)
	if len(key) == 0 {
		logger.Warn("no signing key configured; using a development key")
		key = []byte("hxstate-demo-development-key")
	}

	promRegistry := prometheus.NewRegistry()
	metrics := hxstate.NewMetrics(hxstate.WithRegistry(promRegistry))

	store := hxstate.NewStore(hxstate.WithLogger(logger), hxstate.WithMetrics(metrics))

	registryOpts := []hxstate.Option{
		hxstate.WithLogger(logger),
		hxstate.WithPrefix(opts.prefix),
	}
	if opts.sensitive {
		registryOpts = append(registryOpts, hxstate.WithSensitiveTickets())
	}
	reg := hxstate.NewRegistry(key, registryOpts...)
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("detach on shutdown failed", slog.Any("error", err))
		}
	}()

	pg := newPage(store, reg, logger, opts.development)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newRouter(pg, promRegistry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backstop for pages that never sent their release requests.
	go reg.RunEviction(ctx, time.Minute, opts.idle)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", opts.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(pg *page, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", pg.handleIndex)
	r.Mount(pg.reg.Prefix(), pg.reg.Handler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

type page struct {
	store    *hxstate.Store
	reg      *hxstate.Registry
	logger   *slog.Logger
	counters *hxstate.Connected[counter.Count]
	switches *hxstate.Connected[counter.Switch]
}

func newPage(store *hxstate.Store, reg *hxstate.Registry, logger *slog.Logger, development bool) *page {
	withLogger := func(cfg *hxstate.Config[counter.Count]) {
		cfg.Logger = logger
		cfg.Development = development
	}
	withSwitchLogger := func(cfg *hxstate.Config[counter.Switch]) {
		cfg.Logger = logger
		cfg.Development = development
	}
	return &page{
		store:    store,
		reg:      reg,
		logger:   logger,
		counters: counter.New(withLogger),
		switches: counter.NewSwitch(withSwitchLogger),
	}
}

// handleIndex attaches a fresh set of instances for this page view. The
// page releases them again on pagehide.
func (p *page) handleIndex(w http.ResponseWriter, r *http.Request) {
	type slot struct {
		inst  hxstate.Attachable
		props hxstate.Props
	}
	slots := []slot{
		{p.counters.New(p.store), hxstate.Props{"id": "a", "label": "First"}},
		{p.counters.New(p.store), hxstate.Props{"id": "b", "label": "Second"}},
		{p.counters.New(p.store), hxstate.Props{"id": "a", "label": "Mirror of first"}},
		{p.switches.New(p.store), nil},
		{p.switches.New(p.store), nil},
	}

	views := make([]templ.Component, 0, len(slots))
	for _, s := range slots {
		id, err := p.reg.Attach(s.inst, s.props)
		if err != nil {
			p.logger.Error("attach failed", slog.Any("error", err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		views = append(views, p.reg.View(id))
	}

	if err := hxstate.Render(w, r, layout(views, p.reg.Script())); err != nil {
		p.logger.Error("render failed", slog.Any("error", err))
	}
}

func layout(views []templ.Component, script templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>hxstate demo</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head>
<body>
<h1>hxstate demo</h1>
`); err != nil {
			return err
		}
		for i, v := range views {
			if _, err := fmt.Fprintf(w, "<section data-slot=\"%d\">", i); err != nil {
				return err
			}
			if err := v.Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "</section>\n"); err != nil {
				return err
			}
		}
		if err := script.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}
