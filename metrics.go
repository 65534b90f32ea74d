package hxstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics for a Store.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hxstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus collectors updated by a Store.
//
// Metrics collected:
//   - hxstate_dispatches_total: operations reduced, by kind
//   - hxstate_dispatch_errors_total: operations rejected, by kind
//   - hxstate_notifications_total: listener invocations
//   - hxstate_mounted_keys: keys currently holding a slice
//   - hxstate_references: sum of refcounts across keys
type Metrics struct {
	dispatches    *prometheus.CounterVec
	errors        *prometheus.CounterVec
	notifications prometheus.Counter
	mountedKeys   prometheus.Gauge
	references    prometheus.Gauge
}

// NewMetrics registers the store collectors.
//
//	m := hxstate.NewMetrics(hxstate.WithRegistry(reg))
//	store := hxstate.NewStore(hxstate.WithMetrics(m))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "hxstate",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of operations reduced into the shared container",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of operations rejected by the reducer",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener notifications",
			ConstLabels: config.ConstLabels,
		}),

		mountedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mounted_keys",
			Help:        "Number of keys currently holding a slice",
			ConstLabels: config.ConstLabels,
		}),

		references: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "references",
			Help:        "Sum of refcounts across all mounted keys",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) observeDispatch(op Op, state State, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.errors.WithLabelValues(op.Kind.String()).Inc()
		return
	}
	m.dispatches.WithLabelValues(op.Kind.String()).Inc()
	m.mountedKeys.Set(float64(state.Len()))
	m.references.Set(float64(state.References()))
}

func (m *Metrics) observeNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}
