package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// sampler and dispatcher loops.
type Metrics struct {
	// Sampler metrics.
	Polls           *prometheus.CounterVec // labels: outcome={sampled,no_location,failed}
	SamplesAppended prometheus.Counter
	SamplesChanged  prometheus.Counter
	LocationChanges prometheus.Counter
	CurrentAQI      prometheus.Gauge
	AlertsRecorded  prometheus.Counter
	SamplerRunning  prometheus.Gauge

	// Dispatcher metrics.
	Notifications     *prometheus.CounterVec // labels: result={dispatched,suppressed,failed}
	CooldownEntries   prometheus.Gauge
	CooldownEvictions prometheus.Counter
	DispatcherRunning prometheus.Gauge

	// Provider metrics.
	ProviderDuration *prometheus.HistogramVec // labels: provider={aqi,ipinfo,nominatim}
	GeocodeCache     *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Polls,
		m.SamplesAppended,
		m.SamplesChanged,
		m.LocationChanges,
		m.CurrentAQI,
		m.AlertsRecorded,
		m.SamplerRunning,
		m.Notifications,
		m.CooldownEntries,
		m.CooldownEvictions,
		m.DispatcherRunning,
		m.ProviderDuration,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Sampler poll cycles by outcome.",
		}, []string{"outcome"}),
		SamplesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_appended_total",
			Help:      "Samples written to the series store.",
		}),
		SamplesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_changed_total",
			Help:      "Samples whose AQI differed from the previous accepted value.",
		}),
		LocationChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_changes_total",
			Help:      "Times the active monitoring coordinate changed.",
		}),
		CurrentAQI: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_aqi",
			Help:      "Most recent accepted AQI value.",
		}),
		AlertsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_recorded_total",
			Help:      "Emergency alert records appended to the alert store.",
		}),
		SamplerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sampler_running",
			Help:      "1 when the sampler loop is active, 0 when shut down.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alert records handled by the dispatcher, by result.",
		}, []string{"result"}),
		CooldownEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_entries",
			Help:      "Cities currently tracked by the dispatcher cooldown map.",
		}),
		CooldownEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_evictions_total",
			Help:      "Cooldown entries removed after the inactivity TTL.",
		}),
		DispatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_running",
			Help:      "1 when the dispatcher loop is active, 0 when shut down.",
		}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "External provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
