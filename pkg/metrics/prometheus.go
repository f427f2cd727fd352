// Package metrics provides Prometheus metrics for the coupling pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the coupler process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Message flow
	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	receiveLatency   prometheus.Histogram

	// Accumulator protocol
	cyclesCompleted *prometheus.CounterVec
	stagedSlices    *prometheus.GaugeVec
	activeStreams   prometheus.Gauge

	// Conduits
	conduitDepth   *prometheus.GaugeVec
	conduitDropped *prometheus.CounterVec

	// Timeslice store
	storeSlicesWritten prometheus.Counter
	storeSlicesRead    prometheus.Counter
	storeOpLatency     *prometheus.HistogramVec

	// Limit checking
	checksRun    prometheus.Counter
	checksFailed prometheus.Counter

	// Errors by component and kind
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// Registry returns the registry all coupler metrics are registered on.
func Registry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coupler",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "messages_received_total",
			Help:      "Messages received, by actor and port",
		},
		[]string{"actor", "port"},
	)

	m.messagesSent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "messages_sent_total",
			Help:      "Messages sent, by actor and port",
		},
		[]string{"actor", "port"},
	)

	m.receiveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "receive_wait_milliseconds",
		Help:      "Time spent blocked on a port receive, in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cyclesCompleted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "reuse_cycles_total",
			Help:      "Completed reuse cycles, by actor",
		},
		[]string{"actor"},
	)

	m.stagedSlices = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "staged_slices",
			Help:      "Timeslices currently staged for the running cycle, by stream",
		},
		[]string{"stream"},
	)

	m.activeStreams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_streams",
		Help:      "Streams still expecting data in the running cycle",
	})

	m.conduitDepth = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "conduit_depth",
			Help:      "Messages buffered in a conduit",
		},
		[]string{"conduit"},
	)

	m.conduitDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "conduit_dropped_total",
			Help:      "Messages rejected because a conduit was closed",
		},
		[]string{"conduit"},
	)

	m.storeSlicesWritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_slices_written_total",
		Help:      "Timeslices written to the durable store",
	})

	m.storeSlicesRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_slices_read_total",
		Help:      "Timeslices read from the durable store",
	})

	m.storeOpLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_op_latency_milliseconds",
			Help:      "Durable store operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.checksRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "limit_checks_total",
		Help:      "Limit-check evaluations performed",
	})

	m.checksFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "limit_check_failures_total",
		Help:      "Limit-check evaluations that reported violations",
	})

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Errors by component and kind",
		},
		[]string{"component", "kind"},
	)
}

// Package-level helpers operating on the global manager.

// RecordReceive counts a received message and the time spent waiting for it.
func RecordReceive(actor, port string, waitMS float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesReceived.WithLabelValues(actor, port).Inc()
	globalManager.receiveLatency.Observe(waitMS)
}

// RecordSend counts a sent message.
func RecordSend(actor, port string) {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesSent.WithLabelValues(actor, port).Inc()
}

// RecordCycle counts a completed reuse cycle for the actor.
func RecordCycle(actor string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cyclesCompleted.WithLabelValues(actor).Inc()
}

// UpdateStagedSlices sets the staged-slice count for a stream.
func UpdateStagedSlices(stream string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.stagedSlices.WithLabelValues(stream).Set(float64(n))
}

// UpdateActiveStreams sets the number of streams still expecting data.
func UpdateActiveStreams(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.activeStreams.Set(float64(n))
}

// UpdateConduitDepth sets the buffered message count of a conduit.
func UpdateConduitDepth(conduit string, depth int) {
	if !globalManager.enabled {
		return
	}
	globalManager.conduitDepth.WithLabelValues(conduit).Set(float64(depth))
}

// RecordConduitDrop counts a message rejected by a closed conduit.
func RecordConduitDrop(conduit string) {
	if !globalManager.enabled {
		return
	}
	globalManager.conduitDropped.WithLabelValues(conduit).Inc()
}

// RecordStoreWrite counts a slice written and its latency.
func RecordStoreWrite(latencyMS float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeSlicesWritten.Inc()
	globalManager.storeOpLatency.WithLabelValues("write").Observe(latencyMS)
}

// RecordStoreRead counts a slice read and its latency.
func RecordStoreRead(latencyMS float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeSlicesRead.Inc()
	globalManager.storeOpLatency.WithLabelValues("read").Observe(latencyMS)
}

// RecordCheck counts a limit-check evaluation.
func RecordCheck(failed bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.checksRun.Inc()
	if failed {
		globalManager.checksFailed.Inc()
	}
}

// RecordErrorByComponent counts an error by component and kind.
func RecordErrorByComponent(component, kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}
