// Package metrics exposes training and classification metrics through a
// private prometheus registry.
package metrics

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spamfilter"

var (
	// MessagesProcessed counts messages mapped during training, by model.
	MessagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_processed_total",
		Help:      "Messages mapped during training.",
	}, []string{"model"})

	// MessagesWithoutContent counts messages dropped for having no content.
	MessagesWithoutContent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_without_content_total",
		Help:      "Messages dropped because nothing remained after normalization.",
	}, []string{"model"})

	// BatchesTrained counts committed training batches by model and mode.
	BatchesTrained = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_trained_total",
		Help:      "Committed training batches.",
	}, []string{"model", "mode"})

	// BatchDuration observes the wall time of a training batch.
	BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Training batch duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"model"})

	// Verdicts counts classification results.
	Verdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdicts_total",
		Help:      "Classification verdicts.",
	}, []string{"model", "verdict"})

	// CacheRequests counts word counter cache lookups by result.
	CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Word counter cache lookups.",
	}, []string{"result"})
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// Registry returns the process registry with every collector registered.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			MessagesProcessed,
			MessagesWithoutContent,
			BatchesTrained,
			BatchDuration,
			Verdicts,
			CacheRequests,
			collectors.NewGoCollector(),
		)
	})
	return registry
}

// RegisterPool exports database/sql pool statistics under the given name.
func RegisterPool(name string, db *sql.DB) error {
	if db == nil {
		return nil
	}
	return Registry().Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// ObserveBatch records a committed training batch.
func ObserveBatch(model string, init bool, started time.Time) {
	mode := "extend"
	if init {
		mode = "init"
	}
	BatchesTrained.WithLabelValues(model, mode).Inc()
	BatchDuration.WithLabelValues(model).Observe(time.Since(started).Seconds())
}

// ObserveVerdict records a classification result.
func ObserveVerdict(model string, spam bool) {
	verdict := "ham"
	if spam {
		verdict = "spam"
	}
	Verdicts.WithLabelValues(model, verdict).Inc()
}
