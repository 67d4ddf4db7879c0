// Package metrics provides Prometheus collectors for tree operations and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every sitetree metric.
const Namespace = "sitetree"

// Operation labels.
const (
	OpBuild  = "build"
	OpMerge  = "merge"
	OpGet    = "get"
	OpSave   = "save"
	OpDelete = "delete"
	OpList   = "list"
)

// Metrics holds the sitetree collectors. A nil *Metrics records nothing.
type Metrics struct {
	TreesBuilt        prometheus.Counter
	TreesMerged       prometheus.Counter
	LinksAdded        prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	TreeNodes         prometheus.Histogram
	StoreErrors       *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New creates and registers all collectors on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TreesBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "trees_built_total",
			Help:      "Total number of trees built from scratch",
		}),
		TreesMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "trees_merged_total",
			Help:      "Total number of merges into persisted trees",
		}),
		LinksAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "links_added_total",
			Help:      "Total number of nodes added to trees",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of build and merge operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"operation"}),
		TreeNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "tree_nodes",
			Help:      "Node count of trees after build or merge",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"operation"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveBuild records a completed build.
func (m *Metrics) ObserveBuild(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.TreesBuilt.Inc()
	m.LinksAdded.Add(float64(nodes))
	m.OperationDuration.WithLabelValues(OpBuild).Observe(d.Seconds())
	m.TreeNodes.Observe(float64(nodes))
}

// ObserveMerge records a completed merge that grew the tree by added nodes.
func (m *Metrics) ObserveMerge(d time.Duration, added, nodes int) {
	if m == nil {
		return
	}
	m.TreesMerged.Inc()
	if added > 0 {
		m.LinksAdded.Add(float64(added))
	}
	m.OperationDuration.WithLabelValues(OpMerge).Observe(d.Seconds())
	m.TreeNodes.Observe(float64(nodes))
}

// StoreError counts a failed store operation.
func (m *Metrics) StoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
