// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Byte sources.
const (
	SourceLocal = "local"
	SourceRelay = "relay"
)

var (
	// Requests counts finished HTTP requests by route pattern and status.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tubeshelf",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	// BytesStreamed counts body bytes written to clients by source.
	BytesStreamed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tubeshelf",
		Name:      "bytes_streamed_total",
		Help:      "Body bytes streamed to clients.",
	}, []string{"source"})

	// UpstreamLatency observes time to upstream response headers.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tubeshelf",
		Name:      "relay_upstream_seconds",
		Help:      "Time until the relay target returned response headers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	// CacheLookups counts small-file cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tubeshelf",
		Name:      "cache_lookups_total",
		Help:      "Small-file cache lookups by result.",
	}, []string{"result"})
)
