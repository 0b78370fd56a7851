// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package annotator

import "github.com/prometheus/client_golang/prometheus"

var (
	documentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "document_ops_total",
			Help:      "The total number of documents processed.",
		},
		[]string{"source"}, // file, text, annotated
	)
	entityCreationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "entity_creation_ops_total",
			Help:      "The total number of entities produced.",
		},
		[]string{"source"}, // detector, annotated, table, manual
	)
	droppedSpanOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "dropped_span_ops_total",
			Help:      "The total number of spans rejected while aligning or adding entities.",
		},
		[]string{"reason"}, // boundary, overlap, other
	)
	tableUpdateOps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "table_update_ops_total",
			Help:      "The total number of edited tag tables decoded.",
		},
	)
	malformedTagOps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "malformed_tag_ops_total",
			Help:      "The total number of malformed tag cells decoded as O.",
		},
	)
	exportOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "export_ops_total",
			Help:      "The total number of exported tag tables.",
		},
		[]string{"format"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process a request.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint", "status"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "annotator",
			Name:      "active_sessions",
			Help:      "Number of live document sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(documentOps)
	prometheus.MustRegister(entityCreationOps)
	prometheus.MustRegister(droppedSpanOps)
	prometheus.MustRegister(tableUpdateOps)
	prometheus.MustRegister(malformedTagOps)
	prometheus.MustRegister(exportOps)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(activeSessions)
}

// RecordDocument increments the processed document counter
func RecordDocument(source string) {
	documentOps.WithLabelValues(source).Inc()
}

// RecordEntityCreation records the number of entities produced
func RecordEntityCreation(source string, count int) {
	entityCreationOps.WithLabelValues(source).Add(float64(count))
}

// RecordDroppedSpan increments the rejected span counter
func RecordDroppedSpan(reason string) {
	droppedSpanOps.WithLabelValues(reason).Inc()
}

// RecordTableUpdate records a decoded table and its malformed cells
func RecordTableUpdate(malformed int) {
	tableUpdateOps.Inc()
	malformedTagOps.Add(float64(malformed))
}

// RecordExport increments the export counter
func RecordExport(format string) {
	exportOps.WithLabelValues(format).Inc()
}

// RecordRequestDuration records how long a request took
func RecordRequestDuration(endpoint, status string, seconds float64) {
	requestDuration.WithLabelValues(endpoint, status).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}

// SetActiveSessions sets the live session gauge
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
