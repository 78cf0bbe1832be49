// Package metrics provides the Prometheus collectors shared by the fetch,
// ingest and serving layers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the custom prometheus registry for the service.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// SourceFetchesTotal counts fetch attempts by source and outcome (ok|error).
var SourceFetchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "source",
	Name:      "fetches_total",
	Help:      "Spreadsheet fetch attempts by source and outcome",
}, []string{"source", "outcome"})

// SourceFetchDurationSeconds tracks download latency per source.
var SourceFetchDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "source",
	Name:      "fetch_duration_seconds",
	Help:      "Time taken to download a spreadsheet",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"source"})

// SnapshotCacheTotal counts snapshot cache lookups by result (hit|miss|negative).
var SnapshotCacheTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snapshot",
	Name:      "cache_lookups_total",
	Help:      "Snapshot cache lookups by result",
}, []string{"result"})

// RowsLoaded reports the rows produced by the last load of each source.
var RowsLoaded = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ingest",
	Name:      "rows_loaded",
	Help:      "Rows produced by the last successful load, per source",
}, []string{"source"})

// SchemaWarningsTotal counts missing-column warnings per source and field.
var SchemaWarningsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "schema_warnings_total",
	Help:      "Expected columns that were absent from a spreadsheet",
}, []string{"source", "field"})

// CellParseErrorsTotal counts cells coerced to null during normalization.
var CellParseErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "cell_parse_errors_total",
	Help:      "Cells that could not be parsed and were coerced to null",
}, []string{"source", "field"})

// SurveyDuplicatesDropped reports survey rows collapsed by the latest
// deduplication pass.
var SurveyDuplicatesDropped = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "csat",
	Name:      "survey_duplicates_dropped",
	Help:      "Survey rows discarded because a better answer existed for the same ticket",
})

// RPCDurationSeconds tracks gRPC handler latency by method and code.
var RPCDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "grpc",
	Name:      "request_duration_seconds",
	Help:      "gRPC request latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "code"})

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
