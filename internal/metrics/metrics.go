// Package metrics holds the Prometheus collectors for datman runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datman_dats_parsed_total",
		Help: "Total number of DAT files parsed.",
	}, []string{"format", "status"}) // status: ok, failed

	ItemsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datman_items_parsed_total",
		Help: "Total number of items read from DAT files.",
	}, []string{"type"})

	ItemsMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datman_items_merged_total",
		Help: "Total number of items absorbed into another during merging.",
	}, []string{"dupe"}) // dupe: internal, external

	OutputsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datman_outputs_written_total",
		Help: "Total number of output DAT files.",
	}, []string{"format", "status"}) // status: written, failed, empty

	FilesHashed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datman_files_hashed_total",
		Help: "Total number of files processed during directory scans.",
	}, []string{"status"}) // status: hashed, cached, failed

	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datman_parse_duration_seconds",
		Help:    "Duration of DAT parsing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})
)

// RecordParseDuration records the time taken to parse one DAT.
func RecordParseDuration(format string, start time.Time) {
	ParseDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
