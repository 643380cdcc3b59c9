// Package metrics exposes the domain counters of cloudstore to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cloudstore/internal/drive"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudstore_operations_total",
		Help: "Mutating namespace operations by outcome.",
	}, []string{"operation", "result"})

	importEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudstore_import_entries_total",
		Help: "Archive entries processed by import, by result.",
	}, []string{"result"})

	inconsistenciesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudstore_inconsistencies_total",
		Help: "Divergences between the metadata store and the blob store that were not repaired.",
	}, []string{"kind"})
)

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder implements drive.Metrics on the package's Prometheus counters.
type Recorder struct{}

var _ drive.Metrics = Recorder{}

func (Recorder) Inconsistency(kind string) {
	inconsistenciesTotal.WithLabelValues(kind).Inc()
}

func (Recorder) ImportEntry(result string) {
	importEntriesTotal.WithLabelValues(result).Inc()
}

// Operation counts one journaled operation.
func (Recorder) Operation(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}
