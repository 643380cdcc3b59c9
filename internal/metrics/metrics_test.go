package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cloudstore/internal/drive"
)

func TestRecorder(t *testing.T) {
	var r Recorder

	t.Run("inconsistency", func(t *testing.T) {
		before := testutil.ToFloat64(inconsistenciesTotal.WithLabelValues(drive.InconsistencyOrphanBlob))
		r.Inconsistency(drive.InconsistencyOrphanBlob)
		after := testutil.ToFloat64(inconsistenciesTotal.WithLabelValues(drive.InconsistencyOrphanBlob))
		if after != before+1 {
			t.Errorf("counter = %v, want %v", after, before+1)
		}
	})

	t.Run("import entry", func(t *testing.T) {
		before := testutil.ToFloat64(importEntriesTotal.WithLabelValues(drive.ImportSkipped))
		r.ImportEntry(drive.ImportSkipped)
		if got := testutil.ToFloat64(importEntriesTotal.WithLabelValues(drive.ImportSkipped)); got != before+1 {
			t.Errorf("counter = %v, want %v", got, before+1)
		}
	})

	t.Run("operation outcome", func(t *testing.T) {
		okBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("upload", ResultOK))
		errBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("upload", ResultError))
		r.Operation("upload", nil)
		r.Operation("upload", errors.New("boom"))
		if got := testutil.ToFloat64(operationsTotal.WithLabelValues("upload", ResultOK)); got != okBefore+1 {
			t.Errorf("ok counter = %v, want %v", got, okBefore+1)
		}
		if got := testutil.ToFloat64(operationsTotal.WithLabelValues("upload", ResultError)); got != errBefore+1 {
			t.Errorf("error counter = %v, want %v", got, errBefore+1)
		}
	})
}
