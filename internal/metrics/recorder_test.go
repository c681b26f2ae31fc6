package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveOperation(t *testing.T) {
	r := NewRecorder(nil)

	r.ObserveOperation("upload", nil, 10*time.Millisecond)
	r.ObserveOperation("upload", nil, 20*time.Millisecond)
	r.ObserveOperation("upload", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.operations.WithLabelValues("upload", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues("upload", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_RenameCounters(t *testing.T) {
	r := NewRecorder(nil)

	r.RenameDeleteRetry()
	r.RenameDeleteRetry()
	r.RenameDuplicate()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.renameRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.duplicates))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveOperation("list", nil, time.Second)
		r.RenameDeleteRetry()
		r.RenameDuplicate()
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder(nil)
	r.ObserveOperation("delete", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ironshelf_operations_total{operation="delete",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "ironshelf_rename_delete_retries_total 0")
}
