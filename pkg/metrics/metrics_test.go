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

func TestCollectorCountsCalls(t *testing.T) {
	c := NewCollector("thing-group")
	before := testutil.ToFloat64(BackendCalls.WithLabelValues("ListThingGroups", StatusError))

	c.ObserveCall("ListThingGroups", time.Now(), errors.New("boom"))
	c.ObserveCall("ListThingGroups", time.Now(), nil)

	after := testutil.ToFloat64(BackendCalls.WithLabelValues("ListThingGroups", StatusError))
	assert.Equal(t, before+1, after)
	assert.Equal(t, int64(2), c.GetAll()["backend_calls"])
}

func TestCollectorClassifier(t *testing.T) {
	c := NewCollector("thing")
	c.SetClassifier(func(err error) string {
		if err != nil {
			return StatusBackendError
		}
		return StatusSuccess
	})
	before := testutil.ToFloat64(BackendCalls.WithLabelValues("GetThingShadow", StatusBackendError))

	c.ObserveCall("GetThingShadow", time.Now(), errors.New("not found"))

	assert.Equal(t, before+1, testutil.ToFloat64(BackendCalls.WithLabelValues("GetThingShadow", StatusBackendError)))
}

func TestRowsAndMisses(t *testing.T) {
	c := NewCollector("thing")
	rows := testutil.ToFloat64(RowsEmitted.WithLabelValues("thing"))
	misses := testutil.ToFloat64(EnrichmentMisses.WithLabelValues("thing_shadow_data"))

	c.RowEmitted()
	c.RowEmitted()
	c.EnrichmentMiss("thing_shadow_data")

	assert.Equal(t, rows+2, testutil.ToFloat64(RowsEmitted.WithLabelValues("thing")))
	assert.Equal(t, misses+1, testutil.ToFloat64(EnrichmentMisses.WithLabelValues("thing_shadow_data")))
	assert.Equal(t, int64(1), c.GetAll()["enrichment_misses"])
}

func TestPush(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	NewCollector("thing").RowEmitted()
	require.NoError(t, Push(srv.URL, "iotcore"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/iotcore", path)
}
