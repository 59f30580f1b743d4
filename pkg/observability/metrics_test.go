package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("nodal_test")

	c.RecordMutation("add_note", nil)
	c.RecordMutation("add_note", errors.New("boom"))
	c.RecordPersist("memory", time.Millisecond, errors.New("down"))
	c.RecordCache(true)
	c.RecordCache(false)
	c.RecordCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mutations.WithLabelValues("add_note", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mutations.WithLabelValues("add_note", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PersistFailures.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordMutation("x", nil)
		c.RecordHTTP("GET", "/", "200", time.Second)
		c.RecordSmartView(time.Second, 3)
		c.SetActiveWorkspaces(2)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("nodal_test")
	c.SetActiveWorkspaces(4)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nodal_test_active_workspaces 4"))
}
