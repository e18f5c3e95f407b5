package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackAndCallCounters(t *testing.T) {
	m := New("test")

	m.Fallback("layout", "raster_panic")
	m.Fallback("layout", "raster_panic")
	m.ObserveCall("embedding", 120*time.Millisecond, OutcomeSuccess)
	m.ObserveCall("embedding", 2*time.Second, OutcomeTimeout)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("layout", "raster_panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.externalCalls.WithLabelValues("embedding", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.externalCalls.WithLabelValues("embedding", OutcomeTimeout)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.callDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("test")
	m.Fallback("match", "no_embedder")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_engine_fallbacks_total{component="match",reason="no_embedder"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Fallback("a", "b")
		m.ObserveCall("c", time.Second, OutcomeError)
	})
	assert.Nil(t, m.Registry())
}
