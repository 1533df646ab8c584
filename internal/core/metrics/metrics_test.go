package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rawbridge-core/internal/config/schema"
)

// backends 两种实现共用同一组行为用例
func backends() map[string]func() Metrics {
	return map[string]func() Metrics{
		"memory":     func() Metrics { return NewMemoryMetrics() },
		"prometheus": func() Metrics { return NewPrometheusMetrics("test") },
	}
}

func TestMetrics_Counter(t *testing.T) {
	for name, newMetrics := range backends() {
		t.Run(name, func(t *testing.T) {
			m := newMetrics()
			defer m.Close()

			labels := map[string]string{"op": "read"}
			require.NoError(t, m.IncrementCounter("callbacks_total", labels))
			require.NoError(t, m.AddCounter("callbacks_total", 4, labels))

			v, err := m.GetCounter("callbacks_total", labels)
			require.NoError(t, err)
			assert.Equal(t, 5.0, v)

			other, err := m.GetCounter("callbacks_total", map[string]string{"op": "seek"})
			require.NoError(t, err)
			assert.Equal(t, 0.0, other)

			assert.Error(t, m.AddCounter("callbacks_total", -1, labels))
		})
	}
}

func TestMetrics_Gauge(t *testing.T) {
	for name, newMetrics := range backends() {
		t.Run(name, func(t *testing.T) {
			m := newMetrics()
			defer m.Close()

			require.NoError(t, m.SetGauge("live_handles", 3, nil))
			require.NoError(t, m.AddGauge("live_handles", -1, nil))

			v, err := m.GetGauge("live_handles", nil)
			require.NoError(t, err)
			assert.Equal(t, 2.0, v)
		})
	}
}

func TestMemoryMetrics_Histogram(t *testing.T) {
	m := NewMemoryMetrics()
	require.NoError(t, m.ObserveHistogram("decode_seconds", 0.5, nil))
	require.NoError(t, m.ObserveHistogram("decode_seconds", 1.5, nil))

	count, sum := m.HistogramCount("decode_seconds", nil)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 2.0, sum)
}

func TestBuildKey_LabelOrderIndependent(t *testing.T) {
	a := buildKey("x", map[string]string{"b": "2", "a": "1"})
	b := buildKey("x", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "x{a=1,b=2}", a)
	assert.Equal(t, "x", buildKey("x", nil))
}

func TestNew(t *testing.T) {
	m, err := New(schema.MetricsConfig{Enabled: true, Backend: schema.MetricsBackendPrometheus})
	require.NoError(t, err)
	assert.IsType(t, &PrometheusMetrics{}, m)

	m, err = New(schema.MetricsConfig{Enabled: false, Backend: schema.MetricsBackendPrometheus})
	require.NoError(t, err)
	assert.IsType(t, &MemoryMetrics{}, m)

	_, err = New(schema.MetricsConfig{Enabled: true, Backend: "statsd"})
	assert.Error(t, err)
}

func TestBridgeHelpers(t *testing.T) {
	previous := GetGlobalMetrics()
	defer SetGlobalMetrics(previous)

	// 未设置时为空操作
	SetGlobalMetrics(nil)
	RecordCallback("read")

	m := NewMemoryMetrics()
	SetGlobalMetrics(m)

	RecordCallback("read")
	RecordCallback("read")
	RecordCallbackFailure("seek")
	RecordBytesRead(10)
	RecordBytesRead(0)
	HandleRegistered()
	HandleRegistered()
	HandleReleased()
	SessionOpened()
	SessionClosed()
	RecordEngineStatus("open", "Success")
	ObserveDecode(0.25)

	v, _ := m.GetCounter(MetricCallbacks, map[string]string{"op": "read"})
	assert.Equal(t, 2.0, v)
	v, _ = m.GetCounter(MetricCallbackFailures, map[string]string{"op": "seek"})
	assert.Equal(t, 1.0, v)
	v, _ = m.GetCounter(MetricBytesRead, nil)
	assert.Equal(t, 10.0, v)
	v, _ = m.GetGauge(MetricLiveHandles, nil)
	assert.Equal(t, 1.0, v)
	v, _ = m.GetCounter(MetricEngineStatus, map[string]string{"op": "open", "status": "Success"})
	assert.Equal(t, 1.0, v)
	count, _ := m.HistogramCount(MetricDecodeSeconds, nil)
	assert.EqualValues(t, 1, count)
}

func TestServer_ExposesMetrics(t *testing.T) {
	p := NewPrometheusMetrics("srv")
	require.NoError(t, p.IncrementCounter("sessions_opened_total", nil))

	srv, err := NewServer("127.0.0.1:0", p)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "srv_sessions_opened_total 1")

	cancel()
	assert.NoError(t, <-done)

	_, err = NewServer("127.0.0.1:0", nil)
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", NewPrometheusMetrics("routes"))
	require.NoError(t, err)
	defer srv.Dispose()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodHead, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/metrics", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
