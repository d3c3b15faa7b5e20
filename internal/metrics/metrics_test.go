package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/saj2mqtt/pkg/saj"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRead(t *testing.T) {
	assert := assert.New(t)
	m := New()

	m.ObserveRead(true, 9)
	m.ObserveRead(false, 9)
	m.ObserveRead(true, 12)

	assert.Equal(2.0, testutil.ToFloat64(m.reads.WithLabelValues("success")))
	assert.Equal(1.0, testutil.ToFloat64(m.reads.WithLabelValues("failure")))
	assert.Equal(12.0, testutil.ToFloat64(m.enabledSensors))
}

func TestInstrumentAndHandler(t *testing.T) {
	assert := assert.New(t)
	m := New()
	m.Instrument().RecordTime(saj.EndpointStatus, 120*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `saj_http_request_duration_seconds_count{endpoint="status"} 1`)
	assert.Contains(rec.Body.String(), "go_goroutines")
}
