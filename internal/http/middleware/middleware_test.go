package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"site_auditor/internal/pkg/metrics"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRequestIDIsPropagated(t *testing.T) {
	var seen string
	h := RequestIDLoggerMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set("x-request-id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("x-request-id"))
}

func TestRequestIDIsGenerated(t *testing.T) {
	var seen string
	h := RequestIDLoggerMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("x-request-id"))
}

func TestPanicIsRecovered(t *testing.T) {
	h := RequestIDLoggerMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestPreflightShortCircuits(t *testing.T) {
	called := false
	h := RequestIDLoggerMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsMiddlewareCountsErrorsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/analyses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequestErrorsTotal.WithLabelValues(http.MethodGet, "/analyses/{id}", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/analyses/abc", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
