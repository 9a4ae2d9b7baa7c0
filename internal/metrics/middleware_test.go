package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// newRouter mirrors how the API mounts its versioned routes.
func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/classify", func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Query().Get("referer") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/classify", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/database/reload", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	return r
}

func TestMiddlewareLabelsRoutes(t *testing.T) {
	Init()
	router := newRouter()

	tests := []struct {
		method string
		target string
		body   string
		route  string
		code   string
	}{
		{http.MethodGet, "/v1/classify?referer=https%3A%2F%2Fwww.google.com%2Fsearch%3Fq%3Dgo", "", "/v1/classify", "200"},
		{http.MethodGet, "/v1/classify", "", "/v1/classify", "400"},
		{http.MethodPost, "/v1/classify", `{"referers":[]}`, "/v1/classify", "200"},
		{http.MethodPost, "/v1/database/reload", "", "/v1/database/reload", "503"},
		{http.MethodGet, "/healthz", "", "/healthz", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			counter := httpRequestsTotal.WithLabelValues(tt.method, tt.route, tt.code)
			before := testutil.ToFloat64(counter)
			samplesBefore := durationSamples(t, tt.method, tt.route)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			require.InDelta(t, before+1, testutil.ToFloat64(counter), 0)
			require.Equal(t, samplesBefore+1, durationSamples(t, tt.method, tt.route))
		})
	}
}

func TestMiddlewareUnmatchedRoute(t *testing.T) {
	Init()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "unknown", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classify", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.InDelta(t, before+1, testutil.ToFloat64(counter), 0)
}

func durationSamples(t *testing.T, method, route string) uint64 {
	t.Helper()
	metric, ok := httpRequestDurationSeconds.WithLabelValues(method, route).(prometheus.Metric)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	return m.GetHistogram().GetSampleCount()
}
