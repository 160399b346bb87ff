package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/topics/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/topics", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := newTestRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/topics/{id}", "200"))

	for _, path := range []string{"/v1/topics/1", "/v1/topics/2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/topics/{id}", "200"))
	if got-before != 2 {
		t.Errorf("requests for route pattern = %v, want 2 more", got-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := newTestRouter()
	tests := []struct {
		method, path, route, status string
	}{
		{http.MethodPost, "/v1/topics", "/v1/topics", "409"},
		{http.MethodGet, "/boom", "/boom", "500"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, http.NoBody))
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status)); v < 1 {
				t.Errorf("no sample for %s %s %s", tc.method, tc.route, tc.status)
			}
		})
	}
}

func TestRouteLabel_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	if got := routeLabel(req); got != unmatchedRoute {
		t.Errorf("routeLabel without chi context = %q", got)
	}
}
