package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	Init()
	Init()

	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/api/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/pages/{id}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pages/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/pages/{id}", "418"))
	if after-before != 3 {
		t.Fatalf("expected 3 requests under one route label, got %v", after-before)
	}
	if testutil.ToFloat64(httpInFlight) != 0 {
		t.Fatal("in-flight gauge should return to zero")
	}
}

func TestRecordEventAndFailure(t *testing.T) {
	before := testutil.ToFloat64(domainEvents.WithLabelValues("share_created"))
	RecordEvent("share_created")
	if got := testutil.ToFloat64(domainEvents.WithLabelValues("share_created")); got-before != 1 {
		t.Fatalf("share_created delta = %v", got-before)
	}

	before = testutil.ToFloat64(backgroundFailures.WithLabelValues("email"))
	RecordBackgroundFailure("email")
	if got := testutil.ToFloat64(backgroundFailures.WithLabelValues("email")); got-before != 1 {
		t.Fatalf("email failure delta = %v", got-before)
	}
}
