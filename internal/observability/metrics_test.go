package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveProxy("list", true, time.Millisecond)
	m.ObserveSettingsSave(nil, time.Millisecond)
	m.IncNameLookup("fallback")
	m.ApiInflightInc()
	m.ApiInflightDec()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rec.Code)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveProxy("update", false, 10*time.Millisecond)
	m.ObserveProxy("update", false, 10*time.Millisecond)
	m.ObserveProxy("update", true, 10*time.Millisecond)
	m.ObserveSettingsSave(errors.New("boom"), time.Millisecond)

	if got := promtest.ToFloat64(m.proxyCalls.WithLabelValues("update", "failure")); got != 2 {
		t.Fatalf("failure count=%v want 2", got)
	}
	if got := promtest.ToFloat64(m.settingsSaves.WithLabelValues("error")); got != 1 {
		t.Fatalf("save error count=%v want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fd_submission_proxy_calls_total") {
		t.Fatalf("unexpected exposition (%d): %s", rec.Code, rec.Body.String())
	}

	// a second instance must not collide with the first
	_ = NewMetrics()
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = 2 ,bad, =x,c=")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("unexpected headers %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
