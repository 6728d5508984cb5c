package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/MacJediWizard/dealbook/internal/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPrometheus_Registration(t *testing.T) {
	t.Run("creates metrics successfully", func(t *testing.T) {
		m, err := NewMetrics(prometheus.NewRegistry())
		if err != nil {
			t.Fatalf("failed to create metrics: %v", err)
		}
		if m.RequestCounter == nil || m.SearchCounter == nil || m.ExportCounter == nil {
			t.Fatal("expected collectors to be initialized")
		}
	})

	t.Run("fails on duplicate registration", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if _, err := NewMetrics(reg); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}
		if _, err := NewMetrics(reg); err == nil {
			t.Fatal("expected error on duplicate registration")
		}
	})
}

func TestPrometheus_SearchAndExport(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.RecordSearch("investors", 120)
	m.RecordSearch("investors", 0)
	m.RecordSearch("funds", 5)
	m.RecordExport("funds", "xlsx")

	if v := getCounterValue(t, m.SearchCounter, "investors"); v != 2 {
		t.Errorf("expected 2 investor searches, got %f", v)
	}
	if v := getCounterValue(t, m.SearchCounter, "funds"); v != 1 {
		t.Errorf("expected 1 fund search, got %f", v)
	}
	count, sum := getHistogramValues(t, m.SearchResults, "investors")
	if count != 2 || sum != 120 {
		t.Errorf("expected count 2 sum 120, got %d %f", count, sum)
	}
	if v := getCounterValue(t, m.ExportCounter, "funds", "xlsx"); v != 1 {
		t.Errorf("expected 1 export, got %f", v)
	}
}

func TestPrometheus_Middleware(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/investors/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", m.Handler())

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/investors/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if v := getCounterValue(t, m.RequestCounter, "GET", "/api/v1/investors/:id", "404"); v != 3 {
		t.Errorf("expected 3 requests on the templated route, got %f", v)
	}
	if v := getCounterValue(t, m.RequestCounter, "GET", "unmatched", "404"); v != 1 {
		t.Errorf("expected 1 unmatched request, got %f", v)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dealbook_http_requests_total") {
		t.Error("expected exposition to include dealbook_http_requests_total")
	}
}

type stubStats struct {
	calls int
	err   error
}

func (s *stubStats) Stats(context.Context) (*db.DirectoryStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &db.DirectoryStats{TotalInvestors: 10, TotalFunds: 4, TotalUsers: 2, TotalLists: 1}, nil
}

func TestDirectoryCollector(t *testing.T) {
	store := &stubStats{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewDirectoryCollector(store, zerolog.Nop()))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "dealbook_directory_records" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			got[metric.GetLabel()[0].GetValue()] = metric.GetGauge().GetValue()
		}
	}
	if got["investors"] != 10 || got["funds"] != 4 || got["users"] != 2 || got["lists"] != 1 {
		t.Errorf("unexpected gauges: %v", got)
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("expected cached stats on second scrape, store called %d times", store.calls)
	}
}

func TestDirectoryCollector_StoreError(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewDirectoryCollector(&stubStats{err: errors.New("down")}, zerolog.Nop()))
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("expected no families when store fails, got %d", len(families))
	}
}

// Helper functions for extracting Prometheus metric values.

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := counter.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func getHistogramValues(t *testing.T, hist *prometheus.HistogramVec, label string) (uint64, float64) {
	t.Helper()
	var m dto.Metric
	if err := hist.WithLabelValues(label).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}
