package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register should ignore duplicates: %v", err)
	}
}

func TestObserveSubmission(t *testing.T) {
	before := counterValue(t, evaluationSubmissionsTotal.WithLabelValues(OutcomeNotFound))
	ObserveSubmission(OutcomeNotFound)
	after := counterValue(t, evaluationSubmissionsTotal.WithLabelValues(OutcomeNotFound))
	if after-before != 1 {
		t.Errorf("not_found counter moved by %v, want 1", after-before)
	}
}

func TestObserveRequestUnmatchedRoute(t *testing.T) {
	before := counterValue(t, httpRequestsTotal.WithLabelValues("unmatched", "404"))
	ObserveRequest("", 404, time.Millisecond)
	after := counterValue(t, httpRequestsTotal.WithLabelValues("unmatched", "404"))
	if after-before != 1 {
		t.Errorf("unmatched counter moved by %v, want 1", after-before)
	}
}

func TestObserveGeocoderIgnoresZero(t *testing.T) {
	before := counterValue(t, geocoderLookupsTotal.WithLabelValues(GeocoderMiss))
	ObserveGeocoder(GeocoderMiss, 0)
	ObserveGeocoder(GeocoderMiss, 2)
	after := counterValue(t, geocoderLookupsTotal.WithLabelValues(GeocoderMiss))
	if after-before != 2 {
		t.Errorf("miss counter moved by %v, want 2", after-before)
	}
}
