package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"aviation_incidents/internal/incident"
)

type mapStore struct {
	airports map[string]incident.Airport
	err      error
}

func (m *mapStore) GetAirports(_ context.Context, codes []string) (map[string]incident.Airport, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]incident.Airport)
	for _, c := range codes {
		k := incident.NormaliseICAO(c)
		if a, ok := m.airports[k]; ok {
			out[k] = a
		}
	}
	return out, nil
}

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func newStore() *mapStore {
	return &mapStore{airports: map[string]incident.Airport{
		"kjfk": {ICAOCode: "kjfk", Name: str("John F. Kennedy International Airport"), Lat: f64(40.64), Lon: f64(-73.78)},
	}}
}

func TestResolveTableOnly(t *testing.T) {
	r := NewResolver(newStore(), Config{}, nil)

	got, err := r.Resolve(context.Background(), []string{"KJFK", "egll"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Resolve = %+v, want only kjfk", got)
	}
	if _, ok := got["kjfk"]; !ok {
		t.Error("kjfk missing")
	}
}

func TestResolveFallsBackToSidecar(t *testing.T) {
	var calls atomic.Int32
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/airport/egll":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"London Heathrow","city":"London","country":"United Kingdom","lat":51.47,"lon":-0.4543}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer sidecar.Close()

	r := NewResolver(newStore(), Config{SidecarURL: sidecar.URL + "/"}, nil)
	got, err := r.Resolve(context.Background(), []string{"kjfk", "EGLL", "zzzz", "egll"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	egll, ok := got["egll"]
	if !ok {
		t.Fatalf("egll not resolved: %+v", got)
	}
	if egll.ICAOCode != "egll" || egll.Name == nil || *egll.Name != "London Heathrow" || !egll.HasCoordinates() {
		t.Errorf("egll = %+v", egll)
	}
	if _, ok := got["zzzz"]; ok {
		t.Error("unknown code should be absent")
	}
	// kjfk comes from the table; egll is asked once despite the duplicate.
	if n := calls.Load(); n != 2 {
		t.Errorf("sidecar calls = %d, want 2", n)
	}
}

func TestSidecarLookupsAreBounded(t *testing.T) {
	var inFlight, peak, calls atomic.Int32
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Somewhere","lat":1,"lon":2}`))
	}))
	defer sidecar.Close()

	var codes []string
	for i := range 3 * sidecarConcurrency {
		codes = append(codes, fmt.Sprintf("x%03d", i))
	}

	r := NewResolver(newStore(), Config{SidecarURL: sidecar.URL}, nil)
	got, err := r.Resolve(context.Background(), codes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != len(codes) {
		t.Errorf("resolved %d codes, want %d", len(got), len(codes))
	}
	if n := calls.Load(); int(n) != len(codes) {
		t.Errorf("sidecar calls = %d, want %d", n, len(codes))
	}
	if p := peak.Load(); p > sidecarConcurrency {
		t.Errorf("peak in-flight = %d, want at most %d", p, sidecarConcurrency)
	}
	if p := peak.Load(); p < 2 {
		t.Errorf("peak in-flight = %d, lookups ran serially", p)
	}
}

func TestSidecarErrorsAreNotFatal(t *testing.T) {
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer sidecar.Close()

	r := NewResolver(newStore(), Config{SidecarURL: sidecar.URL}, nil)
	got, err := r.Resolve(context.Background(), []string{"kjfk", "egll"})
	if err != nil {
		t.Fatalf("Resolve should swallow sidecar errors: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Resolve = %+v, want only kjfk", got)
	}
}

func TestStoreErrorIsReturned(t *testing.T) {
	r := NewResolver(&mapStore{err: errors.New("db down")}, Config{}, nil)
	if _, err := r.Resolve(context.Background(), []string{"kjfk"}); err == nil {
		t.Error("expected store error")
	}
}

func TestLookup(t *testing.T) {
	r := NewResolver(newStore(), Config{}, nil)
	ctx := context.Background()

	a, err := r.Lookup(ctx, " KJFK ")
	if err != nil || a == nil || a.ICAOCode != "kjfk" {
		t.Errorf("Lookup(KJFK) = %+v, %v", a, err)
	}
	if a, err := r.Lookup(ctx, "nope"); err != nil || a != nil {
		t.Errorf("Lookup(nope) = %+v, %v; want nil, nil", a, err)
	}
	if a, err := r.Lookup(ctx, ""); err != nil || a != nil {
		t.Errorf("Lookup(\"\") = %+v, %v; want nil, nil", a, err)
	}
}
