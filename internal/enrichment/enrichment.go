// Package enrichment resolves airport codes found in incident locations to
// airport metadata and coordinates.
//
// Codes are looked up in the airport_location table first. Codes the table
// does not know are sent to an optional geocoding sidecar that serves
// GET {base}/airport/{code}. A failing sidecar never fails the caller: the
// code is logged and treated as unknown.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/metrics"
)

// AirportStore is the table lookup the resolver reads first.
type AirportStore interface {
	GetAirports(ctx context.Context, codes []string) (map[string]incident.Airport, error)
}

// sidecarConcurrency caps in-flight sidecar requests per Resolve call.
const sidecarConcurrency = 8

// Config holds geocoder settings.
type Config struct {
	SidecarURL string        // Empty disables the sidecar.
	Timeout    time.Duration // Per sidecar request.
}

// Resolver maps airport codes to airports.
type Resolver struct {
	store   AirportStore
	sidecar string
	client  *http.Client
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by store and, when configured, the
// geocoding sidecar.
func NewResolver(store AirportStore, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		store:   store,
		sidecar: strings.TrimRight(cfg.SidecarURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Resolve returns the airports known for codes keyed by lower-cased code.
// Unknown codes are absent. Only a table failure is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, codes []string) (map[string]incident.Airport, error) {
	found, err := r.store.GetAirports(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("resolve airports: %w", err)
	}
	metrics.ObserveGeocoder(metrics.GeocoderTable, len(found))

	if r.sidecar == "" {
		metrics.ObserveGeocoder(metrics.GeocoderMiss, len(missing(codes, found)))
		return found, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(sidecarConcurrency)
	for _, code := range missing(codes, found) {
		g.Go(func() error {
			a, err := r.fetch(ctx, code)
			switch {
			case err != nil:
				r.logger.Warn("geocoder sidecar lookup failed",
					slog.String("code", code), slog.Any("error", err))
				metrics.ObserveGeocoder(metrics.GeocoderError, 1)
			case a == nil:
				metrics.ObserveGeocoder(metrics.GeocoderMiss, 1)
			default:
				metrics.ObserveGeocoder(metrics.GeocoderSidecar, 1)
				mu.Lock()
				found[code] = *a
				mu.Unlock()
			}
			// Sidecar failures are logged, never returned.
			return nil
		})
	}
	_ = g.Wait()
	return found, nil
}

// Lookup resolves a single code, returning nil when it is unknown.
func (r *Resolver) Lookup(ctx context.Context, code string) (*incident.Airport, error) {
	key := incident.NormaliseICAO(code)
	if key == "" {
		return nil, nil
	}
	found, err := r.Resolve(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	a, ok := found[key]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// missing returns the distinct normalised codes absent from found.
func missing(codes []string, found map[string]incident.Airport) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range codes {
		k := incident.NormaliseICAO(c)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := found[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// fetch asks the sidecar about one code. A 404 is not an error.
func (r *Resolver) fetch(ctx context.Context, code string) (*incident.Airport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.sidecar+"/airport/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sidecar returned %s", resp.Status)
	}

	var a incident.Airport
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode sidecar response: %w", err)
	}
	a.ICAOCode = code
	return &a, nil
}
