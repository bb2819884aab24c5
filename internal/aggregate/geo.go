package aggregate

import (
	"sort"

	"aviation_incidents/internal/incident"
)

// LocationCount is the incident count at one resolved airport.
type LocationCount struct {
	Location string   `json:"location"`
	ICAOCode string   `json:"icao_code"`
	Name     *string  `json:"name"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Count    int64    `json:"incident_count"`
}

// ByLocation joins location counts to airports. Locations that do not
// resolve to an airport with coordinates are dropped. airports is keyed by
// lower-cased ICAO code.
func ByLocation(rows []GroupCount, airports map[string]incident.Airport) []LocationCount {
	merged := make(map[string]*LocationCount)
	for _, r := range rows {
		loc := r.Key(0)
		a, ok := airports[incident.NormaliseICAO(loc)]
		if !ok || !a.HasCoordinates() {
			continue
		}
		lc, ok := merged[a.ICAOCode]
		if !ok {
			lc = &LocationCount{Location: loc, ICAOCode: a.ICAOCode, Name: a.Name, Lat: a.Lat, Lon: a.Lon}
			merged[a.ICAOCode] = lc
		}
		lc.Count += r.Count
	}

	out := make([]LocationCount, 0, len(merged))
	for _, lc := range merged {
		out = append(out, *lc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ICAOCode < out[j].ICAOCode
	})
	return out
}

// LocationPeriodCount is the monthly count at one resolved airport.
type LocationPeriodCount struct {
	Location string   `json:"location"`
	ICAOCode string   `json:"icao_code"`
	Period   string   `json:"period"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Count    int64    `json:"incident_count"`
}

// LocationsOverTime joins (location, YYYY-MM) counts to airports, sorted by
// period then ICAO code. Unresolved locations are dropped.
func LocationsOverTime(rows []GroupCount, airports map[string]incident.Airport) []LocationPeriodCount {
	type key struct{ icao, period string }
	merged := make(map[key]*LocationPeriodCount)
	for _, r := range rows {
		loc, period := r.Key(0), r.Key(1)
		if period == "" {
			continue
		}
		a, ok := airports[incident.NormaliseICAO(loc)]
		if !ok || !a.HasCoordinates() {
			continue
		}
		k := key{a.ICAOCode, period}
		lpc, ok := merged[k]
		if !ok {
			lpc = &LocationPeriodCount{Location: loc, ICAOCode: a.ICAOCode, Period: period, Lat: a.Lat, Lon: a.Lon}
			merged[k] = lpc
		}
		lpc.Count += r.Count
	}

	out := make([]LocationPeriodCount, 0, len(merged))
	for _, v := range merged {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].ICAOCode < out[j].ICAOCode
	})
	return out
}

// LocatedIncident is an incident placed on the map.
type LocatedIncident struct {
	incident.Incident
	ICAOCode string   `json:"icao_code"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// Locate attaches coordinates to incidents, dropping those whose location
// does not resolve.
func Locate(incidents []incident.Incident, airports map[string]incident.Airport) []LocatedIncident {
	out := make([]LocatedIncident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Location == nil {
			continue
		}
		a, ok := airports[incident.NormaliseICAO(*inc.Location)]
		if !ok || !a.HasCoordinates() {
			continue
		}
		out = append(out, LocatedIncident{Incident: inc, ICAOCode: a.ICAOCode, Lat: a.Lat, Lon: a.Lon})
	}
	return out
}

// LocationKeys returns the distinct non-empty locations in key position i.
func LocationKeys(rows []GroupCount, i int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		loc := r.Key(i)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	return out
}
