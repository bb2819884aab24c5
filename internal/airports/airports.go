// Package airports loads airport reference data from CSV.
package airports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"aviation_incidents/internal/incident"
)

// Row is one CSV line. Headers must match the csv tags; other columns are
// ignored. Blank optional cells decode to nil.
type Row struct {
	ICAOCode string   `csv:"icao_code"`
	IATACode *string  `csv:"iata_code,omitempty"`
	Name     *string  `csv:"name,omitempty"`
	City     *string  `csv:"city,omitempty"`
	Country  *string  `csv:"country,omitempty"`
	Lat      *float64 `csv:"lat,omitempty"`
	Lon      *float64 `csv:"lon,omitempty"`
}

// Parse decodes airport rows from r. Rows without an ICAO code are
// skipped and codes are lower-cased.
func Parse(r io.Reader) ([]incident.Airport, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("create airport CSV decoder: %w", err)
	}

	var rows []Row
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode airport CSV: %w", err)
	}

	out := make([]incident.Airport, 0, len(rows))
	for _, row := range rows {
		code := incident.NormaliseICAO(row.ICAOCode)
		if code == "" {
			continue
		}
		out = append(out, incident.Airport{
			ICAOCode: code,
			IATACode: row.IATACode,
			Name:     row.Name,
			City:     row.City,
			Country:  row.Country,
			Lat:      row.Lat,
			Lon:      row.Lon,
		})
	}
	return out, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string) ([]incident.Airport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open airport CSV: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
