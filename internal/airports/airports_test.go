package airports

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `icao_code,iata_code,name,city,country,lat,lon,elevation
KJFK,JFK,John F. Kennedy International Airport,New York,United States,40.6398,-73.7789,13
 egll ,LHR,London Heathrow,London,United Kingdom,51.4706,-0.461941,83
,XXX,No code,,,,,
yssy,,Sydney,,,,,
`

	got, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d airports, want 3", len(got))
	}

	tests := []struct {
		code      string
		name      string
		hasCoords bool
		hasIATA   bool
	}{
		{"kjfk", "John F. Kennedy International Airport", true, true},
		{"egll", "London Heathrow", true, true},
		{"yssy", "Sydney", false, false},
	}
	for i, tt := range tests {
		a := got[i]
		if a.ICAOCode != tt.code {
			t.Errorf("[%d] code = %q, want %q", i, a.ICAOCode, tt.code)
		}
		if a.Name == nil || *a.Name != tt.name {
			t.Errorf("[%d] name = %v, want %q", i, a.Name, tt.name)
		}
		if a.HasCoordinates() != tt.hasCoords {
			t.Errorf("[%d] HasCoordinates = %v", i, a.HasCoordinates())
		}
		if (a.IATACode != nil) != tt.hasIATA {
			t.Errorf("[%d] iata = %v", i, a.IATACode)
		}
	}
}

func TestParseBadNumber(t *testing.T) {
	input := "icao_code,lat,lon\nkjfk,north,west\n"
	if _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("expected decode error for non-numeric lat")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("expected error for missing header")
	}
}
