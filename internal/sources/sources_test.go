package sources

import (
	"errors"
	"testing"

	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/registry"
)

func TestDefaultRegistryHasAllSources(t *testing.T) {
	reg := registry.Default()
	if reg.Len() != 3 {
		t.Fatalf("expected 3 registered sources, got %d", reg.Len())
	}

	all := reg.All()
	want := []incident.Tag{incident.TagASN, incident.TagASRS, incident.TagPCI}
	for i, s := range all {
		if s.Tag() != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, s.Tag(), want[i])
		}
	}
}

func TestResolveRoutesByPrefix(t *testing.T) {
	tests := []struct {
		uid       string
		wantTable string
		wantErr   bool
	}{
		{"asn_1", "asn_scraped_accidents", false},
		{"asrs_1", "asrs_records", false},
		{"pci_1", "pci_scraped_accidents", false},
		{"faa_1", "", true},
		{"nounderscore", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			s, err := registry.Default().Resolve(tt.uid)
			if tt.wantErr {
				if !errors.Is(err, incident.ErrInvalidUID) {
					t.Fatalf("Resolve(%q) error = %v, want ErrInvalidUID", tt.uid, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.uid, err)
			}
			if s.Table() != tt.wantTable {
				t.Errorf("Resolve(%q).Table() = %q, want %q", tt.uid, s.Table(), tt.wantTable)
			}
		})
	}
}

func TestColumnMapping(t *testing.T) {
	tests := []struct {
		tag  incident.Tag
		col  incident.Column
		want string
	}{
		{incident.TagASN, incident.ColOriginDate, "date"},
		{incident.TagASN, incident.ColNarrative, "narrative"},
		{incident.TagASN, incident.ColLocation, "location"},
		{incident.TagASRS, incident.ColOriginDate, "time"},
		{incident.TagASRS, incident.ColLocation, "place"},
		{incident.TagASRS, incident.ColNarrative, "synopsis"},
		{incident.TagASRS, incident.ColPhase, "phase"},
		{incident.TagPCI, incident.ColPhase, ""},
		{incident.TagPCI, incident.ColNarrative, "summary"},
		{incident.TagPCI, incident.ColFinalCategory, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag)+"/"+string(tt.col), func(t *testing.T) {
			s, ok := registry.Default().Lookup(tt.tag)
			if !ok {
				t.Fatalf("no source for %q", tt.tag)
			}
			if got := s.Column(tt.col); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.col, got, tt.want)
			}
		})
	}
}

// Every source must map uid so the union never loses its key.
func TestEverySourceMapsUID(t *testing.T) {
	for _, s := range registry.Default().All() {
		if s.Column(incident.ColUID) == "" {
			t.Errorf("source %q does not map uid", s.Tag())
		}
	}
}
