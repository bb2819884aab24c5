// Package pci maps the third incident feed onto the canonical incident row.
package pci

import (
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/registry"
)

// Source reads pci_scraped_accidents. The feed never records a flight
// phase, so phase always reads as NULL.
type Source struct{}

func init() {
	registry.Register(&Source{})
}

func (s *Source) Tag() incident.Tag { return incident.TagPCI }
func (s *Source) Table() string     { return "pci_scraped_accidents" }
func (s *Source) Priority() int     { return 30 }

func (s *Source) Column(col incident.Column) string {
	switch col {
	case incident.ColOriginDate:
		return "date"
	case incident.ColNarrative:
		return "summary"
	case incident.ColUID, incident.ColAircraftType, incident.ColLocation, incident.ColOperator:
		return string(col)
	}
	return ""
}
