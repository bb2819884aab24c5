// Package asrs maps the voluntary safety report table onto the canonical
// incident row.
package asrs

import (
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/registry"
)

// Source reads asrs_records. The report time is the incident date, place
// is the location and the synopsis stands in for the narrative.
type Source struct{}

func init() {
	registry.Register(&Source{})
}

func (s *Source) Tag() incident.Tag { return incident.TagASRS }
func (s *Source) Table() string     { return "asrs_records" }
func (s *Source) Priority() int     { return 20 }

func (s *Source) Column(col incident.Column) string {
	switch col {
	case incident.ColOriginDate:
		return "time"
	case incident.ColLocation:
		return "place"
	case incident.ColNarrative:
		return "synopsis"
	case incident.ColUID, incident.ColPhase, incident.ColAircraftType, incident.ColOperator:
		return string(col)
	}
	return ""
}
