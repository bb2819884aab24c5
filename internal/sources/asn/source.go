// Package asn maps the scraped accident table onto the canonical incident row.
package asn

import (
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/registry"
)

// Source reads asn_scraped_accidents. Every canonical column is present
// under its own name except the date.
type Source struct{}

func init() {
	registry.Register(&Source{})
}

func (s *Source) Tag() incident.Tag { return incident.TagASN }
func (s *Source) Table() string     { return "asn_scraped_accidents" }
func (s *Source) Priority() int     { return 10 }

func (s *Source) Column(col incident.Column) string {
	switch col {
	case incident.ColOriginDate:
		return "date"
	case incident.ColUID, incident.ColPhase, incident.ColAircraftType,
		incident.ColLocation, incident.ColOperator, incident.ColNarrative:
		return string(col)
	}
	return ""
}
