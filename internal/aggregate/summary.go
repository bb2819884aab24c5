package aggregate

import (
	"strings"

	"aviation_incidents/internal/incident"
)

// Summary describes a set of origin records fetched by UID.
type Summary struct {
	TotalIncidents      int              `json:"total_incidents"`
	UniqueOperators     int              `json:"unique_operators"`
	UniqueAircraftTypes int              `json:"unique_aircraft_types"`
	PhaseCounts         map[string]int64 `json:"phase_counts"`
	OperatorCounts      map[string]int64 `json:"operator_counts"`
}

// Summarise counts incidents by phase and operator. NULL phases and
// operators are not counted.
func Summarise(incidents []incident.Incident) Summary {
	s := Summary{
		TotalIncidents: len(incidents),
		PhaseCounts:    make(map[string]int64),
		OperatorCounts: make(map[string]int64),
	}
	types := make(map[string]bool)
	for _, inc := range incidents {
		if inc.Phase != nil {
			s.PhaseCounts[*inc.Phase]++
		}
		if inc.Operator != nil {
			s.OperatorCounts[*inc.Operator]++
		}
		if inc.AircraftType != nil {
			types[*inc.AircraftType] = true
		}
	}
	s.UniqueOperators = len(s.OperatorCounts)
	s.UniqueAircraftTypes = len(types)
	return s
}

// Severity levels derived from a classification.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var severityKeywords = []struct {
	level    string
	keywords []string
}{
	{SeverityLow, []string{"minor", "low", "routine"}},
	{SeverityMedium, []string{"medium", "moderate", "warning"}},
	{SeverityHigh, []string{"high", "severe", "critical", "accident", "incident"}},
}

// DeriveSeverity maps a final category to a severity by keyword. Levels
// are checked from low to high and the first match wins; anything else is
// medium.
func DeriveSeverity(category *string) string {
	if category == nil {
		return SeverityMedium
	}
	c := strings.ToLower(*category)
	for _, sk := range severityKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(c, kw) {
				return sk.level
			}
		}
	}
	return SeverityMedium
}
