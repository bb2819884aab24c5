// Package incident defines the canonical incident shape shared by every
// source table, plus the classification, assignment and airport records
// joined onto it.
package incident

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUID is returned when a UID does not carry a known source prefix.
var ErrInvalidUID = errors.New("unsupported uid prefix")

// Tag identifies the source table an incident came from. It is the UID
// prefix before the first underscore.
type Tag string

// Known source tags.
const (
	TagASN  Tag = "asn"
	TagASRS Tag = "asrs"
	TagPCI  Tag = "pci"
)

// Tags lists every known source tag.
var Tags = []Tag{TagASN, TagASRS, TagPCI}

// ParseUID returns the source tag encoded in uid.
func ParseUID(uid string) (Tag, error) {
	prefix, _, found := strings.Cut(uid, "_")
	if !found {
		return "", fmt.Errorf("%w %q: expected one of asn_, asrs_, pci_", ErrInvalidUID, uid)
	}
	switch tag := Tag(prefix); tag {
	case TagASN, TagASRS, TagPCI:
		return tag, nil
	}
	return "", fmt.Errorf("%w %q: expected one of asn_, asrs_, pci_", ErrInvalidUID, prefix)
}

// Column names a field of the canonical incident row. Only these values may
// ever be interpolated into SQL as identifiers.
type Column string

// Canonical columns, in union order.
const (
	ColUID          Column = "uid"
	ColOriginDate   Column = "origin_date"
	ColPhase        Column = "phase"
	ColAircraftType Column = "aircraft_type"
	ColLocation     Column = "location"
	ColOperator     Column = "operator"
	ColNarrative    Column = "narrative"

	// ColFinalCategory is not part of any source table. It is only
	// available once classification_results has been joined in.
	ColFinalCategory Column = "final_category"
)

// Columns is the canonical column set every source must provide.
var Columns = []Column{
	ColUID,
	ColOriginDate,
	ColPhase,
	ColAircraftType,
	ColLocation,
	ColOperator,
	ColNarrative,
}

// Incident is one normalized row from any source table.
type Incident struct {
	UID          string  `json:"uid"`
	OriginDate   *string `json:"date"` // YYYY-MM-DD, nil when unparsable
	Phase        *string `json:"phase"`
	AircraftType *string `json:"aircraft_type"`
	Location     *string `json:"location"`
	Operator     *string `json:"operator"`
	Narrative    *string `json:"narrative"`
}

// Tag returns the source tag of the incident. Incidents loaded from the
// store always carry a valid prefix.
func (i *Incident) Tag() Tag {
	tag, _ := ParseUID(i.UID)
	return tag
}

// ClassificationResult is the output of the external classifier pipeline
// for one incident. Read-only here.
type ClassificationResult struct {
	ID        int64  `json:"id"`
	SourceUID string `json:"source_uid"`

	Classifier1Category   *string  `json:"classifier1_category"`
	Classifier1Confidence *float64 `json:"classifier1_confidence"`
	Classifier1Reasoning  *string  `json:"classifier1_reasoning"`
	Classifier2Category   *string  `json:"classifier2_category"`
	Classifier2Confidence *float64 `json:"classifier2_confidence"`
	Classifier2Reasoning  *string  `json:"classifier2_reasoning"`
	Classifier3Category   *string  `json:"classifier3_category"`
	Classifier3Confidence *float64 `json:"classifier3_confidence"`
	Classifier3Reasoning  *string  `json:"classifier3_reasoning"`

	FinalCategory    *string  `json:"final_category"`
	FinalConfidence  *float64 `json:"final_confidence"`
	ProcessingTimeMS *int64   `json:"processing_time_ms"`
	ProcessedAt      *string  `json:"processed_at"` // RFC 3339
}

// Airport is reference data from airport_location. ICAOCode is always
// lower-cased.
type Airport struct {
	ICAOCode string   `json:"icao_code"`
	IATACode *string  `json:"iata_code"`
	Name     *string  `json:"name"`
	City     *string  `json:"city"`
	Country  *string  `json:"country"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// HasCoordinates reports whether the airport can be placed on a map.
func (a *Airport) HasCoordinates() bool {
	return a.Lat != nil && a.Lon != nil
}

// NormaliseICAO lower-cases and trims an airport code for lookups.
func NormaliseICAO(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
