package query

import (
	"fmt"

	"aviation_incidents/internal/incident"
)

// Dimension is a group-by key. Only the values declared here can reach
// the SQL text.
type Dimension string

const (
	DimOperator      Dimension = "operator"
	DimPhase         Dimension = "phase"
	DimAircraftType  Dimension = "aircraft_type"
	DimLocation      Dimension = "location"
	DimFinalCategory Dimension = "final_category"

	// Time buckets over origin_date.
	DimYear  Dimension = "year"
	DimMonth Dimension = "month"
)

var categorical = map[Dimension]incident.Column{
	DimOperator:      incident.ColOperator,
	DimPhase:         incident.ColPhase,
	DimAircraftType:  incident.ColAircraftType,
	DimLocation:      incident.ColLocation,
	DimFinalCategory: incident.ColFinalCategory,
}

// ParseCategory validates a caller-chosen categorical dimension.
func ParseCategory(s string) (Dimension, error) {
	d := Dimension(s)
	if _, ok := categorical[d]; !ok {
		return "", invalidDimension("category", s)
	}
	return d, nil
}

// BucketDimension returns the time dimension for a bucket.
func BucketDimension(b Bucket) Dimension {
	if b == BucketYear {
		return DimYear
	}
	return DimMonth
}

func (d Dimension) bucket() (Bucket, bool) {
	switch d {
	case DimYear:
		return BucketYear, true
	case DimMonth:
		return BucketMonth, true
	}
	return "", false
}

func (d Dimension) valid() bool {
	if _, ok := categorical[d]; ok {
		return true
	}
	_, ok := d.bucket()
	return ok
}

func invalidDimension(param, value string) error {
	return fmt.Errorf("%w: unsupported %s %q", ErrInvalidDimension, param, value)
}
