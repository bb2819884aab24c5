package incident

// JoinedRecord is a classification result flattened together with the
// normalized origin record it was produced for. Origin fields carry the
// origin_ prefix so they cannot collide with classification fields.
type JoinedRecord struct {
	ClassificationResult

	OriginUID          *string `json:"origin_uid"`
	OriginDate         *string `json:"origin_date"`
	OriginPhase        *string `json:"origin_phase"`
	OriginAircraftType *string `json:"origin_aircraft_type"`
	OriginLocation     *string `json:"origin_location"`
	OriginOperator     *string `json:"origin_operator"`
	OriginNarrative    *string `json:"origin_narrative"`
}

// Join builds a JoinedRecord. Either side may be nil.
func Join(c *ClassificationResult, o *Incident) JoinedRecord {
	var jr JoinedRecord
	if c != nil {
		jr.ClassificationResult = *c
	}
	if o != nil {
		uid := o.UID
		jr.OriginUID = &uid
		jr.OriginDate = o.OriginDate
		jr.OriginPhase = o.Phase
		jr.OriginAircraftType = o.AircraftType
		jr.OriginLocation = o.Location
		jr.OriginOperator = o.Operator
		jr.OriginNarrative = o.Narrative
		if c == nil {
			jr.SourceUID = o.UID
		}
	}
	return jr
}
