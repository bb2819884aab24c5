package evaluation

// Category is one ICAO occurrence category offered to evaluators.
type Category struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var taxonomy = []Category{
	{"ADRM", "Aerodrome", "Occurrences involving aerodrome design, service or functionality issues."},
	{"AMAN", "Abrupt maneuver", "The intentional abrupt maneuvering of the aircraft by the flight crew."},
	{"ARC", "Abnormal runway contact", "Any landing or takeoff involving abnormal runway or landing surface contact."},
	{"ATM", "ATM/CNS", "Occurrences involving Air Traffic Management or Communication, Navigation and Surveillance service issues."},
	{"BIRD", "Birdstrike", "Occurrences involving collisions or near collisions with birds."},
	{"CABIN", "Cabin safety events", "Miscellaneous occurrences in the passenger cabin of transport category aircraft."},
	{"CFIT", "Controlled flight into or toward terrain", "In-flight collision or near collision with terrain, water or obstacle without indication of loss of control."},
	{"FUEL", "Fuel related", "One or more powerplants experienced reduced or no power output due to fuel exhaustion, starvation or contamination."},
	{"GCOL", "Ground collision", "Collision while taxiing to or from a runway in use."},
	{"ICE", "Icing", "Accumulation of snow, ice, freezing rain or frost on aircraft surfaces that adversely affects aircraft control or performance."},
	{"LOC-G", "Loss of control - ground", "Loss of aircraft control while the aircraft is on the ground."},
	{"LOC-I", "Loss of control - inflight", "Loss of aircraft control while or deviation from intended flightpath in flight."},
	{"LOLI", "Loss of lifting conditions en-route", "Landing en-route due to loss of lifting conditions."},
	{"MAC", "Airprox/TCAS alert/loss of separation/near midair collisions/midair collisions", "Airprox, TCAS alerts, loss of separation as well as near collisions or collisions between aircraft in flight."},
	{"RAMP", "Ground handling", "Occurrences during or as a result of ground handling operations."},
	{"RE", "Runway excursion", "A veer off or overrun off the runway surface."},
	{"RI", "Runway incursion", "Any occurrence at an aerodrome involving the incorrect presence of an aircraft, vehicle or person on the protected area of a surface designated for the landing and take-off of aircraft."},
	{"SCF-NP", "System/component failure or malfunction (non-powerplant)", "Failure or malfunction of an aircraft system or component other than the powerplant."},
	{"SCF-PP", "Powerplant failure or malfunction", "Failure or malfunction of an aircraft system or component related to the powerplant."},
	{"TURB", "Turbulence encounter", "In-flight turbulence encounter."},
	{"UIMC", "Unintended flight in IMC", "Unintended flight in instrument meteorological conditions."},
	{"WSTRW", "Windshear or thunderstorm", "Flight into windshear or thunderstorm."},
	{"OTHR", "Other", "Any occurrence not covered under another category."},
	{"UNK", "Unknown or undetermined", "Insufficient information exists to categorize the occurrence."},
}

// Taxonomy returns the categories shown to evaluators. Submissions are not
// restricted to these codes.
func Taxonomy() []Category {
	out := make([]Category, len(taxonomy))
	copy(out, taxonomy)
	return out
}
