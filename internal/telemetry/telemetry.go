package telemetry

import (
	"time"
)

// Reading is a single normalized sensor value with explicit validity state.
// The wire format has no encoding for "unknown", so a Reading always carries
// a number: the startup default until the first fresh value, then the most
// recent fresh value. The flags make staleness observable instead of silent.
type Reading struct {
	Value   float64 // Normalized value in the field's canonical unit
	Valid   bool    // At least one fresh value has been observed
	Suspect bool    // Last fresh value was clamped to its plausibility range
	Stale   bool    // Source has missed enough consecutive cycles to distrust Value
	Age     int     // Cycles since the last fresh value (0 = fresh this cycle)
}

// Fresh replaces the reading with a value observed this cycle.
func (r *Reading) Fresh(value float64, suspect bool) {
	r.Value = value
	r.Valid = true
	r.Suspect = suspect
	r.Stale = false
	r.Age = 0
}

// Miss records a cycle in which the source produced no fresh value. The
// previous value is carried forward; the reading becomes stale once the
// number of consecutive misses reaches maxStale.
func (r *Reading) Miss(maxStale int) {
	r.Age++
	if maxStale > 0 && r.Age >= maxStale {
		r.Stale = true
	}
}

// Record is the canonical per-cycle telemetry snapshot. One instance is
// populated per sampling cycle and consumed once by the encoder.
type Record struct {
	Timestamp    time.Time // When this cycle's sampling completed
	DeviceID     string    // Static device identity
	AmbientTemp  Reading   // Ambient air temperature in °C
	Humidity     Reading   // Relative humidity in %
	SoilMoisture Reading   // Soil moisture in % of full scale
	SoilTemp     Reading   // °C; mirrors the board thermal sensor, no dedicated probe exists
	WindSpeed    Reading   // m/s; placeholder constant, no live sensor
	Longitude    Reading   // Signed decimal degrees
	Latitude     Reading   // Signed decimal degrees
}
