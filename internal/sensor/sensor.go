// Package sensor defines the capability contracts for the onboard sensor
// collaborators and the aggregator that folds one reading from each source
// into a telemetry record per sampling cycle.
package sensor

// PowerSource senses the bus/battery voltage from the power subsystem.
// The reading is known to be unreliable on some boards; callers must
// tolerate errors without aborting their cycle.
type PowerSource interface {
	ReadVoltage() (float64, error)
}

// BoardThermalSource reads the board's internal temperature in °C.
type BoardThermalSource interface {
	ReadTemperatureCelsius() (float64, error)
}

// AmbientEnvSource reads the ambient digital sensor. Matching the DHT-class
// part it models, the contract is integer Fahrenheit and integer relative
// humidity percent; unit normalization is the aggregator's job.
type AmbientEnvSource interface {
	ReadAmbient() (fahrenheit, humidityPct int, err error)
}

// SoilMoistureSource reads the soil probe through the analog input as a
// fraction of full scale in [0, 1].
type SoilMoistureSource interface {
	ReadFraction() (float64, error)
}

// PositionSource reads one GGA-derived GPS fix. Latitude and longitude are
// already signed per hemisphere by the source.
type PositionSource interface {
	ReadFix() (Fix, error)
}

// Fix is a single GPS fix with the full GGA field set. Only latitude and
// longitude are projected into the telemetry record; the remaining fields
// are retained for future use and are not part of the published contract.
type Fix struct {
	Time          float64 // UTC time of fix as HHMMSS.sss
	Latitude      float64 // Signed decimal degrees, negative south
	LatHemisphere byte    // 'N' or 'S' as reported
	Longitude     float64 // Signed decimal degrees, negative west
	LonHemisphere byte    // 'E' or 'W' as reported
	Quality       int     // GGA fix quality (0 = invalid, 1 = GPS, 2 = DGPS, ...)
	Satellites    int     // Number of satellites in use
	HDOP          float64 // Horizontal dilution of precision
	Altitude      float64 // Antenna altitude above mean sea level
	AltitudeUnit  byte    // Altitude unit as reported, 'M' for meters
	Valid         bool    // True when the fix quality indicates usable data
}

// FahrenheitToCelsius converts an integer Fahrenheit reading, as reported by
// the ambient digital sensor, to Celsius.
func FahrenheitToCelsius(fahrenheit int) float64 {
	return (float64(fahrenheit) - 32) / 1.8
}
