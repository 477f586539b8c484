package sensor

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/telemetry"
)

// MaxStaleCycles is the default number of consecutive missed reads after
// which a carried-forward value is flagged stale.
const MaxStaleCycles = 5

// bounds is the physically plausible range for a normalized field. Fresh
// values outside the range are clamped to the nearest edge and flagged
// suspect instead of being published as-is.
type bounds struct {
	min, max float64
}

var (
	ambientTempBounds  = bounds{-40, 80} // DHT-class sensor envelope
	humidityBounds     = bounds{0, 100}
	soilMoistureBounds = bounds{0, 100}
	soilTempBounds     = bounds{-40, 125}
	longitudeBounds    = bounds{-180, 180}
	latitudeBounds     = bounds{-90, 90}
)

// Sources bundles the collaborator instances the aggregator polls each
// cycle. All fields must be non-nil.
type Sources struct {
	Power        PowerSource
	BoardThermal BoardThermalSource
	Ambient      AmbientEnvSource
	SoilMoisture SoilMoistureSource
	Position     PositionSource
}

// Defaults are the startup values published for each field until its source
// produces the first fresh reading.
type Defaults struct {
	AmbientTemp  float64
	Humidity     float64
	SoilMoisture float64
	SoilTemp     float64
	Longitude    float64
	Latitude     float64
}

// WithLogger sets the logger for the aggregator.
func WithLogger(logger *slog.Logger) func(*Aggregator) {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMaxStaleCycles sets the consecutive-miss threshold after which a
// carried-forward reading is flagged stale.
func WithMaxStaleCycles(cycles int) func(*Aggregator) {
	return func(a *Aggregator) {
		a.maxStaleCycles = cycles
	}
}

// WithDefaults sets the startup values used before the first fresh reading.
func WithDefaults(d Defaults) func(*Aggregator) {
	return func(a *Aggregator) {
		a.record.AmbientTemp.Value = d.AmbientTemp
		a.record.Humidity.Value = d.Humidity
		a.record.SoilMoisture.Value = d.SoilMoisture
		a.record.SoilTemp.Value = d.SoilTemp
		a.record.Longitude.Value = d.Longitude
		a.record.Latitude.Value = d.Latitude
	}
}

// Aggregator produces one fully populated telemetry record per invocation.
// A source that fails to deliver leaves its field at the previous cycle's
// value with the reading's age incremented, so every cycle still publishes
// a complete record.
type Aggregator struct {
	sources Sources

	windSpeed      float64 // configured constant, no live sensor exists
	maxStaleCycles int
	logger         *slog.Logger

	record  telemetry.Record // carry-forward state between cycles
	lastFix Fix              // full GGA fix retained for future use
	voltage telemetry.Reading
}

// NewAggregator creates an aggregator for the given device identity and
// collaborator set. windSpeed is the placeholder constant published until a
// real wind sensor exists.
func NewAggregator(deviceID string, windSpeed float64, sources Sources, options ...func(*Aggregator)) *Aggregator {
	a := Aggregator{
		sources:        sources,
		windSpeed:      windSpeed,
		maxStaleCycles: MaxStaleCycles,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
	a.record.DeviceID = deviceID

	for _, option := range options {
		option(&a)
	}

	return &a
}

// Sample polls every source once and returns the resulting record. It never
// fails: per-source errors degrade the corresponding field instead of
// aborting the cycle.
func (a *Aggregator) Sample() *telemetry.Record {
	// The voltage is not part of the published record, but the power-sense
	// path is exercised every cycle regardless.
	if v, err := a.sources.Power.ReadVoltage(); err != nil {
		a.voltage.Miss(a.maxStaleCycles)
		a.logger.Warn("power voltage read failed", slog.Any("error", err), slog.Int("age", a.voltage.Age))
	} else {
		a.voltage.Fresh(v, false)
	}

	boardTemp, err := a.sources.BoardThermal.ReadTemperatureCelsius()
	a.observe("soil_temp", &a.record.SoilTemp, boardTemp, soilTempBounds, err)

	fahrenheit, humidity, err := a.sources.Ambient.ReadAmbient()
	a.observe("ambient_temp", &a.record.AmbientTemp, FahrenheitToCelsius(fahrenheit), ambientTempBounds, err)
	a.observe("humidity", &a.record.Humidity, float64(humidity), humidityBounds, err)

	fraction, err := a.sources.SoilMoisture.ReadFraction()
	a.observe("soil_moisture", &a.record.SoilMoisture, fraction*100, soilMoistureBounds, err)

	a.record.WindSpeed.Fresh(a.windSpeed, false)

	fix, err := a.sources.Position.ReadFix()
	if err == nil {
		a.lastFix = fix
	}
	a.observe("longitude", &a.record.Longitude, fix.Longitude, longitudeBounds, err)
	a.observe("latitude", &a.record.Latitude, fix.Latitude, latitudeBounds, err)

	a.record.Timestamp = time.Now().UTC()

	record := a.record
	return &record
}

// LastFix returns the most recent complete GPS fix, valid or not.
func (a *Aggregator) LastFix() Fix {
	return a.lastFix
}

// Voltage returns the most recent power subsystem reading.
func (a *Aggregator) Voltage() telemetry.Reading {
	return a.voltage
}

// observe folds one source result into a reading: fresh values are bounds
// checked and stored, errors carry the previous value forward.
func (a *Aggregator) observe(field string, r *telemetry.Reading, value float64, b bounds, err error) {
	if err != nil {
		r.Miss(a.maxStaleCycles)
		a.logger.Warn("sensor read failed, carrying previous value",
			slog.String("field", field),
			slog.Int("age", r.Age),
			slog.Bool("stale", r.Stale),
			slog.Any("error", err))
		return
	}

	// NaN compares false against both bounds and would pass the clamp
	// straight onto the wire, breaking the fixed numeric format.
	if math.IsNaN(value) {
		r.Miss(a.maxStaleCycles)
		a.logger.Warn("sensor returned non-finite value, carrying previous value",
			slog.String("field", field),
			slog.Int("age", r.Age),
			slog.Bool("stale", r.Stale))
		return
	}

	clamped := value
	if clamped < b.min {
		clamped = b.min
	} else if clamped > b.max {
		clamped = b.max
	}

	if clamped != value {
		a.logger.Warn("sensor value out of range, clamped",
			slog.String("field", field),
			slog.Float64("value", value),
			slog.Float64("clamped", clamped))
	}

	r.Fresh(clamped, clamped != value)
}
