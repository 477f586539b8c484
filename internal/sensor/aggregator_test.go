package sensor

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/telemetry"
)

var errNotResponding = errors.New("sensor not responding")

type fakePower struct {
	voltage float64
	err     error
}

func (f *fakePower) ReadVoltage() (float64, error) { return f.voltage, f.err }

type fakeThermal struct {
	celsius float64
	err     error
}

func (f *fakeThermal) ReadTemperatureCelsius() (float64, error) { return f.celsius, f.err }

type fakeAmbient struct {
	fahrenheit int
	humidity   int
	err        error
}

func (f *fakeAmbient) ReadAmbient() (int, int, error) { return f.fahrenheit, f.humidity, f.err }

type fakeSoil struct {
	fraction float64
	err      error
}

func (f *fakeSoil) ReadFraction() (float64, error) { return f.fraction, f.err }

type fakePosition struct {
	fix Fix
	err error
}

func (f *fakePosition) ReadFix() (Fix, error) { return f.fix, f.err }

// testSources returns a set of healthy fakes matching the example scenario
// from the wire format documentation.
func testSources() (Sources, *fakePower, *fakeThermal, *fakeAmbient, *fakeSoil, *fakePosition) {
	power := &fakePower{voltage: 3.7}
	thermal := &fakeThermal{celsius: 22.1}
	ambient := &fakeAmbient{fahrenheit: 77, humidity: 60}
	soil := &fakeSoil{fraction: 0.458}
	position := &fakePosition{fix: Fix{
		Time:          123519.00,
		Latitude:      37.7749,
		LatHemisphere: 'N',
		Longitude:     -122.4194,
		LonHemisphere: 'W',
		Quality:       1,
		Satellites:    8,
		HDOP:          0.9,
		Altitude:      15.2,
		AltitudeUnit:  'M',
		Valid:         true,
	}}

	return Sources{
		Power:        power,
		BoardThermal: thermal,
		Ambient:      ambient,
		SoilMoisture: soil,
		Position:     position,
	}, power, thermal, ambient, soil, position
}

func TestAggregator_EndToEndLine(t *testing.T) {
	sources, _, _, _, _, _ := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources)

	// 77°F converts to 25.00°C and the integer 60% humidity carries
	// through as 60.00; both keep two fraction digits on the wire.
	record := agg.Sample()

	var enc telemetry.Encoder
	want := "device_id=MIZU_0001,ambient_temp=25.00,humidity=60.00,soil_moisture=45.8," +
		"soil_temp=22.1,wind_speed=5.2,longitude=-122.419400,latitude=37.774900\r\n"
	if got := enc.Encode(record); got != want {
		t.Errorf("Encode(Sample()) = %q, want %q", got, want)
	}
}

func TestFahrenheitToCelsius(t *testing.T) {
	tests := []struct {
		fahrenheit int
		want       float64
	}{
		{77, 25},
		{32, 0},
		{212, 100},
		{-40, -40},
	}

	for _, tt := range tests {
		if got := FahrenheitToCelsius(tt.fahrenheit); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FahrenheitToCelsius(%d) = %v, want %v", tt.fahrenheit, got, tt.want)
		}
	}
}

func TestAggregator_SoilMoistureScaling(t *testing.T) {
	sources, _, _, _, soil, _ := testSources()
	soil.fraction = 0.458

	agg := NewAggregator("MIZU_0001", 5.2, sources)
	record := agg.Sample()

	if got := record.SoilMoisture.Value; math.Abs(got-45.8) > 1e-9 {
		t.Errorf("SoilMoisture.Value = %v, want 45.8", got)
	}
}

func TestAggregator_WindSpeedIsConstant(t *testing.T) {
	sources, power, thermal, ambient, soil, position := testSources()
	power.err = errNotResponding
	thermal.err = errNotResponding
	ambient.err = errNotResponding
	soil.err = errNotResponding
	position.err = errNotResponding

	agg := NewAggregator("MIZU_0001", 5.2, sources)
	for i := 0; i < 3; i++ {
		record := agg.Sample()
		if record.WindSpeed.Value != 5.2 || !record.WindSpeed.Valid {
			t.Fatalf("cycle %d: WindSpeed = %+v, want constant 5.2", i, record.WindSpeed)
		}
	}
}

func TestAggregator_StartupDefaults(t *testing.T) {
	sources, power, thermal, ambient, soil, position := testSources()
	power.err = errNotResponding
	thermal.err = errNotResponding
	ambient.err = errNotResponding
	soil.err = errNotResponding
	position.err = errNotResponding

	agg := NewAggregator("MIZU_0001", 5.2, sources, WithDefaults(Defaults{
		AmbientTemp:  20,
		Humidity:     50,
		SoilMoisture: 30,
		SoilTemp:     15,
		Longitude:    139.7675,
		Latitude:     35.711,
	}))

	record := agg.Sample()

	if record.AmbientTemp.Value != 20 || record.AmbientTemp.Valid {
		t.Errorf("AmbientTemp = %+v, want startup default 20, not valid", record.AmbientTemp)
	}
	if record.Humidity.Value != 50 {
		t.Errorf("Humidity.Value = %v, want startup default 50", record.Humidity.Value)
	}
	if record.Latitude.Value != 35.711 || record.Longitude.Value != 139.7675 {
		t.Errorf("position = (%v, %v), want startup defaults", record.Latitude.Value, record.Longitude.Value)
	}
}

func TestAggregator_CarryForwardOnFailure(t *testing.T) {
	sources, _, thermal, _, _, _ := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources)

	first := agg.Sample()
	if first.SoilTemp.Value != 22.1 || !first.SoilTemp.Valid {
		t.Fatalf("first cycle SoilTemp = %+v, want fresh 22.1", first.SoilTemp)
	}

	thermal.err = errNotResponding
	second := agg.Sample()

	if second.SoilTemp.Value != 22.1 {
		t.Errorf("SoilTemp.Value = %v after failure, want carried 22.1", second.SoilTemp.Value)
	}
	if second.SoilTemp.Age != 1 {
		t.Errorf("SoilTemp.Age = %d after one miss, want 1", second.SoilTemp.Age)
	}
	if second.SoilTemp.Stale {
		t.Error("SoilTemp stale after a single miss")
	}

	thermal.err = nil
	thermal.celsius = 23.4
	third := agg.Sample()
	if third.SoilTemp.Value != 23.4 || third.SoilTemp.Age != 0 {
		t.Errorf("SoilTemp = %+v after recovery, want fresh 23.4", third.SoilTemp)
	}
}

func TestAggregator_StaleAfterThreshold(t *testing.T) {
	sources, _, _, ambient, _, _ := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources, WithMaxStaleCycles(3))

	agg.Sample() // seed with fresh values
	ambient.err = errNotResponding

	var record *telemetry.Record
	for i := 0; i < 3; i++ {
		record = agg.Sample()
	}

	if !record.AmbientTemp.Stale || !record.Humidity.Stale {
		t.Errorf("readings not stale after 3 misses: ambient=%+v humidity=%+v",
			record.AmbientTemp, record.Humidity)
	}
	if got := record.AmbientTemp.Value; math.Abs(got-25) > 1e-9 {
		t.Errorf("stale AmbientTemp.Value = %v, want carried 25", got)
	}
}

func TestAggregator_OutOfRangeClamped(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeAmbient, *fakeSoil)
		check func(*testing.T, *telemetry.Record)
	}{
		{
			name:  "humidity above range",
			setup: func(a *fakeAmbient, _ *fakeSoil) { a.humidity = 120 },
			check: func(t *testing.T, r *telemetry.Record) {
				if r.Humidity.Value != 100 || !r.Humidity.Suspect {
					t.Errorf("Humidity = %+v, want clamped 100 and suspect", r.Humidity)
				}
			},
		},
		{
			name:  "soil fraction below range",
			setup: func(_ *fakeAmbient, s *fakeSoil) { s.fraction = -0.1 },
			check: func(t *testing.T, r *telemetry.Record) {
				if r.SoilMoisture.Value != 0 || !r.SoilMoisture.Suspect {
					t.Errorf("SoilMoisture = %+v, want clamped 0 and suspect", r.SoilMoisture)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, _, _, ambient, soil, _ := testSources()
			tt.setup(ambient, soil)

			agg := NewAggregator("MIZU_0001", 5.2, sources)
			tt.check(t, agg.Sample())
		})
	}
}

func TestAggregator_NonFiniteValuesNeverReachTheWire(t *testing.T) {
	sources, _, thermal, _, soil, position := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources)

	agg.Sample() // seed with fresh values

	position.fix.Latitude = math.NaN()
	thermal.celsius = math.NaN()
	soil.fraction = math.Inf(1)
	record := agg.Sample()

	if record.Latitude.Value != 37.7749 || record.Latitude.Age != 1 {
		t.Errorf("Latitude = %+v after NaN fix, want carried 37.7749 with age 1", record.Latitude)
	}
	if record.SoilTemp.Value != 22.1 || record.SoilTemp.Age != 1 {
		t.Errorf("SoilTemp = %+v after NaN reading, want carried 22.1 with age 1", record.SoilTemp)
	}
	// Infinities fall outside the plausibility range and clamp to its edge.
	if record.SoilMoisture.Value != 100 || !record.SoilMoisture.Suspect {
		t.Errorf("SoilMoisture = %+v after +Inf reading, want clamped 100 and suspect", record.SoilMoisture)
	}

	var enc telemetry.Encoder
	line := enc.Encode(record)
	if strings.Contains(line, "NaN") || strings.Contains(line, "Inf") {
		t.Errorf("encoded line %q carries a non-finite value", line)
	}
}

func TestAggregator_RetainsLastFix(t *testing.T) {
	sources, _, _, _, _, position := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources)

	agg.Sample()
	if got := agg.LastFix(); got.Satellites != 8 || !got.Valid {
		t.Fatalf("LastFix() = %+v, want the seeded fix", got)
	}

	position.err = errNotResponding
	record := agg.Sample()

	if got := agg.LastFix(); got.Satellites != 8 {
		t.Errorf("LastFix() = %+v after GPS failure, want retained fix", got)
	}
	if record.Latitude.Value != 37.7749 || record.Latitude.Age != 1 {
		t.Errorf("Latitude = %+v after GPS failure, want carried value with age 1", record.Latitude)
	}
}

func TestAggregator_VoltageReadEveryCycle(t *testing.T) {
	sources, power, _, _, _, _ := testSources()
	agg := NewAggregator("MIZU_0001", 5.2, sources)

	agg.Sample()
	if got := agg.Voltage(); got.Value != 3.7 || !got.Valid {
		t.Fatalf("Voltage() = %+v, want fresh 3.7", got)
	}

	power.err = errNotResponding
	record := agg.Sample()

	// A failed power read degrades only the internal voltage reading.
	if got := agg.Voltage(); got.Age != 1 {
		t.Errorf("Voltage().Age = %d after failure, want 1", got.Age)
	}
	if !record.AmbientTemp.Valid || record.AmbientTemp.Age != 0 {
		t.Errorf("AmbientTemp = %+v, power failure must not affect other fields", record.AmbientTemp)
	}
}
