package driver

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// EnvSensor wraps a BMxx80-class environmental sensor. It serves two
// collaborator contracts: the board thermal source (the sensor sits on the
// board, its temperature stands in for soil temperature until a dedicated
// probe exists) and the ambient source with its DHT-era integer contract.
type EnvSensor struct {
	dev *bmxx80.Dev
}

// NewEnvSensor creates an environmental sensor at the given I²C address,
// typically 0x76 or 0x77.
func NewEnvSensor(bus i2c.Bus, address uint16) (*EnvSensor, error) {
	dev, err := bmxx80.NewI2C(bus, address, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("creating BMxx80 device: %w", err)
	}

	return &EnvSensor{dev: dev}, nil
}

// ReadTemperatureCelsius senses the on-board temperature.
func (s *EnvSensor) ReadTemperatureCelsius() (float64, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return 0, fmt.Errorf("sensing BMxx80: %w", err)
	}

	return env.Temperature.Celsius(), nil
}

// ReadAmbient senses ambient temperature and humidity, reported as integer
// Fahrenheit and integer percent to match the ambient source contract.
func (s *EnvSensor) ReadAmbient() (int, int, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return 0, 0, fmt.Errorf("sensing BMxx80: %w", err)
	}

	fahrenheit := int(math.Round(env.Temperature.Celsius()*1.8 + 32))

	// Humidity is fixed point at 0.00001 %rH resolution.
	humidity := int(math.Round(float64(env.Humidity) / 100000.0))

	return fahrenheit, humidity, nil
}

// Close halts the sensor.
func (s *EnvSensor) Close() error {
	return s.dev.Halt()
}
