package driver

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ina219"
)

// PowerMonitor adapts an INA219 bus monitor to the power source contract.
type PowerMonitor struct {
	dev *ina219.Dev
}

// NewPowerMonitor creates a power monitor on the given bus. A zero address
// uses the INA219 default (0x40).
func NewPowerMonitor(bus i2c.Bus, address int) (*PowerMonitor, error) {
	opts := ina219.DefaultOpts
	if address != 0 {
		opts.Address = address
	}

	dev, err := ina219.New(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("creating INA219 device: %w", err)
	}

	return &PowerMonitor{dev: dev}, nil
}

// ReadVoltage senses the bus voltage in volts.
func (p *PowerMonitor) ReadVoltage() (float64, error) {
	measurement, err := p.dev.Sense()
	if err != nil {
		return 0, fmt.Errorf("sensing INA219: %w", err)
	}

	return float64(measurement.Voltage) / float64(physic.Volt), nil
}
