// Package driver provides the concrete hardware implementations of the
// sensor collaborator contracts: the INA219 power monitor, a BMxx80-class
// environmental sensor, an ADS1115-backed soil moisture probe and a
// GGA-parsing GPS receiver.
package driver

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenI2C initializes the periph host and opens the named I²C bus. An empty
// name selects the first available bus, usually /dev/i2c-1.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing periph host: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening I2C bus %q: %w", name, err)
	}

	return bus, nil
}
