package driver

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// soilFullScale is the probe supply voltage: a fully saturated probe drives
// the ADC input to the supply rail.
const soilFullScale = 3300 * physic.MilliVolt

var soilChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// SoilProbe reads a resistive soil moisture probe through one channel of an
// ADS1115 analog-to-digital converter.
type SoilProbe struct {
	pin ads1x15.PinADC
}

// NewSoilProbe creates a probe on the given ADC channel (0-3).
func NewSoilProbe(bus i2c.Bus, channel int) (*SoilProbe, error) {
	if channel < 0 || channel >= len(soilChannels) {
		return nil, fmt.Errorf("invalid ADC channel %d", channel)
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("creating ADS1115 device: %w", err)
	}

	pin, err := adc.PinForChannel(soilChannels[channel], soilFullScale, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("configuring ADC channel %d: %w", channel, err)
	}

	return &SoilProbe{pin: pin}, nil
}

// ReadFraction reads the probe as a fraction of full scale in [0, 1].
func (s *SoilProbe) ReadFraction() (float64, error) {
	sample, err := s.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("reading ADC: %w", err)
	}

	fraction := float64(sample.V) / float64(soilFullScale)
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	return fraction, nil
}

// Close releases the ADC pin.
func (s *SoilProbe) Close() error {
	return s.pin.Halt()
}
