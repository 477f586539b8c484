// Package transport provides the transmit-only line transports the hub
// publishes telemetry through: the primary UART link and an optional MQTT
// mirror. Transmission is fire-and-forget; errors are reported to the
// caller for logging but carry no retry semantics.
package transport

import (
	"errors"
)

// Line is a transmit-only, blocking line transport with no acknowledgment
// and no backpressure signal.
type Line interface {
	SendLine(line string) error
	Close() error
}

// Fanout sends every line to each underlying transport. A failing transport
// does not prevent delivery to the others.
type Fanout struct {
	transports []Line
}

// NewFanout creates a fanout over the given transports.
func NewFanout(transports ...Line) *Fanout {
	return &Fanout{transports: transports}
}

// SendLine delivers the line to all transports and joins their errors.
func (f *Fanout) SendLine(line string) error {
	var errs []error
	for _, t := range f.transports {
		if err := t.SendLine(line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all underlying transports.
func (f *Fanout) Close() error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
