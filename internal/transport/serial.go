package transport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Serial transmits telemetry lines over a UART. Writes block until the line
// is handed to the port; there is no acknowledgment from the far end.
type Serial struct {
	port io.WriteCloser
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(device string, baudRate int) (*Serial, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", device, err)
	}

	return &Serial{port: port}, nil
}

// NewSerial wraps an already-open writer, letting tests and alternative
// links reuse the transport.
func NewSerial(port io.WriteCloser) *Serial {
	return &Serial{port: port}
}

// SendLine writes the line to the port. The line is expected to already
// carry its CRLF terminator.
func (s *Serial) SendLine(line string) error {
	if _, err := s.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("writing to serial port: %w", err)
	}
	return nil
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}
