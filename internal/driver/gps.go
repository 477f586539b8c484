package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/sensor"
)

// maxSentencesPerRead bounds how many non-GGA sentences a single ReadFix
// call will skip before giving up, so a chatty or misconfigured receiver
// cannot stall the sampling cycle forever.
const maxSentencesPerRead = 20

var (
	// ErrNotGGA is returned when a sentence is valid NMEA but not a GGA fix.
	ErrNotGGA = errors.New("not a GGA sentence")

	// ErrNoFix is returned when no GGA sentence was found within the scan budget.
	ErrNoFix = errors.New("no GGA sentence received")
)

// GPSReceiver reads GGA fixes from an NMEA sentence stream, typically a
// serial-attached GPS module.
type GPSReceiver struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewGPSReceiver creates a receiver reading from r.
func NewGPSReceiver(r io.Reader) *GPSReceiver {
	return &GPSReceiver{scanner: bufio.NewScanner(r)}
}

// OpenGPS opens the serial port of a GPS module and returns a receiver for it.
func OpenGPS(port string, baudRate int) (*GPSReceiver, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening GPS port %s: %w", port, err)
	}

	return &GPSReceiver{scanner: bufio.NewScanner(p), closer: p}, nil
}

// ReadFix scans the stream until the next GGA sentence and returns its fix.
func (g *GPSReceiver) ReadFix() (sensor.Fix, error) {
	for i := 0; i < maxSentencesPerRead && g.scanner.Scan(); i++ {
		line := strings.TrimSpace(g.scanner.Text())
		if line == "" {
			continue
		}

		fix, err := ParseGGA(line)
		if errors.Is(err, ErrNotGGA) {
			continue
		}
		return fix, err
	}

	if err := g.scanner.Err(); err != nil {
		return sensor.Fix{}, fmt.Errorf("reading GPS stream: %w", err)
	}
	return sensor.Fix{}, ErrNoFix
}

// Close closes the underlying serial port, if the receiver owns one.
func (g *GPSReceiver) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}

// ParseGGA parses one $--GGA sentence into a fix. Latitude and longitude are
// converted from NMEA ddmm.mmmm to signed decimal degrees, negative for the
// southern and western hemispheres. Sentences of other types return ErrNotGGA.
func ParseGGA(line string) (sensor.Fix, error) {
	var fix sensor.Fix

	if !strings.HasPrefix(line, "$") {
		return fix, fmt.Errorf("invalid NMEA sentence: missing '$'")
	}

	body, checksum, found := strings.Cut(line[1:], "*")
	if !found {
		return fix, fmt.Errorf("invalid NMEA sentence: missing checksum")
	}
	if err := verifyChecksum(body, checksum); err != nil {
		return fix, err
	}

	fields := strings.Split(body, ",")
	if !strings.HasSuffix(fields[0], "GGA") {
		return fix, ErrNotGGA
	}
	if len(fields) < 11 {
		return fix, fmt.Errorf("invalid GGA sentence: %d fields", len(fields))
	}

	var err error
	if fix.Time, err = parseOptionalFloat(fields[1]); err != nil {
		return fix, fmt.Errorf("invalid GGA time: %w", err)
	}

	if fix.Latitude, fix.LatHemisphere, err = parseCoordinate(fields[2], fields[3], 'S'); err != nil {
		return fix, fmt.Errorf("invalid GGA latitude: %w", err)
	}
	if fix.Longitude, fix.LonHemisphere, err = parseCoordinate(fields[4], fields[5], 'W'); err != nil {
		return fix, fmt.Errorf("invalid GGA longitude: %w", err)
	}

	if fix.Quality, err = parseOptionalInt(fields[6]); err != nil {
		return fix, fmt.Errorf("invalid GGA fix quality: %w", err)
	}
	if fix.Satellites, err = parseOptionalInt(fields[7]); err != nil {
		return fix, fmt.Errorf("invalid GGA satellite count: %w", err)
	}
	if fix.HDOP, err = parseOptionalFloat(fields[8]); err != nil {
		return fix, fmt.Errorf("invalid GGA HDOP: %w", err)
	}
	if fix.Altitude, err = parseOptionalFloat(fields[9]); err != nil {
		return fix, fmt.Errorf("invalid GGA altitude: %w", err)
	}
	if fields[10] != "" {
		fix.AltitudeUnit = fields[10][0]
	}

	fix.Valid = fix.Quality > 0
	return fix, nil
}

func verifyChecksum(body, checksum string) error {
	want, err := strconv.ParseUint(checksum, 16, 8)
	if err != nil {
		return fmt.Errorf("invalid NMEA checksum %q: %w", checksum, err)
	}

	var got byte
	for i := 0; i < len(body); i++ {
		got ^= body[i]
	}

	if got != byte(want) {
		return fmt.Errorf("NMEA checksum mismatch: computed %02X, sentence carries %02X", got, want)
	}
	return nil
}

// parseCoordinate converts an NMEA ddmm.mmmm coordinate and hemisphere
// indicator to signed decimal degrees. negative names the hemisphere letter
// that flips the sign. Empty fields (no fix yet) yield zero.
func parseCoordinate(value, hemisphere string, negative byte) (float64, byte, error) {
	if value == "" {
		if hemisphere != "" {
			return 0, hemisphere[0], nil
		}
		return 0, 0, nil
	}

	raw, err := parseFiniteFloat(value)
	if err != nil {
		return 0, 0, err
	}

	degrees := float64(int(raw / 100))
	minutes := raw - degrees*100
	decimal := degrees + minutes/60

	var hemi byte
	if hemisphere != "" {
		hemi = hemisphere[0]
		if hemi == negative {
			decimal = -decimal
		}
	}

	return decimal, hemi, nil
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return parseFiniteFloat(s)
}

// parseFiniteFloat parses a numeric field, rejecting the NaN and Inf tokens
// strconv accepts: no NMEA field legitimately carries them and they would
// corrupt downstream fixed-precision formatting.
func parseFiniteFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
