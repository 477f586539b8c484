package driver

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const (
	ggaSanFrancisco = "$GPGGA,123519.00,3746.4940,N,12225.1640,W,1,08,0.9,15.2,M,46.9,M,,*45"
	ggaTokyo        = "$GPGGA,015044.00,3542.6612,N,13946.0512,E,2,11,1.1,41.8,M,39.5,M,,*55"
	ggaNoFix        = "$GPGGA,123519.00,3746.4940,N,12225.1640,W,0,00,99.9,,M,,M,,*71"
	rmcSentence     = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

func TestParseGGA(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		lat, lon float64
		quality  int
		sats     int
		valid    bool
	}{
		{
			name:    "western hemisphere",
			line:    ggaSanFrancisco,
			lat:     37.7749,
			lon:     -122.4194,
			quality: 1,
			sats:    8,
			valid:   true,
		},
		{
			name:    "eastern hemisphere",
			line:    ggaTokyo,
			lat:     35.71102,
			lon:     139.76752,
			quality: 2,
			sats:    11,
			valid:   true,
		},
		{
			name:    "zero quality means no fix",
			line:    ggaNoFix,
			lat:     37.7749,
			lon:     -122.4194,
			quality: 0,
			sats:    0,
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, err := ParseGGA(tt.line)
			if err != nil {
				t.Fatalf("ParseGGA() error: %v", err)
			}

			if math.Abs(fix.Latitude-tt.lat) > 1e-9 {
				t.Errorf("Latitude = %v, want %v", fix.Latitude, tt.lat)
			}
			if math.Abs(fix.Longitude-tt.lon) > 1e-9 {
				t.Errorf("Longitude = %v, want %v", fix.Longitude, tt.lon)
			}
			if fix.Quality != tt.quality {
				t.Errorf("Quality = %d, want %d", fix.Quality, tt.quality)
			}
			if fix.Satellites != tt.sats {
				t.Errorf("Satellites = %d, want %d", fix.Satellites, tt.sats)
			}
			if fix.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", fix.Valid, tt.valid)
			}
		})
	}
}

func TestParseGGA_Hemispheres(t *testing.T) {
	fix, err := ParseGGA(ggaSanFrancisco)
	if err != nil {
		t.Fatalf("ParseGGA() error: %v", err)
	}

	if fix.LatHemisphere != 'N' || fix.LonHemisphere != 'W' {
		t.Errorf("hemispheres = %c/%c, want N/W", fix.LatHemisphere, fix.LonHemisphere)
	}
	if fix.AltitudeUnit != 'M' {
		t.Errorf("AltitudeUnit = %c, want M", fix.AltitudeUnit)
	}
	if math.Abs(fix.Altitude-15.2) > 1e-9 {
		t.Errorf("Altitude = %v, want 15.2", fix.Altitude)
	}
	if math.Abs(fix.HDOP-0.9) > 1e-9 {
		t.Errorf("HDOP = %v, want 0.9", fix.HDOP)
	}
}

func TestParseGGA_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"other sentence type", rmcSentence, ErrNotGGA},
		{
			// strconv accepts NaN/Inf tokens; the parser must not.
			name: "NaN latitude",
			line: "$GPGGA,123519.00,NaN,N,12225.1640,W,1,08,0.9,15.2,M,46.9,M,,*05",
		},
		{
			name: "infinite longitude",
			line: "$GPGGA,123519.00,3746.4940,N,+Inf,W,1,08,0.9,15.2,M,46.9,M,,*34",
		},
		{"bad checksum", "$GPGGA,123519.00,3746.4940,N,12225.1640,W,1,08,0.9,15.2,M,46.9,M,,*00", nil},
		{"no checksum", "$GPGGA,123519.00,3746.4940,N", nil},
		{"no dollar sign", "GPGGA,123519.00*00", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGGA(tt.line)
			if err == nil {
				t.Fatal("ParseGGA() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseGGA() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGPSReceiver_SkipsToGGA(t *testing.T) {
	stream := strings.Join([]string{rmcSentence, "", ggaSanFrancisco, ggaTokyo}, "\r\n") + "\r\n"
	receiver := NewGPSReceiver(strings.NewReader(stream))

	fix, err := receiver.ReadFix()
	if err != nil {
		t.Fatalf("ReadFix() error: %v", err)
	}
	if math.Abs(fix.Latitude-37.7749) > 1e-9 {
		t.Errorf("first fix latitude = %v, want 37.7749", fix.Latitude)
	}

	fix, err = receiver.ReadFix()
	if err != nil {
		t.Fatalf("second ReadFix() error: %v", err)
	}
	if math.Abs(fix.Longitude-139.76752) > 1e-9 {
		t.Errorf("second fix longitude = %v, want 139.76752", fix.Longitude)
	}
}

func TestGPSReceiver_NoGGAInStream(t *testing.T) {
	receiver := NewGPSReceiver(strings.NewReader(rmcSentence + "\r\n"))

	if _, err := receiver.ReadFix(); !errors.Is(err, ErrNoFix) {
		t.Errorf("ReadFix() error = %v, want ErrNoFix", err)
	}
}
