package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSamplePeriod     = time.Second
	defaultMaxStaleCycles   = 5
	defaultGPSBaudRate      = 9600
	defaultSerialBaudRate   = 9600
	defaultEnvSensorAddress = 0x76
)

// TimeDuration is a time.Duration that unmarshals from YAML duration
// strings like "1s" or "500ms".
type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(*d).String(), nil
}

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Device    DeviceConfig    `yaml:"device"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Transport TransportConfig `yaml:"transport"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        string `yaml:"logLevel"`
	PrettyLog       bool   `yaml:"prettyLog"`
	StatsEveryCycle uint64 `yaml:"statsEveryCycles"`
}

// Level returns the configured log level, defaulting to info when unset.
// The level string is checked during Validate, so parsing cannot fail here.
func (s Settings) Level() slog.Level {
	if s.LogLevel == "" {
		return slog.LevelInfo
	}

	var level slog.Level
	_ = level.UnmarshalText([]byte(s.LogLevel))
	return level
}

// DeviceConfig represents the device identity and sampling policy
type DeviceConfig struct {
	ID              string         `yaml:"id"`
	WindSpeedMS     float64        `yaml:"windSpeedMs"` // placeholder constant, no live sensor
	SamplePeriod    TimeDuration   `yaml:"samplePeriod"`
	MaxStaleCycles  int            `yaml:"maxStaleCycles"`
	StartupDefaults DefaultsConfig `yaml:"startupDefaults"`
}

// DefaultsConfig carries per-field startup values published until the first
// fresh sensor reading.
type DefaultsConfig struct {
	AmbientTemp  float64 `yaml:"ambientTemp"`
	Humidity     float64 `yaml:"humidity"`
	SoilMoisture float64 `yaml:"soilMoisture"`
	SoilTemp     float64 `yaml:"soilTemp"`
	Longitude    float64 `yaml:"longitude"`
	Latitude     float64 `yaml:"latitude"`
}

// SensorsConfig represents the hardware attachment points
type SensorsConfig struct {
	I2CBus              string `yaml:"i2cBus"`
	PowerMonitorAddress int    `yaml:"powerMonitorAddress"`
	EnvSensorAddress    uint16 `yaml:"envSensorAddress"`
	SoilADCChannel      int    `yaml:"soilAdcChannel"`
	GPSPort             string `yaml:"gpsPort"`
	GPSBaudRate         int    `yaml:"gpsBaudRate"`
}

// TransportConfig represents the telemetry publishing links
type TransportConfig struct {
	SerialPort string     `yaml:"serialPort"`
	BaudRate   int        `yaml:"baudRate"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig represents the optional transmit-only MQTT mirror
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
}

// LoadConfig reads, parses and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{
		Device: DeviceConfig{
			SamplePeriod:   TimeDuration(defaultSamplePeriod),
			MaxStaleCycles: defaultMaxStaleCycles,
		},
		Sensors: SensorsConfig{
			EnvSensorAddress: defaultEnvSensorAddress,
			GPSBaudRate:      defaultGPSBaudRate,
		},
		Transport: TransportConfig{
			BaudRate: defaultSerialBaudRate,
			MQTT: MQTTConfig{
				ClientID: "mizu-sensorhub",
			},
		},
	}

	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for values the hub cannot run with.
func (c *Config) Validate() error {
	if c.Settings.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
			return fmt.Errorf("settings.logLevel is invalid: %q given", c.Settings.LogLevel)
		}
	}
	if c.Device.ID == "" {
		return fmt.Errorf("device.id must not be empty")
	}
	if time.Duration(c.Device.SamplePeriod) <= 0 {
		return fmt.Errorf("device.samplePeriod must be positive: %s given", time.Duration(c.Device.SamplePeriod))
	}
	if c.Device.MaxStaleCycles <= 0 {
		return fmt.Errorf("device.maxStaleCycles must be positive: %d given", c.Device.MaxStaleCycles)
	}
	if c.Sensors.GPSPort == "" {
		return fmt.Errorf("sensors.gpsPort must not be empty")
	}
	if c.Sensors.GPSBaudRate <= 0 {
		return fmt.Errorf("sensors.gpsBaudRate must be positive: %d given", c.Sensors.GPSBaudRate)
	}
	if c.Transport.SerialPort == "" {
		return fmt.Errorf("transport.serialPort must not be empty")
	}
	if c.Transport.BaudRate <= 0 {
		return fmt.Errorf("transport.baudRate must be positive: %d given", c.Transport.BaudRate)
	}

	if c.Transport.MQTT.Enabled {
		if c.Transport.MQTT.Broker == "" {
			return fmt.Errorf("transport.mqtt.broker must not be empty when the mirror is enabled")
		}
		if c.Transport.MQTT.Port <= 0 {
			return fmt.Errorf("transport.mqtt.port must be positive: %d given", c.Transport.MQTT.Port)
		}
		if c.Transport.MQTT.Topic == "" {
			return fmt.Errorf("transport.mqtt.topic must not be empty when the mirror is enabled")
		}
	}

	return nil
}
