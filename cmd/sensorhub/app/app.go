package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/driver"
	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/scheduler"
	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/sensor"
	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/transport"
)

// Run wires the drivers, aggregator, transports and scheduler together and
// runs the telemetry cycle until ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	sources, closeSources, err := createSources(&config.Sensors)
	if err != nil {
		return fmt.Errorf("failed to create sensor sources: %w", err)
	}
	defer closeSources()

	line, err := createTransport(ctx, &config.Transport, logger)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	defer line.Close()

	aggregator := sensor.NewAggregator(config.Device.ID, config.Device.WindSpeedMS, sources,
		sensor.WithLogger(logger),
		sensor.WithMaxStaleCycles(config.Device.MaxStaleCycles),
		sensor.WithDefaults(sensor.Defaults{
			AmbientTemp:  config.Device.StartupDefaults.AmbientTemp,
			Humidity:     config.Device.StartupDefaults.Humidity,
			SoilMoisture: config.Device.StartupDefaults.SoilMoisture,
			SoilTemp:     config.Device.StartupDefaults.SoilTemp,
			Longitude:    config.Device.StartupDefaults.Longitude,
			Latitude:     config.Device.StartupDefaults.Latitude,
		}))

	sched := scheduler.New(aggregator, line, time.Duration(config.Device.SamplePeriod),
		scheduler.WithLogger(logger),
		scheduler.WithStatsInterval(config.Settings.StatsEveryCycle))

	return sched.Run(ctx)
}

func createSources(config *SensorsConfig) (sensor.Sources, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	bus, err := driver.OpenI2C(config.I2CBus)
	if err != nil {
		return sensor.Sources{}, nil, err
	}
	closers = append(closers, func() { _ = bus.Close() })

	power, err := driver.NewPowerMonitor(bus, config.PowerMonitorAddress)
	if err != nil {
		closeAll()
		return sensor.Sources{}, nil, fmt.Errorf("creating power monitor: %w", err)
	}

	env, err := driver.NewEnvSensor(bus, config.EnvSensorAddress)
	if err != nil {
		closeAll()
		return sensor.Sources{}, nil, fmt.Errorf("creating environmental sensor: %w", err)
	}
	closers = append(closers, func() { _ = env.Close() })

	soil, err := driver.NewSoilProbe(bus, config.SoilADCChannel)
	if err != nil {
		closeAll()
		return sensor.Sources{}, nil, fmt.Errorf("creating soil probe: %w", err)
	}
	closers = append(closers, func() { _ = soil.Close() })

	gps, err := driver.OpenGPS(config.GPSPort, config.GPSBaudRate)
	if err != nil {
		closeAll()
		return sensor.Sources{}, nil, fmt.Errorf("creating GPS receiver: %w", err)
	}
	closers = append(closers, func() { _ = gps.Close() })

	return sensor.Sources{
		Power:        power,
		BoardThermal: env,
		Ambient:      env,
		SoilMoisture: soil,
		Position:     gps,
	}, closeAll, nil
}

func createTransport(ctx context.Context, config *TransportConfig, logger *slog.Logger) (transport.Line, error) {
	serial, err := transport.OpenSerial(config.SerialPort, config.BaudRate)
	if err != nil {
		return nil, err
	}

	if !config.MQTT.Enabled {
		return serial, nil
	}

	mirror := transport.NewMQTT(config.MQTT.Broker, config.MQTT.Port, config.MQTT.ClientID, config.MQTT.Topic,
		transport.WithMQTTLogger(logger))

	if err = mirror.Connect(ctx); err != nil {
		_ = serial.Close()
		return nil, fmt.Errorf("connecting MQTT mirror: %w", err)
	}

	return transport.NewFanout(serial, mirror), nil
}
