// Package scheduler drives the repeating sample → encode → transmit cycle
// at a fixed nominal period.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/telemetry"
	"github.com/CLTP14-MIZU/mizu-sensor-router/internal/transport"
)

// DefaultPeriod is the nominal cycle period: one telemetry line per second.
const DefaultPeriod = time.Second

// Clock abstracts cycle timing so tests can drive many cycles without real
// time passing.
type Clock interface {
	// Tick returns a channel delivering ticks at the given period and a
	// function releasing the ticker's resources.
	Tick(period time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Tick(period time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(period)
	return t.C, t.Stop
}

// Sampler produces one fully populated telemetry record per invocation.
type Sampler interface {
	Sample() *telemetry.Record
}

// WithLogger sets the logger for the scheduler.
func WithLogger(logger *slog.Logger) func(*Scheduler) {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithClock replaces the real-time clock, used by tests.
func WithClock(clock Clock) func(*Scheduler) {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithStatsInterval sets how many cycles pass between stats log lines.
// Zero disables stats logging.
func WithStatsInterval(cycles uint64) func(*Scheduler) {
	return func(s *Scheduler) {
		s.statsInterval = cycles
	}
}

// Scheduler runs the telemetry cycle forever: sample all sensors, encode the
// record, transmit the line, pause for the nominal period, repeat. The
// achieved period is the pause plus the cycle's own latency; no drift
// compensation is attempted.
type Scheduler struct {
	sampler Sampler
	encoder telemetry.Encoder
	line    transport.Line

	period        time.Duration
	clock         Clock
	statsInterval uint64
	logger        *slog.Logger

	cycles     uint64
	sendErrors uint64
	bytesSent  uint64
}

// New creates a scheduler transmitting sampler output over line every period.
func New(sampler Sampler, line transport.Line, period time.Duration, options ...func(*Scheduler)) *Scheduler {
	s := Scheduler{
		sampler: sampler,
		line:    line,
		period:  period,
		clock:   realClock{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run executes cycles until ctx is cancelled. Transport failures are logged
// and counted but never stop the loop; the device's telemetry duty outlives
// any single bad transmission.
func (s *Scheduler) Run(ctx context.Context) error {
	started := time.Now()

	tick, stop := s.clock.Tick(s.period)
	defer stop()

	s.logger.Info("sensor hub running", slog.Duration("period", s.period))

	for {
		s.runCycle(started)

		select {
		case <-ctx.Done():
			s.logStats(started)
			return ctx.Err()
		case <-tick:
		}
	}
}

func (s *Scheduler) runCycle(started time.Time) {
	record := s.sampler.Sample()
	line := s.encoder.Encode(record)

	if err := s.line.SendLine(line); err != nil {
		s.sendErrors++
		s.logger.Warn("failed to transmit telemetry line", slog.Any("error", err))
	} else {
		s.bytesSent += uint64(len(line))
	}

	s.cycles++
	if s.statsInterval > 0 && s.cycles%s.statsInterval == 0 {
		s.logStats(started)
	}
}

func (s *Scheduler) logStats(started time.Time) {
	s.logger.Info("cycle stats",
		slog.String("cycles", humanize.Comma(int64(s.cycles))),
		slog.String("sent", humanize.Bytes(s.bytesSent)),
		slog.Uint64("send_errors", s.sendErrors),
		slog.Duration("uptime", time.Since(started).Round(time.Second)))
}
