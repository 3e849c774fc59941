// Package sim is an in-process simulated vehicle that implements link.Link.
//
// The vehicle holds its own position. Position setpoints are approached in a
// straight line at up to MaxSpeed; velocity setpoints are integrated, capped at
// MaxSpeed. Every step the position is reported to subscribers, playing the part
// of the telemetry stream.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/link"
	"go.viam.com/offboard/logging"
)

const (
	defaultRate     = 50.0
	defaultMaxSpeed = 3.0
	maxRate         = 1000.0
)

// Config configures the simulated vehicle.
type Config struct {
	// Rate is the simulation and telemetry frequency in Hz.
	Rate float64 `yaml:"rate" env:"OFFBOARD_SIM_RATE"`
	// MaxSpeed caps the vehicle speed in m/s.
	MaxSpeed float64 `yaml:"max_speed" env:"OFFBOARD_SIM_MAX_SPEED"`
	// Start is the initial position.
	Start [3]float64 `yaml:"start"`
}

// Validate checks the config and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Rate < 0 || cfg.Rate > maxRate {
		return errors.Errorf("sim rate must be in (0, %v] Hz, got %v", maxRate, cfg.Rate)
	}
	if cfg.MaxSpeed < 0 {
		return errors.Errorf("sim max speed must be positive, got %v", cfg.MaxSpeed)
	}
	if cfg.Rate == 0 {
		cfg.Rate = defaultRate
	}
	if cfg.MaxSpeed == 0 {
		cfg.MaxSpeed = defaultMaxSpeed
	}
	return nil
}

// Vehicle is the simulated vehicle.
type Vehicle struct {
	cfg    Config
	clock  clock.Clock
	logger logging.Logger

	mu          sync.Mutex
	position    r3.Vector
	setpoint    control.Command
	hasSetpoint bool
	lastUpdated time.Time
	handlers    []link.PositionHandler

	workers *goutils.StoppableWorkers
}

// NewVehicle returns a vehicle that does not move until Step is called or
// Start launches the background simulation.
func NewVehicle(cfg Config, clk clock.Clock, logger logging.Logger) (*Vehicle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Vehicle{
		cfg:         cfg,
		clock:       clk,
		logger:      logger,
		position:    r3.Vector{X: cfg.Start[0], Y: cfg.Start[1], Z: cfg.Start[2]},
		lastUpdated: clk.Now(),
	}, nil
}

// Start steps the simulation at the configured rate until Close.
func (v *Vehicle) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.workers != nil {
		return
	}
	v.lastUpdated = v.clock.Now()
	interval := time.Duration(float64(time.Second) / v.cfg.Rate)
	v.workers = goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		ticker := v.clock.Ticker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				v.Step(now)
			}
		}
	})
	v.logger.Infow("simulated vehicle started", "rate_hz", v.cfg.Rate, "max_speed", v.cfg.MaxSpeed, "position", v.position)
}

// Publish records cmd as the active setpoint.
func (v *Vehicle) Publish(ctx context.Context, cmd control.Command) error {
	if !cmd.Mode.Supported() {
		return errors.Wrap(control.ErrUnsupportedMode, cmd.Mode.String())
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setpoint = cmd
	v.hasSetpoint = true
	return nil
}

// SubscribePosition registers handler for every simulation step.
func (v *Vehicle) SubscribePosition(handler link.PositionHandler) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handlers = append(v.handlers, handler)
	return nil
}

// Position returns the true simulated position.
func (v *Vehicle) Position() r3.Vector {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// Step advances the simulation to now and reports the new position. Tests call
// it directly for deterministic time.
func (v *Vehicle) Step(now time.Time) {
	v.mu.Lock()
	dt := now.Sub(v.lastUpdated).Seconds()
	v.lastUpdated = now
	if v.hasSetpoint && dt > 0 {
		v.position = v.advance(dt)
	}
	position := v.position
	handlers := v.handlers
	v.mu.Unlock()

	for _, handler := range handlers {
		handler(position, now)
	}
}

// advance must be called with mu held.
func (v *Vehicle) advance(dt float64) r3.Vector {
	reach := v.cfg.MaxSpeed * dt
	switch v.setpoint.Mode {
	case control.ModePosition:
		toGo := v.setpoint.Vector.Sub(v.position)
		if toGo.Norm() <= reach {
			return v.setpoint.Vector
		}
		return v.position.Add(toGo.Normalize().Mul(reach))
	case control.ModeVelocity:
		velocity := v.setpoint.Vector
		if velocity.Norm() > v.cfg.MaxSpeed {
			velocity = velocity.Normalize().Mul(v.cfg.MaxSpeed)
		}
		return v.position.Add(velocity.Mul(dt))
	default:
		return v.position
	}
}

// Close stops the background simulation.
func (v *Vehicle) Close(ctx context.Context) error {
	v.mu.Lock()
	workers := v.workers
	v.workers = nil
	v.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}
