package control

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/offboard/logging"
)

const (
	// Tolerance is the distance in meters under which a target counts as reached.
	Tolerance = 0.1
	// DefaultPeriod is the setpoint cadence (10 Hz).
	DefaultPeriod = 100 * time.Millisecond
)

// ErrConvergenceTimeout is returned when a gate with a timeout gives up on a target.
var ErrConvergenceTimeout = errors.New("target not reached before timeout")

// Gate republishes the command for a target at a fixed cadence until the live
// position is within tolerance of it.
type Gate struct {
	feedback  PositionReader
	publisher Publisher
	logger    logging.Logger
	clock     clock.Clock

	period  time.Duration
	timeout time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) GateOption {
	return func(g *Gate) { g.clock = clk }
}

// WithPeriod changes the publish cadence.
func WithPeriod(period time.Duration) GateOption {
	return func(g *Gate) { g.period = period }
}

// WithTimeout bounds how long a single target may take. Zero, the default,
// waits forever.
func WithTimeout(timeout time.Duration) GateOption {
	return func(g *Gate) { g.timeout = timeout }
}

// NewGate returns a gate reading positions from feedback and sending commands
// through publisher.
func NewGate(feedback PositionReader, publisher Publisher, logger logging.Logger, opts ...GateOption) *Gate {
	g := &Gate{
		feedback:  feedback,
		publisher: publisher,
		logger:    logger,
		clock:     clock.New(),
		period:    DefaultPeriod,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RunUntilConverged publishes the command for target once per period until the
// live position is within tolerance of target. The distance is checked after
// each period has elapsed, so the call always lasts at least one period.
//
// Without a timeout this blocks for as long as the target is not reached and ctx
// is live, including when no telemetry ever arrives.
func (g *Gate) RunUntilConverged(ctx context.Context, target r3.Vector, mode Mode) error {
	start := g.clock.Now()
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// armed before publishing so the cadence is measured from the start of the iteration
		timer := g.clock.Timer(g.period)

		cmd, err := Adapt(target, g.feedback.Latest(), mode)
		if err != nil {
			timer.Stop()
			return err
		}
		cmd.Stamp = g.clock.Now()
		if err := g.publisher.Publish(ctx, cmd); err != nil {
			g.logger.Debugw("setpoint publish failed", "mode", mode, "error", err)
		}

		if !goutils.SelectContextOrWaitChan(ctx, timer.C) {
			timer.Stop()
			return ctx.Err()
		}

		distance := g.feedback.Latest().Distance(target)
		if distance <= Tolerance {
			g.logger.Debugw("target reached", "target", target, "distance", distance, "iterations", iteration)
			return nil
		}
		if g.timeout > 0 && g.clock.Since(start) >= g.timeout {
			return errors.Wrapf(ErrConvergenceTimeout, "target %v still %.3fm away after %v", target, distance, g.timeout)
		}
	}
}
