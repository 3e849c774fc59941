package control

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Command is a setpoint ready to be published. Vector is a position for
// ModePosition and a linear velocity for ModeVelocity.
type Command struct {
	Mode   Mode
	Vector r3.Vector
	Stamp  time.Time
}

// Publisher sends commands to the vehicle. Publishing is fire and forget: a
// returned error is reported but never retried.
type Publisher interface {
	Publish(ctx context.Context, cmd Command) error
}

// PositionReader exposes the latest observed vehicle position.
type PositionReader interface {
	Latest() r3.Vector
}

// Adapt builds the command for target given the live position.
//
// Velocity commands are the raw error vector target-feedback with unit gain
// and no limiting. On curved paths this overshoots; it is kept as is.
func Adapt(target, feedback r3.Vector, mode Mode) (Command, error) {
	switch mode {
	case ModePosition:
		return Command{Mode: ModePosition, Vector: target}, nil
	case ModeVelocity:
		return Command{Mode: ModeVelocity, Vector: target.Sub(feedback)}, nil
	case ModeAcceleration:
		return Command{}, errors.Wrap(ErrUnsupportedMode, mode.String())
	}
	return Command{}, errors.Wrapf(ErrUnknownMode, "%d", int(mode))
}
