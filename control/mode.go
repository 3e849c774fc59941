// Package control turns targets into setpoint commands and gates progression on
// measured convergence to those targets.
package control

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnknownMode is returned when a control mode name cannot be resolved.
	ErrUnknownMode = errors.New("unknown control mode")
	// ErrUnsupportedMode is returned when a recognized mode has no command
	// representation. Acceleration setpoints lack firmware support.
	ErrUnsupportedMode = errors.New("control mode not supported")
)

// Mode is the kind of setpoint sent to the vehicle.
type Mode int

const (
	// ModePosition sends the target position verbatim.
	ModePosition Mode = iota
	// ModeVelocity sends a proportional velocity toward the target.
	ModeVelocity
	// ModeAcceleration is recognized but unsupported.
	ModeAcceleration
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeVelocity:
		return "velocity"
	case ModeAcceleration:
		return "acceleration"
	}
	return "unknown"
}

// Supported reports whether commands can be built for the mode.
func (m Mode) Supported() bool {
	return m == ModePosition || m == ModeVelocity
}

// ParseMode resolves a control mode selector string.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "position":
		return ModePosition, nil
	case "velocity":
		return ModeVelocity, nil
	case "acceleration":
		return ModeAcceleration, nil
	}
	return 0, errors.Wrapf(ErrUnknownMode, "%q", name)
}
