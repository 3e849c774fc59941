// Package sequencer walks a path shape target by target, waiting for the vehicle
// to converge on each target before advancing.
package sequencer

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/logging"
	"go.viam.com/offboard/trajectory"
)

// Result is how a run ended.
type Result int

const (
	// ResultComplete means the whole path was traversed.
	ResultComplete Result = iota
	// ResultUnsupported means the control mode cannot be commanded; nothing was published.
	ResultUnsupported
	// ResultCanceled means the run was stopped from outside.
	ResultCanceled
	// ResultTimedOut means a target was not reached within the gate timeout.
	ResultTimedOut
	// ResultFailed covers any other error.
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultComplete:
		return "complete"
	case ResultUnsupported:
		return "unsupported"
	case ResultCanceled:
		return "canceled"
	case ResultTimedOut:
		return "timed out"
	case ResultFailed:
		return "failed"
	}
	return "unknown"
}

// Phase is the part of the path being flown.
type Phase int

const (
	// PhaseIdle is before Run.
	PhaseIdle Phase = iota
	// PhaseSeekStart is the approach to a sweep shape's start point.
	PhaseSeekStart
	// PhaseWaypoint is the square's waypoint walk.
	PhaseWaypoint
	// PhaseSweep is the angle sweep.
	PhaseSweep
	// PhaseDone is after the terminal state.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSeekStart:
		return "seek start"
	case PhaseWaypoint:
		return "waypoint"
	case PhaseSweep:
		return "sweep"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Progress is a snapshot of the progression state. Value is the waypoint
// index during PhaseWaypoint and the angle in degrees during PhaseSweep.
type Progress struct {
	Shape trajectory.Shape
	Phase Phase
	Value int
}

// Converger drives the vehicle to a target. *control.Gate implements it.
type Converger interface {
	RunUntilConverged(ctx context.Context, target r3.Vector, mode control.Mode) error
}

// Config fixes the mode and shape of a run.
type Config struct {
	Mode  control.Mode
	Shape trajectory.Shape
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithOnComplete registers fn to be called once when the path is finished. It
// is not called for canceled, unsupported or failed runs.
func WithOnComplete(fn func()) Option {
	return func(s *Sequencer) { s.onComplete = fn }
}

// Sequencer runs a single shape in a single mode. It is good for one Run.
type Sequencer struct {
	cfg    Config
	gate   Converger
	logger logging.Logger

	onComplete   func()
	completeOnce sync.Once
	started      atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// New returns a sequencer for cfg driving targets through gate.
func New(cfg Config, gate Converger, logger logging.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:      cfg,
		gate:     gate,
		logger:   logger,
		progress: Progress{Shape: cfg.Shape, Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Progress returns the current progression state.
func (s *Sequencer) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Sequencer) advance(phase Phase, value int) {
	s.mu.Lock()
	s.progress.Phase = phase
	s.progress.Value = value
	s.mu.Unlock()
}

// Run flies the configured path. It returns once the path is complete, ctx is
// canceled, or an error stops the run. Cancellation is observed between and
// during targets.
func (s *Sequencer) Run(ctx context.Context) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return ResultFailed, errors.New("sequencer already ran")
	}

	s.logger.Info("offboard control test running")
	s.logger.Infof("%s control mode selected", s.cfg.Mode)
	if !s.cfg.Mode.Supported() {
		err := errors.Wrapf(control.ErrUnsupportedMode, "%s setpoints are not supported by the flight stack", s.cfg.Mode)
		s.logger.Errorw("aborting run", "error", err)
		return ResultUnsupported, err
	}

	s.logger.Infof("test option: %s-shaped path", s.cfg.Shape)
	s.logger.Info("testing")

	var err error
	if s.cfg.Shape.IsSweep() {
		err = s.sweepMotion(ctx)
	} else {
		err = s.squareMotion(ctx)
	}
	if err != nil {
		result := resultFor(err)
		s.logger.Warnw("run stopped", "result", result, "progress", s.Progress(), "error", err)
		return result, err
	}

	s.advance(PhaseDone, s.Progress().Value)
	s.logger.Info("test complete")
	s.completeOnce.Do(func() {
		if s.onComplete != nil {
			s.onComplete()
		}
	})
	return ResultComplete, nil
}

func (s *Sequencer) squareMotion(ctx context.Context) error {
	for index := trajectory.FirstWaypoint; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.advance(PhaseWaypoint, index)
		if index == trajectory.SquareTerminal {
			return nil
		}
		target := trajectory.SquareWaypoint(index)
		s.logger.Debugw("next waypoint", "index", index, "target", target)
		if err := s.gate.RunUntilConverged(ctx, target, s.cfg.Mode); err != nil {
			return errors.Wrapf(err, "waypoint %d", index)
		}
	}
}

func (s *Sequencer) sweepMotion(ctx context.Context) error {
	s.advance(PhaseSeekStart, 0)
	start := trajectory.StartPoint(s.cfg.Shape)
	s.logger.Debugw("seeking start point", "target", start)
	if err := s.gate.RunUntilConverged(ctx, start, s.cfg.Mode); err != nil {
		return errors.Wrap(err, "seeking start point")
	}

	sweep := trajectory.Sweep(s.cfg.Shape)
	s.logger.Debugw("sweeping", "from", sweep.From, "to", sweep.To, "steps", sweep.Steps())
	for theta := sweep.From; theta <= sweep.To; theta++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.advance(PhaseSweep, theta)
		if err := s.gate.RunUntilConverged(ctx, trajectory.Target(s.cfg.Shape, theta), s.cfg.Mode); err != nil {
			return errors.Wrapf(err, "angle %d", theta)
		}
	}
	return nil
}

func resultFor(err error) Result {
	switch {
	case errors.Is(err, control.ErrUnsupportedMode):
		return ResultUnsupported
	case errors.Is(err, control.ErrConvergenceTimeout):
		return ResultTimedOut
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultFailed
	}
}
