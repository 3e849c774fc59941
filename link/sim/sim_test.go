package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/feedback"
	"go.viam.com/offboard/link"
	"go.viam.com/offboard/logging"
	"go.viam.com/offboard/sequencer"
	"go.viam.com/offboard/trajectory"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Rate, test.ShouldEqual, defaultRate)
	test.That(t, cfg.MaxSpeed, test.ShouldEqual, defaultMaxSpeed)

	cfg = Config{Rate: 5000}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
	cfg = Config{MaxSpeed: -1}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestPositionSetpointIsSpeedLimited(t *testing.T) {
	mock := clock.NewMock()
	v, err := NewVehicle(Config{MaxSpeed: 1}, mock, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	var reported []r3.Vector
	test.That(t, v.SubscribePosition(func(p r3.Vector, _ time.Time) { reported = append(reported, p) }), test.ShouldBeNil)

	// no setpoint yet: the vehicle holds position but still reports it
	v.Step(mock.Now().Add(time.Second))
	test.That(t, v.Position(), test.ShouldResemble, r3.Vector{})

	test.That(t, v.Publish(context.Background(), control.Command{Mode: control.ModePosition, Vector: r3.Vector{X: 3, Y: 4}}), test.ShouldBeNil)
	v.Step(mock.Now().Add(2 * time.Second))
	test.That(t, v.Position().X, test.ShouldAlmostEqual, 0.6)
	test.That(t, v.Position().Y, test.ShouldAlmostEqual, 0.8)

	v.Step(mock.Now().Add(20 * time.Second))
	test.That(t, v.Position(), test.ShouldResemble, r3.Vector{X: 3, Y: 4})
	test.That(t, len(reported), test.ShouldEqual, 3)
	test.That(t, reported[2], test.ShouldResemble, r3.Vector{X: 3, Y: 4})
}

func TestVelocitySetpointIsIntegrated(t *testing.T) {
	mock := clock.NewMock()
	v, err := NewVehicle(Config{MaxSpeed: 2, Start: [3]float64{1, 1, 1}}, mock, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, v.Publish(context.Background(), control.Command{Mode: control.ModeVelocity, Vector: r3.Vector{Z: 1}}), test.ShouldBeNil)
	v.Step(mock.Now().Add(500 * time.Millisecond))
	test.That(t, v.Position(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1.5})

	// faster than MaxSpeed gets capped
	test.That(t, v.Publish(context.Background(), control.Command{Mode: control.ModeVelocity, Vector: r3.Vector{X: 10}}), test.ShouldBeNil)
	v.Step(mock.Now().Add(time.Second))
	test.That(t, v.Position().X, test.ShouldAlmostEqual, 2.)

	err = v.Publish(context.Background(), control.Command{Mode: control.ModeAcceleration})
	test.That(t, errors.Is(err, control.ErrUnsupportedMode), test.ShouldBeTrue)
}

func TestBackgroundSimulationReportsPosition(t *testing.T) {
	v, err := NewVehicle(Config{Rate: 200}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	fb := feedback.NewPosition()
	test.That(t, link.Bind(v, fb), test.ShouldBeNil)

	v.Start()
	v.Start()
	test.That(t, v.Publish(context.Background(), control.Command{Mode: control.ModePosition, Vector: r3.Vector{Z: 0.05}}), test.ShouldBeNil)

	deadline := time.Now().Add(5 * time.Second)
	for fb.Latest().Z != 0.05 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, fb.Latest(), test.ShouldResemble, r3.Vector{Z: 0.05})
	test.That(t, v.Close(context.Background()), test.ShouldBeNil)
	test.That(t, v.Close(context.Background()), test.ShouldBeNil)
}

func TestSquareRunAgainstSimulatedVehicle(t *testing.T) {
	logger := logging.NewTestLogger(t)
	v, err := NewVehicle(Config{Rate: 1000, MaxSpeed: 100}, nil, logger.Sublogger("sim"))
	test.That(t, err, test.ShouldBeNil)
	fb := feedback.NewPosition()
	test.That(t, link.Bind(v, fb), test.ShouldBeNil)
	v.Start()
	defer func() {
		test.That(t, v.Close(context.Background()), test.ShouldBeNil)
	}()

	gate := control.NewGate(fb, v, logger.Sublogger("gate"), control.WithPeriod(5*time.Millisecond))
	completed := 0
	seq := sequencer.New(sequencer.Config{Mode: control.ModePosition, Shape: trajectory.ShapeSquare}, gate, logger,
		sequencer.WithOnComplete(func() { completed++ }))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := seq.Run(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldEqual, sequencer.ResultComplete)
	test.That(t, completed, test.ShouldEqual, 1)
	test.That(t, v.Position().Distance(trajectory.SquareWaypoint(trajectory.LastWaypoint)), test.ShouldBeLessThanOrEqualTo, control.Tolerance)
}
