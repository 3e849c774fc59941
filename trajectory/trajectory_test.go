package trajectory

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestParseShape(t *testing.T) {
	for _, shape := range []Shape{ShapeSquare, ShapeCircle, ShapeEight, ShapeEllipse} {
		parsed, err := ParseShape(shape.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, shape)
	}

	_, err := ParseShape("triangle")
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, "triangle")
	test.That(t, ShapeSquare.IsSweep(), test.ShouldBeFalse)
	test.That(t, ShapeEllipse.IsSweep(), test.ShouldBeTrue)
}

func TestTargetIsPure(t *testing.T) {
	for _, shape := range []Shape{ShapeSquare, ShapeCircle, ShapeEight, ShapeEllipse} {
		sweep := Sweep(shape)
		for p := sweep.From; p <= sweep.To; p++ {
			first := Target(shape, p)
			test.That(t, Target(shape, p), test.ShouldResemble, first)
		}
	}
}

func TestSquareWaypoints(t *testing.T) {
	test.That(t, SquareWaypoint(LastWaypoint), test.ShouldResemble, SquareWaypoint(FirstWaypoint))
	test.That(t, SquareWaypoint(1), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})

	// consecutive waypoints are adjacent corners: exactly one horizontal coordinate flips
	for i := FirstWaypoint; i < LastWaypoint; i++ {
		a, b := SquareWaypoint(i), SquareWaypoint(i+1)
		test.That(t, a.Z, test.ShouldEqual, b.Z)
		test.That(t, a.Distance(b), test.ShouldEqual, 4.)
	}

	corners := map[r3.Vector]struct{}{}
	for i := FirstWaypoint; i < LastWaypoint; i++ {
		corners[SquareWaypoint(i)] = struct{}{}
	}
	test.That(t, len(corners), test.ShouldEqual, 4)
}

func TestCircleBoundary(t *testing.T) {
	test.That(t, CircleShape(0), test.ShouldResemble, r3.Vector{X: 5, Y: 0, Z: 1})
	end := CircleShape(360)
	test.That(t, end.X, test.ShouldAlmostEqual, 5.)
	test.That(t, end.Y, test.ShouldAlmostEqual, 0.)
	test.That(t, end.Z, test.ShouldEqual, 1.)
	test.That(t, CircleShape(90).Y, test.ShouldAlmostEqual, 5.)

	for theta := 0; theta <= 360; theta++ {
		p := CircleShape(theta)
		test.That(t, r3.Vector{X: p.X, Y: p.Y}.Norm(), test.ShouldAlmostEqual, 5.)
	}
	test.That(t, StartPoint(ShapeCircle), test.ShouldResemble, CircleShape(0))
}

func TestEightSymmetry(t *testing.T) {
	for theta := 1; theta <= 180; theta++ {
		pos, neg := EightShape(theta), EightShape(-theta)
		test.That(t, neg.X, test.ShouldEqual, pos.X)
		test.That(t, neg.Y, test.ShouldEqual, -pos.Y)
		test.That(t, neg.Z, test.ShouldEqual, pos.Z)
	}
	// the lemniscate crosses itself at the origin
	test.That(t, EightShape(90).X, test.ShouldAlmostEqual, 0.)
	test.That(t, EightShape(90).Y, test.ShouldAlmostEqual, 0.)
}

func TestEllipseRange(t *testing.T) {
	const a, b, c = 5.0, 2.0, 2.5
	const eps = 1e-9
	for theta := 0; theta <= 360; theta++ {
		p := EllipseShape(theta)
		test.That(t, p.Y, test.ShouldEqual, 0.)
		test.That(t, p.X, test.ShouldBeBetweenOrEqual, -a-eps, a+eps)
		test.That(t, p.Z, test.ShouldBeBetweenOrEqual, c-b-eps, c+b+eps)
	}
	test.That(t, EllipseShape(90).Z, test.ShouldAlmostEqual, c+b)
	test.That(t, EllipseShape(270).Z, test.ShouldAlmostEqual, c-b)
}

func TestSweepRanges(t *testing.T) {
	test.That(t, Sweep(ShapeCircle), test.ShouldResemble, SweepRange{From: 0, To: 360})
	test.That(t, Sweep(ShapeEllipse).Steps(), test.ShouldEqual, 361)
	test.That(t, Sweep(ShapeEight), test.ShouldResemble, SweepRange{From: -180, To: 180})
	test.That(t, Sweep(ShapeEllipse), test.ShouldResemble, SweepRange{From: 0, To: 360})
	test.That(t, Sweep(ShapeSquare).Steps(), test.ShouldEqual, 5)
}
