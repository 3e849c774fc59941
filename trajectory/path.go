package trajectory

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/offboard/utils"
)

// Fixed path geometry, meters.
const (
	squareHalfSide = 2.0
	altitude       = 1.0

	circleRadius = 5.0
	eightSize    = 5.0

	ellipseMajor  = 5.0
	ellipseMinor  = 2.0
	ellipseHeight = 2.5
)

// Square waypoints are indexed from FirstWaypoint to LastWaypoint. Index
// SquareTerminal ends the run.
const (
	FirstWaypoint  = 1
	LastWaypoint   = 5
	SquareTerminal = 6
)

// SquareWaypoint returns the square corner for waypoint index i in [1,5].
// Consecutive waypoints are adjacent corners and waypoint 5 closes the loop
// on waypoint 1.
func SquareWaypoint(i int) r3.Vector {
	corner := r3.Vector{X: squareHalfSide, Y: squareHalfSide, Z: altitude}
	switch i {
	case 2:
		return r3.Vector{X: -corner.X, Y: corner.Y, Z: corner.Z}
	case 3:
		return r3.Vector{X: -corner.X, Y: -corner.Y, Z: corner.Z}
	case 4:
		return r3.Vector{X: corner.X, Y: -corner.Y, Z: corner.Z}
	default:
		return corner
	}
}

// CircleShape returns the point at angle degrees on a horizontal circle.
func CircleShape(angle int) r3.Vector {
	theta := utils.DegToRad(float64(angle))
	return r3.Vector{
		X: circleRadius * math.Cos(theta),
		Y: circleRadius * math.Sin(theta),
		Z: altitude,
	}
}

// EightShape returns the point at angle degrees on a Gerono lemniscate.
func EightShape(angle int) r3.Vector {
	theta := utils.DegToRad(float64(angle))
	return r3.Vector{
		X: eightSize * math.Cos(theta),
		Y: eightSize * math.Sin(theta) * math.Cos(theta),
		Z: altitude,
	}
}

// EllipseShape returns the point at angle degrees on an ellipse standing in
// the xz plane, centered ellipseHeight above the origin.
func EllipseShape(angle int) r3.Vector {
	theta := utils.DegToRad(float64(angle))
	return r3.Vector{
		X: ellipseMajor * math.Cos(theta),
		Y: 0,
		Z: ellipseHeight + ellipseMinor*math.Sin(theta),
	}
}

// Target maps a shape and its progression value (waypoint index for the
// square, angle in degrees otherwise) to a target point. Values outside the
// shape's domain are not meaningful.
func Target(shape Shape, progression int) r3.Vector {
	switch shape {
	case ShapeCircle:
		return CircleShape(progression)
	case ShapeEight:
		return EightShape(progression)
	case ShapeEllipse:
		return EllipseShape(progression)
	default:
		return SquareWaypoint(progression)
	}
}

// StartPoint is where a sweep shape is entered before the sweep begins.
func StartPoint(shape Shape) r3.Vector {
	switch shape {
	case ShapeCircle:
		return r3.Vector{X: circleRadius, Y: 0, Z: altitude}
	case ShapeEight:
		return r3.Vector{X: 0, Y: 0, Z: altitude}
	case ShapeEllipse:
		return r3.Vector{X: 0, Y: 0, Z: ellipseHeight}
	default:
		return SquareWaypoint(FirstWaypoint)
	}
}

// SweepRange is an inclusive range of integer degrees.
type SweepRange struct {
	From int
	To   int
}

// Steps is the number of angles visited by the sweep.
func (r SweepRange) Steps() int {
	return r.To - r.From + 1
}

// Sweep returns the angle range of a sweep shape. The square has no sweep and
// gets its waypoint range instead.
func Sweep(shape Shape) SweepRange {
	switch shape {
	case ShapeCircle, ShapeEllipse:
		return SweepRange{From: 0, To: 360}
	case ShapeEight:
		return SweepRange{From: -180, To: 180}
	default:
		return SweepRange{From: FirstWaypoint, To: LastWaypoint}
	}
}
