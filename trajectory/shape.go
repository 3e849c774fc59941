// Package trajectory maps a path shape and a progression value to a 3D target point.
//
// All functions are pure. Angles are integer degrees; the coarse one degree
// discretization keeps the per-step rate of a sweep constant.
package trajectory

import (
	"github.com/pkg/errors"
)

// ErrUnknownShape is returned when a shape name cannot be resolved.
var ErrUnknownShape = errors.New("unknown path shape")

// Shape selects the path the vehicle follows.
type Shape int

const (
	// ShapeSquare visits the four corners of a square and returns to the first.
	ShapeSquare Shape = iota
	// ShapeCircle sweeps a horizontal circle.
	ShapeCircle
	// ShapeEight sweeps a Gerono lemniscate in the horizontal plane.
	ShapeEight
	// ShapeEllipse sweeps an ellipse in the vertical xz plane.
	ShapeEllipse
)

func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeCircle:
		return "circle"
	case ShapeEight:
		return "eight"
	case ShapeEllipse:
		return "ellipse"
	}
	return "unknown"
}

// IsSweep returns true for shapes driven by an angle rather than a waypoint index.
func (s Shape) IsSweep() bool {
	return s == ShapeCircle || s == ShapeEight || s == ShapeEllipse
}

// ParseShape resolves a shape selector string.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "square":
		return ShapeSquare, nil
	case "circle":
		return ShapeCircle, nil
	case "eight":
		return ShapeEight, nil
	case "ellipse":
		return ShapeEllipse, nil
	}
	return 0, errors.Wrapf(ErrUnknownShape, "%q", name)
}
