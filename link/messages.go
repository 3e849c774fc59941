package link

import (
	"time"

	"github.com/golang/geo/r3"
)

// FrameID is the reference frame of every setpoint and position message.
const FrameID = "map"

// Time is a ROS style timestamp.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// NewTime converts t to a Time.
func NewTime(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return Time{Secs: t.Unix(), Nsecs: int64(t.Nanosecond())}
}

// Time converts back to a time.Time. The zero Time maps to the zero time.Time.
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs)
}

// Header is carried by every stamped message.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Vector3 is a free vector or a point.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewVector3 converts v.
func NewVector3(v r3.Vector) Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector converts back to r3.
func (v Vector3) Vector() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Quaternion is an orientation. Setpoints leave it at identity.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is a position and orientation.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseStamped is used both for position setpoints and for position telemetry.
type PoseStamped struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// NewPoseStamped builds a position message with identity orientation.
func NewPoseStamped(seq uint32, stamp time.Time, point r3.Vector) PoseStamped {
	return PoseStamped{
		Header: Header{Seq: seq, Stamp: NewTime(stamp), FrameID: FrameID},
		Pose: Pose{
			Position:    NewVector3(point),
			Orientation: Quaternion{W: 1},
		},
	}
}

// Point returns the message position.
func (p PoseStamped) Point() r3.Vector {
	return p.Pose.Position.Vector()
}

// Twist is a linear and angular velocity.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// TwistStamped carries velocity setpoints.
type TwistStamped struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}

// NewTwistStamped builds a velocity message with zero angular velocity.
func NewTwistStamped(seq uint32, stamp time.Time, linear r3.Vector) TwistStamped {
	return TwistStamped{
		Header: Header{Seq: seq, Stamp: NewTime(stamp), FrameID: FrameID},
		Twist:  Twist{Linear: NewVector3(linear)},
	}
}
