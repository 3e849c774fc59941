// Package link connects the runner to a vehicle: setpoints go out, position
// telemetry comes back.
package link

import (
	"context"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/feedback"
)

// Default topics, as exposed by a MAVROS bridge.
const (
	DefaultPositionSetpointTopic = "mavros/setpoint_position/local"
	DefaultVelocitySetpointTopic = "mavros/setpoint_velocity/cmd_vel"
	DefaultLocalPositionTopic    = "mavros/local_position/local"
)

// PositionHandler receives position telemetry. It may be called from any goroutine.
type PositionHandler func(point r3.Vector, stamp time.Time)

// Link is a bidirectional connection to a vehicle. Publish is fire and forget.
type Link interface {
	control.Publisher
	SubscribePosition(handler PositionHandler) error
	Close(ctx context.Context) error
}

// Bind feeds every position received on l into fb.
func Bind(l Link, fb *feedback.Position) error {
	return l.SubscribePosition(func(point r3.Vector, stamp time.Time) {
		if stamp.IsZero() {
			fb.Update(point)
			return
		}
		fb.UpdateStamped(point, stamp)
	})
}
