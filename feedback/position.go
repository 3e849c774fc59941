// Package feedback holds the most recently observed vehicle position.
package feedback

import (
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/atomic"
)

// Sample is a position observation and the time it was taken.
type Sample struct {
	Point r3.Vector
	Stamp time.Time
}

// Position is a last-write-wins cell for the vehicle position. One writer (the
// vehicle link) and any number of readers may use it concurrently. There is no
// history and no freshness check; readers always get the newest sample, which
// may be arbitrarily old.
type Position struct {
	latest  atomic.Value
	updates atomic.Uint64
}

// NewPosition returns an empty cell. Latest reports the origin until the first update.
func NewPosition() *Position {
	return &Position{}
}

// Latest returns the newest observed point, or the zero vector before any observation.
func (p *Position) Latest() r3.Vector {
	sample, _ := p.Stamped()
	return sample.Point
}

// Stamped returns the newest sample and whether any sample has been observed.
func (p *Position) Stamped() (Sample, bool) {
	sample, ok := p.latest.Load().(Sample)
	return sample, ok
}

// Update records point, stamped with the current time.
func (p *Position) Update(point r3.Vector) {
	p.UpdateStamped(point, time.Now())
}

// UpdateStamped records point with the stamp supplied by the link.
func (p *Position) UpdateStamped(point r3.Vector, stamp time.Time) {
	p.latest.Store(Sample{Point: point, Stamp: stamp})
	p.updates.Inc()
}

// Updates returns how many samples have been recorded.
func (p *Position) Updates() uint64 {
	return p.updates.Load()
}
