package feedback

import (
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPositionDefaultsToOrigin(t *testing.T) {
	p := NewPosition()
	test.That(t, p.Latest(), test.ShouldResemble, r3.Vector{})
	_, ok := p.Stamped()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, p.Updates(), test.ShouldEqual, uint64(0))
}

func TestPositionLastWriteWins(t *testing.T) {
	p := NewPosition()
	stamp := time.Unix(1700000000, 0)
	p.UpdateStamped(r3.Vector{X: 1}, stamp)
	p.Update(r3.Vector{X: 2, Y: 3, Z: 4})

	test.That(t, p.Latest(), test.ShouldResemble, r3.Vector{X: 2, Y: 3, Z: 4})
	sample, ok := p.Stamped()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sample.Stamp.After(stamp), test.ShouldBeTrue)
	test.That(t, p.Updates(), test.ShouldEqual, uint64(2))

	// an older stamp still replaces the value; there is no reordering
	p.UpdateStamped(r3.Vector{X: 9}, stamp)
	test.That(t, p.Latest(), test.ShouldResemble, r3.Vector{X: 9})
}

func TestPositionConcurrentAccess(t *testing.T) {
	p := NewPosition()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.Update(r3.Vector{X: float64(i), Y: float64(i), Z: float64(i)})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				// a sample is never torn between two writes
				latest := p.Latest()
				if latest.X != latest.Y || latest.Y != latest.Z {
					t.Errorf("torn read: %v", latest)
					return
				}
			}
		}()
	}
	wg.Wait()
	test.That(t, p.Latest(), test.ShouldResemble, r3.Vector{X: 999, Y: 999, Z: 999})
}
