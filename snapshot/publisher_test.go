package snapshot

import (
	"sync"
	"testing"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/registry"
)

func TestPublisher_LatestNeverNil(t *testing.T) {
	p := NewPublisher()
	s := p.Latest()
	if s == nil {
		t.Fatal("Latest returned nil before first publish")
	}
	if s.Tick != 0 {
		t.Fatalf("expected tick 0, got %d", s.Tick)
	}
}

func TestPublisher_ReadersSeeWholeSnapshots(t *testing.T) {
	p := NewPublisher()

	// Writer publishes snapshots where every body agrees on the tick;
	// readers verify they never see a mix.
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for tick := uint64(1); tick <= 500; tick++ {
			s := New(tick)
			for i := uint32(0); i < 8; i++ {
				h := registry.Pack(ferricia.SubsystemPhysics, 1, i)
				s.Bodies[h] = BodyState{
					Handle:    h,
					Transform: ferricia.Transform{Position: ferricia.Vec3{X: float64(tick)}},
				}
			}
			p.Publish(s)
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := p.Latest()
				for _, b := range s.Bodies {
					if b.Transform.Position.X != float64(s.Tick) {
						t.Errorf("torn snapshot: body at %v in tick %d", b.Transform.Position.X, s.Tick)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
