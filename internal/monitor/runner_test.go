package monitor

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/millwatch/millwatch/internal/config"
	"github.com/millwatch/millwatch/internal/health"
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/simulator"
)

type countingSink struct {
	mu sync.Mutex
	n  int
}

func (s *countingSink) Put(PredictionResult) {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestRun_TicksAndStops(t *testing.T) {
	sink := &countingSink{}
	c := newCoordinator(t, 2, WithVerdictSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() < 4 {
		select {
		case <-deadline:
			t.Fatal("no verdicts produced within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_SurvivesFailedTick(t *testing.T) {
	// No artifact loaded: every tick fails, but the loop must keep running
	// until cancelled.
	cfg := config.Defaults()
	fleet := simulator.NewFleet(2, cfg.Sensors, rand.New(rand.NewSource(7)))
	c := New(fleet, model.NewHandle(), health.New(health.PolicyFromConfig(cfg.Monitoring)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context deadline")
	}
}
