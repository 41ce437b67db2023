package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"PriceCast/internal/domain/models"
)

// scriptedStream fails its first read session the way the live stream
// does: the error lands on the error channel and then both channels are
// closed. The second session ends cleanly.
type scriptedStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
}

func (s *scriptedStream) Connect(context.Context) error   { return nil }
func (s *scriptedStream) Subscribe(context.Context) error { return nil }
func (s *scriptedStream) Close() error                    { return nil }
func (s *scriptedStream) IsConnected() bool               { return true }

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *scriptedStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()

	ticks := make(chan *models.Tick, 1)
	errs := make(chan error, 1)
	if first {
		errs <- errors.New("websocket: close 1006 (abnormal closure)")
	}
	close(errs)
	close(ticks)
	return ticks, errs
}

func TestCollectorReconnectsWhenStreamBreaks(t *testing.T) {
	stream := &scriptedStream{}
	c := NewCollector(stream, &fakeTickStore{}, noopMetrics{}, newTestLogger(t))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	if stream.reconnects != 1 {
		t.Fatalf("reconnects = %d, want 1", stream.reconnects)
	}
	if stream.reads != 2 {
		t.Fatalf("read sessions = %d, want 2", stream.reads)
	}
}
