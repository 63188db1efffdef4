package sensor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Simulated is a manually driven sensor used for development and tests.
type Simulated struct {
	mu          sync.Mutex
	unavailable bool
	steps       int
	feed        *feed
}

var _ Sensor = (*Simulated)(nil)

func NewSimulated() *Simulated {
	return &Simulated{}
}

// SetAvailable toggles whether Start succeeds.
func (s *Simulated) SetAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !ok
}

func (s *Simulated) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable
}

func (s *Simulated) Start(ctx context.Context, _ time.Time) (<-chan Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, ErrUnavailable
	}
	if s.feed != nil {
		return nil, ErrAlreadyStarted
	}

	s.steps = 0
	f := newFeed()
	s.feed = f
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		f.close()
		if s.feed == f {
			s.feed = nil
		}
	}()
	return f.ch, nil
}

// AddSteps adds n steps and publishes the new cumulative count.
// It is a no-op when the sensor is not running.
func (s *Simulated) AddSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed == nil {
		return
	}
	s.steps += n
	s.feed.send(Update{Steps: s.steps})
}

// Steps returns the cumulative count of the current run.
func (s *Simulated) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Fail publishes a terminal error, as a real pedometer losing access would.
func (s *Simulated) Fail(err error) {
	if err == nil {
		err = errors.New("simulated sensor failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed != nil {
		s.feed.send(Update{Steps: s.steps, Err: err})
	}
}

func (s *Simulated) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed != nil {
		s.feed.close()
		s.feed = nil
	}
}
