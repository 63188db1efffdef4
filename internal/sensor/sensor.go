// Package sensor provides step-count sources for a ring session.
package sensor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Update is one cumulative step reading since the session epoch. An update
// with a non-nil Err is terminal; no further updates follow.
type Update struct {
	Steps int
	Err   error
}

// Sensor reports steps taken since a start instant.
type Sensor interface {
	// Available reports whether the source can be used at all.
	Available() bool
	// Start begins tracking from the given epoch. The channel is closed after
	// Stop, when ctx ends, or after a terminal error update.
	Start(ctx context.Context, from time.Time) (<-chan Update, error)
	// Stop halts tracking. Safe to call more than once.
	Stop()
}

var (
	ErrUnavailable    = errors.New("step counting is not available")
	ErrAlreadyStarted = errors.New("sensor already started")
)

const updateBuffer = 32

// feed delivers updates to one consumer. Sends never block: when the buffer
// is full the oldest reading is dropped, which is safe because readings are
// cumulative.
type feed struct {
	mu     sync.Mutex
	ch     chan Update
	closed bool
}

func newFeed() *feed {
	return &feed{ch: make(chan Update, updateBuffer)}
}

func (f *feed) send(u Update) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	for {
		select {
		case f.ch <- u:
			if u.Err != nil {
				f.closeLocked()
			}
			return true
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *feed) closeLocked() {
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
