// Package quota tracks the monthly emergency-stop allowance.
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
)

// Store persists quota state. storage.Provider satisfies it.
type Store interface {
	UpdateQuota(fn func(q *models.EmergencyQuota, found bool) (bool, error)) error
}

// ErrInvalidMax is returned by SetMaxPerMonth for values outside 1..10.
var ErrInvalidMax = fmt.Errorf("max per month must be between %d and %d",
	constants.MinEmergencyMaxPerMonth, constants.MaxEmergencyMaxPerMonth)

// Tracker grants emergency stops against a per-calendar-month allowance.
// Every call is one store transaction, so trackers in other processes sharing
// the database cannot overspend or lose an update.
type Tracker struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

type Option func(*Tracker)

// WithClock replaces time.Now. The clock's location decides month boundaries.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// refresh applies the first-use default and the monthly reset to q.
func (t *Tracker) refresh(q *models.EmergencyQuota, found bool) bool {
	now := t.now()
	if !found {
		*q = models.EmergencyQuota{
			Remaining:      constants.DefaultEmergencyMaxPerMonth,
			MaxPerMonth:    constants.DefaultEmergencyMaxPerMonth,
			LastResetYear:  now.Year(),
			LastResetMonth: now.Month(),
		}
		return true
	}
	if q.SameMonth(now) {
		return false
	}
	logger.Info("Resetting emergency stop quota for new month",
		"previous", q.LastResetString(), "max", q.MaxPerMonth)
	q.Remaining = q.MaxPerMonth
	q.LastResetYear = now.Year()
	q.LastResetMonth = now.Month()
	return true
}

// update refreshes the stored quota and applies fn in one store transaction.
// fn may be nil and reports whether it changed q.
func (t *Tracker) update(fn func(q *models.EmergencyQuota) bool) (models.EmergencyQuota, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out models.EmergencyQuota
	err := t.store.UpdateQuota(func(q *models.EmergencyQuota, found bool) (bool, error) {
		changed := t.refresh(q, found)
		if fn != nil && fn(q) {
			changed = true
		}
		out = *q
		return changed, nil
	})
	if err != nil {
		return models.EmergencyQuota{}, fmt.Errorf("failed to update emergency quota: %w", err)
	}
	return out, nil
}

// Use consumes one emergency stop. It returns false, with no state change,
// when the allowance for the current month is exhausted.
func (t *Tracker) Use() (bool, error) {
	granted := false
	q, err := t.update(func(q *models.EmergencyQuota) bool {
		if q.Remaining <= 0 {
			return false
		}
		q.Remaining--
		granted = true
		return true
	})
	if err != nil {
		return false, err
	}
	if !granted {
		logger.Info("Emergency stop rejected, quota exhausted")
		return false, nil
	}
	logger.Info("Emergency stop used", "remaining", q.Remaining)
	return true, nil
}

// Reset restores the full allowance and marks the current month as reset.
func (t *Tracker) Reset() error {
	_, err := t.update(func(q *models.EmergencyQuota) bool {
		now := t.now()
		q.Remaining = q.MaxPerMonth
		q.LastResetYear = now.Year()
		q.LastResetMonth = now.Month()
		return true
	})
	return err
}

// SetMaxPerMonth changes the allowance used by future resets. The remaining
// count for the current month is left untouched.
func (t *Tracker) SetMaxPerMonth(n int) error {
	if n < constants.MinEmergencyMaxPerMonth || n > constants.MaxEmergencyMaxPerMonth {
		return fmt.Errorf("%w, got %d", ErrInvalidMax, n)
	}
	_, err := t.update(func(q *models.EmergencyQuota) bool {
		q.MaxPerMonth = n
		return true
	})
	return err
}

// Remaining returns the stops left this month.
func (t *Tracker) Remaining() (int, error) {
	q, err := t.Snapshot()
	return q.Remaining, err
}

// MaxPerMonth returns the configured monthly allowance.
func (t *Tracker) MaxPerMonth() (int, error) {
	q, err := t.Snapshot()
	return q.MaxPerMonth, err
}

// Snapshot returns the current state after applying any pending monthly reset.
func (t *Tracker) Snapshot() (models.EmergencyQuota, error) {
	return t.update(nil)
}
