package quota

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

// memStore is an in-memory quota store.
type memStore struct {
	mu      sync.Mutex
	q       *models.EmergencyQuota
	saves   int
	saveErr error
	getErr  error
}

func (m *memStore) UpdateQuota(fn func(q *models.EmergencyQuota, found bool) (bool, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}

	var q models.EmergencyQuota
	found := m.q != nil
	if found {
		q = *m.q
	}
	changed, err := fn(&q, found)
	if err != nil || !changed {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.q = &q
	m.saves++
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestTracker(store *memStore, at time.Time) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: at}
	return NewTracker(store, WithClock(clock.Now)), clock
}

func oct(day int) time.Time {
	return time.Date(2026, time.October, day, 7, 0, 0, 0, time.UTC)
}

func TestFirstUseInitializesDefault(t *testing.T) {
	store := &memStore{}
	tracker, _ := newTestTracker(store, oct(17))

	remaining, err := tracker.Remaining()
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 3 {
		t.Errorf("expected default of 3, got %d", remaining)
	}
	if store.q == nil || store.q.LastResetMonth != time.October || store.q.LastResetYear != 2026 {
		t.Errorf("expected initialized state to be persisted, got %+v", store.q)
	}
}

func TestUseUntilExhausted(t *testing.T) {
	store := &memStore{}
	tracker, _ := newTestTracker(store, oct(17))

	for i := 0; i < 3; i++ {
		ok, err := tracker.Use()
		if err != nil {
			t.Fatalf("Use #%d failed: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("Use #%d should succeed", i+1)
		}
	}

	savesBefore := store.saves
	ok, err := tracker.Use()
	if err != nil {
		t.Fatalf("Use on exhausted quota returned error: %v", err)
	}
	if ok {
		t.Error("Use should fail once exhausted")
	}
	if store.q.Remaining != 0 {
		t.Errorf("remaining must stay at 0, got %d", store.q.Remaining)
	}
	if store.saves != savesBefore {
		t.Error("rejected Use must not write state")
	}
}

func TestMonthRollover(t *testing.T) {
	store := &memStore{q: &models.EmergencyQuota{
		Remaining: 0, MaxPerMonth: 3, LastResetYear: 2026, LastResetMonth: time.October,
	}}
	tracker, clock := newTestTracker(store, oct(31))

	if ok, _ := tracker.Use(); ok {
		t.Fatal("quota should be exhausted within October")
	}

	clock.Set(time.Date(2026, time.November, 1, 0, 0, 1, 0, time.UTC))
	remaining, err := tracker.Remaining()
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 3 {
		t.Errorf("expected reset to 3 in November, got %d", remaining)
	}

	// Idempotent within the month
	if ok, _ := tracker.Use(); !ok {
		t.Fatal("Use should succeed after rollover")
	}
	remaining, _ = tracker.Remaining()
	if remaining != 2 {
		t.Errorf("second check in same month must not reset again, got %d", remaining)
	}
}

func TestSameMonthDifferentYearResets(t *testing.T) {
	store := &memStore{q: &models.EmergencyQuota{
		Remaining: 0, MaxPerMonth: 5, LastResetYear: 2025, LastResetMonth: time.October,
	}}
	tracker, _ := newTestTracker(store, oct(1))

	remaining, err := tracker.Remaining()
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 5 {
		t.Errorf("expected reset to 5, got %d", remaining)
	}
}

func TestReset(t *testing.T) {
	store := &memStore{}
	tracker, _ := newTestTracker(store, oct(17))

	tracker.Use()
	tracker.Use()
	if err := tracker.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	remaining, _ := tracker.Remaining()
	if remaining != 3 {
		t.Errorf("expected 3 after reset, got %d", remaining)
	}
}

func TestSetMaxPerMonth(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{10, false},
		{11, true},
	}

	for _, tt := range tests {
		store := &memStore{}
		tracker, _ := newTestTracker(store, oct(17))
		err := tracker.SetMaxPerMonth(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetMaxPerMonth(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidMax) {
			t.Errorf("expected ErrInvalidMax, got %v", err)
		}
	}

	store := &memStore{}
	tracker, clock := newTestTracker(store, oct(17))
	tracker.Use()
	if err := tracker.SetMaxPerMonth(5); err != nil {
		t.Fatalf("SetMaxPerMonth failed: %v", err)
	}
	remaining, _ := tracker.Remaining()
	if remaining != 2 {
		t.Errorf("current month must keep its remaining count, got %d", remaining)
	}

	clock.Set(time.Date(2026, time.November, 2, 7, 0, 0, 0, time.UTC))
	remaining, _ = tracker.Remaining()
	if remaining != 5 {
		t.Errorf("new max applies from the next reset, got %d", remaining)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("disk full")

	store := &memStore{getErr: boom}
	tracker, _ := newTestTracker(store, oct(17))
	if _, err := tracker.Use(); !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}

	store = &memStore{
		q:       &models.EmergencyQuota{Remaining: 2, MaxPerMonth: 3, LastResetYear: 2026, LastResetMonth: time.October},
		saveErr: boom,
	}
	tracker, _ = newTestTracker(store, oct(17))
	ok, err := tracker.Use()
	if ok || !errors.Is(err, boom) {
		t.Errorf("expected save error, got ok=%v err=%v", ok, err)
	}
}

func TestConcurrentUseNeverOverspends(t *testing.T) {
	store := &memStore{}
	tracker, _ := newTestTracker(store, oct(17))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tracker.Use()
			if err != nil {
				t.Errorf("Use failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 3 {
		t.Errorf("expected exactly 3 grants, got %d", granted)
	}
	if store.q.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", store.q.Remaining)
	}
}

func TestTrackersSharingStoreNeverOverspend(t *testing.T) {
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "quota.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SaveQuota(models.EmergencyQuota{
		Remaining: 1, MaxPerMonth: 3, LastResetYear: 2026, LastResetMonth: time.October,
	}); err != nil {
		t.Fatalf("SaveQuota failed: %v", err)
	}

	clock := &fakeClock{t: oct(17)}
	trackers := []*Tracker{
		NewTracker(store, WithClock(clock.Now)),
		NewTracker(store, WithClock(clock.Now)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(tr *Tracker) {
			defer wg.Done()
			ok, err := tr.Use()
			if err != nil {
				t.Errorf("Use failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(trackers[i%2])
	}
	wg.Wait()

	if granted != 1 {
		t.Errorf("expected exactly 1 grant across trackers, got %d", granted)
	}
	q, err := store.GetQuota()
	if err != nil {
		t.Fatalf("GetQuota failed: %v", err)
	}
	if q.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", q.Remaining)
	}
}
