package notifier

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
)

// Deliverer puts a notification in front of the user.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
	Name() string
}

// Trigger is emitted for every notification that was delivered, so the
// caller can start a ring session for the alarm.
type Trigger struct {
	AlarmID        string
	NotificationID string
	FireAt         time.Time
}

// Dispatcher polls the Center for due notifications and hands them to a Deliverer.
type Dispatcher struct {
	center    Center
	deliverer Deliverer
	grace     time.Duration
	loc       *time.Location
	now       func() time.Time
	triggers  chan Trigger
	burstEnd  func(ctx context.Context, alarmID string) error
}

type DispatcherOption func(*Dispatcher)

// WithGracePeriod sets how late a notification may be delivered before it is
// skipped. Zero disables the check.
func WithGracePeriod(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.grace = d }
}

// WithLocation sets the zone used to keep repeating notifications on the same
// wall-clock time when they are re-armed.
func WithLocation(loc *time.Location) DispatcherOption {
	return func(dp *Dispatcher) { dp.loc = loc }
}

func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(dp *Dispatcher) { dp.now = now }
}

// WithBurstEnd registers fn to run once a one-time alarm has no pending
// notification left, whether the last one was delivered or skipped as stale.
func WithBurstEnd(fn func(ctx context.Context, alarmID string) error) DispatcherOption {
	return func(dp *Dispatcher) { dp.burstEnd = fn }
}

func NewDispatcher(center Center, deliverer Deliverer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		center:    center,
		deliverer: deliverer,
		grace:     time.Duration(constants.DefaultNotificationGracePeriodMin) * time.Minute,
		loc:       time.Local,
		now:       time.Now,
		triggers:  make(chan Trigger, 16),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Triggers yields delivered notifications. Triggers are dropped when nobody
// keeps up with the channel.
func (d *Dispatcher) Triggers() <-chan Trigger {
	return d.triggers
}

// Tick delivers everything due at now and returns how many were sent.
// A failed delivery leaves the notification pending for the next tick.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) (int, error) {
	due, err := d.center.Due(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load due notifications: %w", err)
	}

	sent := 0
	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if d.grace > 0 && now.Sub(n.FireAt) > d.grace {
			logger.Warn("Skipping stale notification", "id", n.ID, "fire_at", n.FireAt, "grace", d.grace)
			if err := d.center.MarkDelivered(ctx, n.ID, now, d.rearm(n, now)); err != nil {
				return sent, err
			}
			d.finishBurst(ctx, n)
			continue
		}

		if err := d.deliverer.Deliver(ctx, n); err != nil {
			logger.Warn("Notification delivery failed", "id", n.ID, "via", d.deliverer.Name(), "error", err)
			continue
		}
		if err := d.center.MarkDelivered(ctx, n.ID, now, d.rearm(n, now)); err != nil {
			return sent, err
		}
		sent++
		logger.Debug("Notification delivered", "id", n.ID, "via", d.deliverer.Name())
		d.finishBurst(ctx, n)

		select {
		case d.triggers <- Trigger{AlarmID: n.AlarmID, NotificationID: n.ID, FireAt: n.FireAt}:
		default:
			logger.Warn("Trigger dropped, receiver is not keeping up", "id", n.ID)
		}
	}
	return sent, nil
}

// finishBurst calls the burst-end hook when n was the last pending
// notification of a one-time alarm.
func (d *Dispatcher) finishBurst(ctx context.Context, n models.Notification) {
	if n.Repeats || d.burstEnd == nil {
		return
	}
	ns, err := d.center.ForAlarm(ctx, n.AlarmID)
	if err != nil {
		logger.Warn("Failed to check remaining notifications", "alarm", n.AlarmID, "error", err)
		return
	}
	if slices.ContainsFunc(ns, models.Notification.IsPending) {
		return
	}
	if err := d.burstEnd(ctx, n.AlarmID); err != nil {
		logger.Warn("Burst end hook failed", "alarm", n.AlarmID, "error", err)
	}
}

// rearm returns the next weekly fire time for repeating notifications.
func (d *Dispatcher) rearm(n models.Notification, now time.Time) *time.Time {
	if !n.Repeats {
		return nil
	}
	next := n.FireAt.In(d.loc)
	for !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return &next
}

// Run ticks every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := d.Tick(ctx, d.now()); err != nil && ctx.Err() == nil {
		logger.Error("Dispatch failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Tick(ctx, d.now()); err != nil && ctx.Err() == nil {
				logger.Error("Dispatch failed", "error", err)
			}
		}
	}
}

// WarnTermination tells the user that alarms will not ring while the watcher
// is down. It is a no-op when there is nothing enabled to protect.
func (d *Dispatcher) WarnTermination(ctx context.Context, enabledAlarms int) error {
	if enabledAlarms == 0 {
		return nil
	}
	n := models.Notification{
		ID:      constants.TerminationWarningID,
		Weekday: -1,
		FireAt:  d.now(),
		Title:   "⚠️ Alarms paused",
		Body:    fmt.Sprintf("%s stopped watching. %d alarm(s) will not ring until it is restarted.", constants.DisplayName, enabledAlarms),
		Urgency: constants.NotificationUrgency,
	}
	return d.deliverer.Deliver(ctx, n)
}
