// Package notifier turns alarms into timed notification bursts and delivers
// them when due.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/utils"
)

// Center holds scheduled notifications until they are delivered.
type Center interface {
	Add(ctx context.Context, n models.Notification) error
	// Remove drops pending and already delivered notifications.
	Remove(ctx context.Context, ids []string) error
	Due(ctx context.Context, now time.Time) ([]models.Notification, error)
	MarkDelivered(ctx context.Context, id string, at time.Time, next *time.Time) error
	ForAlarm(ctx context.Context, alarmID string) ([]models.Notification, error)
}

// Scheduler arms a burst of retries for each upcoming alarm occurrence.
type Scheduler struct {
	center  Center
	retries int
	spacing time.Duration
}

func NewScheduler(center Center) *Scheduler {
	return &Scheduler{
		center:  center,
		retries: constants.NotificationRetryCount,
		spacing: constants.NotificationRetrySpacing,
	}
}

// Schedule replaces the alarm's notifications with fresh bursts computed from
// now. A disabled alarm ends up with none.
func (s *Scheduler) Schedule(ctx context.Context, alarm models.Alarm, now time.Time) ([]models.Notification, error) {
	if err := s.Cancel(ctx, alarm.ID); err != nil {
		return nil, err
	}
	if !alarm.Enabled {
		logger.Debug("Alarm disabled, nothing scheduled", "alarm", alarm.ID)
		return nil, nil
	}

	var out []models.Notification
	if alarm.IsOneTime() {
		base := utils.NextOccurrence(alarm, now)
		out = append(out, s.burst(alarm, -1, base)...)
	} else {
		for _, d := range alarm.RepeatDays {
			base := utils.NextWeekdayOccurrence(alarm.Hour, alarm.Minute, time.Weekday(d), now)
			out = append(out, s.burst(alarm, d, base)...)
		}
	}

	for _, n := range out {
		if err := s.center.Add(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to schedule notification %s: %w", n.ID, err)
		}
	}

	logger.Info("Scheduled alarm notifications", "alarm", alarm.ID, "count", len(out))
	return out, nil
}

func (s *Scheduler) burst(alarm models.Alarm, weekday int, base time.Time) []models.Notification {
	out := make([]models.Notification, 0, s.retries)
	for i := 0; i < s.retries; i++ {
		out = append(out, models.Notification{
			ID:       NotificationID(alarm.ID, weekday, i),
			AlarmID:  alarm.ID,
			Weekday:  weekday,
			Retry:    i,
			FireAt:   base.Add(time.Duration(i) * s.spacing),
			Title:    Title(i),
			Subtitle: alarm.Label,
			Body:     Body(alarm.TargetSteps),
			Sound:    alarm.SoundName + constants.SoundFileExtension,
			Urgency:  constants.NotificationUrgency,
			Repeats:  weekday >= 0,
		})
	}
	return out
}

// Cancel removes every notification the alarm could own, pending or delivered.
func (s *Scheduler) Cancel(ctx context.Context, alarmID string) error {
	if err := s.center.Remove(ctx, NotificationIDs(alarmID, s.retries)); err != nil {
		return fmt.Errorf("failed to cancel notifications for %s: %w", alarmID, err)
	}
	return nil
}

// Dismiss is called once a ring session has ended. It drops the rest of the
// current burst. Repeating alarms are re-armed for their next occurrence after
// this burst; one-time alarms are returned disabled for the caller to persist.
func (s *Scheduler) Dismiss(ctx context.Context, alarm models.Alarm, now time.Time) (models.Alarm, error) {
	if alarm.IsOneTime() {
		alarm.Enabled = false
		return alarm, s.Cancel(ctx, alarm.ID)
	}
	_, err := s.Schedule(ctx, alarm, now.Add(time.Duration(s.retries)*s.spacing))
	return alarm, err
}

// Title varies with the retry index to escalate urgency.
func Title(retry int) string {
	switch {
	case retry == 0:
		return "⏰ Time to get up!"
	case retry <= 2:
		return "😴 Still sleeping?"
	default:
		return "🚨 Get up now!"
	}
}

func Body(targetSteps int) string {
	return fmt.Sprintf("Walk %d steps to stop the alarm", targetSteps)
}

// NotificationID builds <alarm>-<retry> for one-time alarms and
// <alarm>-d<weekday>-<retry> for repeating ones.
func NotificationID(alarmID string, weekday, retry int) string {
	if weekday < 0 {
		return fmt.Sprintf("%s-%d", alarmID, retry)
	}
	return fmt.Sprintf("%s-d%d-%d", alarmID, weekday, retry)
}

// NotificationIDs lists the whole identifier namespace of an alarm.
func NotificationIDs(alarmID string, retries int) []string {
	ids := make([]string, 0, retries*8)
	for i := 0; i < retries; i++ {
		ids = append(ids, NotificationID(alarmID, -1, i))
	}
	for d := 0; d < 7; d++ {
		for i := 0; i < retries; i++ {
			ids = append(ids, NotificationID(alarmID, d, i))
		}
	}
	return ids
}

// Identifier is a parsed notification ID.
type Identifier struct {
	AlarmID string
	Weekday int // -1 for one-time alarms
	Retry   int
}

var ErrNotNotificationID = errors.New("not a notification identifier")

// ParseIdentifier splits a notification ID into its parts.
func ParseIdentifier(id string) (Identifier, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrNotNotificationID, id)
	}

	retry, ok := smallInt(parts[len(parts)-1], constants.NotificationRetryCount-1)
	if !ok {
		return Identifier{}, fmt.Errorf("%w: %q", ErrNotNotificationID, id)
	}
	rest := parts[:len(parts)-1]

	weekday := -1
	if last := rest[len(rest)-1]; len(rest) > 1 && strings.HasPrefix(last, "d") {
		if d, ok := smallInt(strings.TrimPrefix(last, "d"), 6); ok {
			weekday = d
			rest = rest[:len(rest)-1]
		}
	}

	alarmID := strings.Join(rest, "-")
	if alarmID == "" {
		return Identifier{}, fmt.Errorf("%w: %q", ErrNotNotificationID, id)
	}
	return Identifier{AlarmID: alarmID, Weekday: weekday, Retry: retry}, nil
}

// ResolveAlarmID maps a notification ID back to the alarm it belongs to.
func ResolveAlarmID(id string) (string, error) {
	ident, err := ParseIdentifier(id)
	if err != nil {
		return "", err
	}
	return ident.AlarmID, nil
}

// smallInt parses a canonical decimal in [0, max].
func smallInt(s string, max int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}
