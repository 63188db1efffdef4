package utils

import (
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
)

// NextOccurrence returns the earliest instant at which the alarm's time of day
// occurs, consistent with its repeat days, evaluated in now's location.
//
// One-time alarms fire strictly after now: today if the time has not passed
// yet, otherwise tomorrow. Repeating alarms take the minimum over every
// selected weekday of the next occurrence at or after now.
func NextOccurrence(alarm models.Alarm, now time.Time) time.Time {
	if len(alarm.RepeatDays) == 0 {
		candidate := atTimeOfDay(now, 0, alarm.Hour, alarm.Minute)
		if !candidate.After(now) {
			candidate = atTimeOfDay(now, 1, alarm.Hour, alarm.Minute)
		}
		return candidate
	}

	var next time.Time
	for _, d := range alarm.RepeatDays {
		if d < 0 || d > 6 {
			continue
		}
		candidate := NextWeekdayOccurrence(alarm.Hour, alarm.Minute, time.Weekday(d), now)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

// NextWeekdayOccurrence returns the next hour:minute falling on weekday at or after now.
func NextWeekdayOccurrence(hour, minute int, weekday time.Weekday, now time.Time) time.Time {
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := atTimeOfDay(now, daysAhead, hour, minute)
	if candidate.Before(now) {
		candidate = atTimeOfDay(now, daysAhead+7, hour, minute)
	}
	return candidate
}

// atTimeOfDay builds the wall-clock time hour:minute, offsetDays after now's
// calendar date. Using time.Date keeps the wall-clock time across DST changes.
func atTimeOfDay(now time.Time, offsetDays, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+offsetDays, hour, minute, 0, 0, now.Location())
}
