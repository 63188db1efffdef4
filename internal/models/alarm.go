package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Alarm struct {
	ID          string    `json:"id"`
	Hour        int       `json:"hour"`        // 0-23
	Minute      int       `json:"minute"`      // 0-59
	Enabled     bool      `json:"enabled"`     // disabled alarms are never scheduled
	RepeatDays  []int     `json:"repeat_days"` // 0=Sunday..6=Saturday, empty fires once
	TargetSteps int       `json:"target_steps"`
	SoundName   string    `json:"sound_name"`
	Label       string    `json:"label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Alarm) Validate() error {
	if a.Hour < 0 || a.Hour > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", a.Hour)
	}
	if a.Minute < 0 || a.Minute > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", a.Minute)
	}
	if a.TargetSteps <= 0 {
		return fmt.Errorf("target steps must be positive, got %d", a.TargetSteps)
	}
	if strings.TrimSpace(a.SoundName) == "" {
		return fmt.Errorf("sound name cannot be empty")
	}

	seen := make(map[int]bool, len(a.RepeatDays))
	for _, d := range a.RepeatDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid repeat day %d (expected 0=Sunday..6=Saturday)", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate repeat day %d", d)
		}
		seen[d] = true
	}

	return nil
}

// Normalize sorts repeat days and drops duplicates.
func (a *Alarm) Normalize() {
	if len(a.RepeatDays) == 0 {
		a.RepeatDays = nil
		return
	}
	seen := make(map[int]bool, len(a.RepeatDays))
	days := make([]int, 0, len(a.RepeatDays))
	for _, d := range a.RepeatDays {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Ints(days)
	a.RepeatDays = days
}

// IsOneTime reports whether the alarm fires only at its next occurrence.
func (a *Alarm) IsOneTime() bool {
	return len(a.RepeatDays) == 0
}

// RepeatsOn reports whether the alarm is scheduled on the given weekday.
func (a *Alarm) RepeatsOn(wd time.Weekday) bool {
	for _, d := range a.RepeatDays {
		if time.Weekday(d) == wd {
			return true
		}
	}
	return false
}

// TimeString formats the alarm time as H:MM.
func (a *Alarm) TimeString() string {
	return fmt.Sprintf("%d:%02d", a.Hour, a.Minute)
}

// FormatRepeatDays returns a human-readable description of the repeat rule.
func (a *Alarm) FormatRepeatDays() string {
	if len(a.RepeatDays) == 0 {
		return "Once"
	}

	days := append([]int(nil), a.RepeatDays...)
	sort.Ints(days)

	switch {
	case len(days) == 7:
		return "Every day"
	case equalInts(days, []int{1, 2, 3, 4, 5}):
		return "Weekdays"
	case equalInts(days, []int{0, 6}):
		return "Weekends"
	}

	names := make([]string, len(days))
	for i, d := range days {
		names[i] = time.Weekday(d).String()[:3]
	}
	return strings.Join(names, " ")
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
