package models

import (
	"testing"
	"time"
)

func validAlarm() Alarm {
	return Alarm{
		ID:          "a1",
		Hour:        7,
		Minute:      0,
		Enabled:     true,
		TargetSteps: 100,
		SoundName:   "default_alarm",
	}
}

func TestAlarmValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Alarm)
		wantErr bool
	}{
		{name: "valid one-time", mutate: func(a *Alarm) {}, wantErr: false},
		{name: "valid weekdays", mutate: func(a *Alarm) { a.RepeatDays = []int{1, 2, 3, 4, 5} }, wantErr: false},
		{name: "hour too large", mutate: func(a *Alarm) { a.Hour = 24 }, wantErr: true},
		{name: "negative hour", mutate: func(a *Alarm) { a.Hour = -1 }, wantErr: true},
		{name: "minute too large", mutate: func(a *Alarm) { a.Minute = 60 }, wantErr: true},
		{name: "zero target steps", mutate: func(a *Alarm) { a.TargetSteps = 0 }, wantErr: true},
		{name: "negative target steps", mutate: func(a *Alarm) { a.TargetSteps = -5 }, wantErr: true},
		{name: "empty sound", mutate: func(a *Alarm) { a.SoundName = " " }, wantErr: true},
		{name: "repeat day out of range", mutate: func(a *Alarm) { a.RepeatDays = []int{7} }, wantErr: true},
		{name: "duplicate repeat day", mutate: func(a *Alarm) { a.RepeatDays = []int{1, 1} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAlarm()
			tt.mutate(&a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAlarmNormalize(t *testing.T) {
	a := validAlarm()
	a.RepeatDays = []int{5, 1, 3, 1, 5}
	a.Normalize()

	want := []int{1, 3, 5}
	if len(a.RepeatDays) != len(want) {
		t.Fatalf("expected %v, got %v", want, a.RepeatDays)
	}
	for i := range want {
		if a.RepeatDays[i] != want[i] {
			t.Errorf("expected %v, got %v", want, a.RepeatDays)
		}
	}
	if err := a.Validate(); err != nil {
		t.Errorf("normalized alarm should validate: %v", err)
	}

	empty := validAlarm()
	empty.RepeatDays = []int{}
	empty.Normalize()
	if empty.RepeatDays != nil {
		t.Errorf("expected nil repeat days, got %v", empty.RepeatDays)
	}
	if !empty.IsOneTime() {
		t.Error("expected alarm without repeat days to be one-time")
	}
}

func TestAlarmFormatRepeatDays(t *testing.T) {
	tests := []struct {
		days []int
		want string
	}{
		{nil, "Once"},
		{[]int{0, 1, 2, 3, 4, 5, 6}, "Every day"},
		{[]int{5, 4, 3, 2, 1}, "Weekdays"},
		{[]int{6, 0}, "Weekends"},
		{[]int{1, 3, 5}, "Mon Wed Fri"},
	}

	for _, tt := range tests {
		a := validAlarm()
		a.RepeatDays = tt.days
		if got := a.FormatRepeatDays(); got != tt.want {
			t.Errorf("FormatRepeatDays(%v) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestAlarmTimeStringAndRepeatsOn(t *testing.T) {
	a := validAlarm()
	a.Hour = 7
	a.Minute = 5
	if got := a.TimeString(); got != "7:05" {
		t.Errorf("TimeString() = %q, want %q", got, "7:05")
	}

	a.RepeatDays = []int{0, 6}
	if !a.RepeatsOn(time.Saturday) || !a.RepeatsOn(time.Sunday) {
		t.Error("expected alarm to repeat on weekends")
	}
	if a.RepeatsOn(time.Monday) {
		t.Error("did not expect alarm to repeat on Monday")
	}
}

func TestSettingsRoundTripThroughMap(t *testing.T) {
	s := DefaultSettings()
	s.Timezone = "Europe/London"
	s.NotificationsEnabled = false

	got, err := MapToSettings(SettingsToMap(s))
	if err != nil {
		t.Fatalf("MapToSettings failed: %v", err)
	}
	if got != s {
		t.Errorf("expected %+v, got %+v", s, got)
	}

	if _, err := MapToSettings(map[string]string{"default_target_steps": "many"}); err == nil {
		t.Error("expected error for non-numeric target steps")
	}
}

func TestQuotaValuesRoundTrip(t *testing.T) {
	q := EmergencyQuota{Remaining: 2, MaxPerMonth: 3, LastResetYear: 2026, LastResetMonth: time.October}
	if got := q.LastResetString(); got != "2026-10" {
		t.Fatalf("LastResetString() = %q, want 2026-10", got)
	}

	got, err := QuotaFromValues(map[string]string{
		"emergency_stop_remaining":     "2",
		"emergency_stop_max_per_month": "3",
		"emergency_stop_last_reset":    q.LastResetString(),
	})
	if err != nil {
		t.Fatalf("QuotaFromValues failed: %v", err)
	}
	if got != q {
		t.Errorf("expected %+v, got %+v", q, got)
	}

	if !q.SameMonth(time.Date(2026, time.October, 31, 23, 59, 0, 0, time.UTC)) {
		t.Error("expected same month")
	}
	if q.SameMonth(time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected different month")
	}
	if q.SameMonth(time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("same month in a different year must not match")
	}

	if _, err := QuotaFromValues(map[string]string{"emergency_stop_remaining": "x"}); err == nil {
		t.Error("expected parse error")
	}
}
