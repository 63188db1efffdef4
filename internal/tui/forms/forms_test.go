package forms

import (
	"testing"

	"github.com/julianstephens/stepalarm/internal/models"
)

func baseAlarm() models.Alarm {
	return models.Alarm{
		ID:          "a1",
		Hour:        6,
		Minute:      5,
		Enabled:     true,
		RepeatDays:  []int{1, 3},
		TargetSteps: 100,
		SoundName:   "default_alarm",
		Label:       "Work",
	}
}

func TestNewAlarmFormModelSeeds(t *testing.T) {
	fm := NewAlarmFormModel(baseAlarm())
	if fm.Time != "06:05" || fm.TargetSteps != "100" || fm.Sound != "default_alarm" || !fm.Enabled {
		t.Errorf("unexpected seed %+v", fm)
	}
	if len(fm.Days) != 2 {
		t.Errorf("expected 2 days, got %v", fm.Days)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*AlarmFormModel)
		wantErr bool
		check   func(*testing.T, models.Alarm)
	}{
		{
			name: "changes time and days",
			edit: func(fm *AlarmFormModel) {
				fm.Time = "7:30"
				fm.Days = []int{5, 1, 5}
				fm.Label = "  Gym  "
			},
			check: func(t *testing.T, a models.Alarm) {
				if a.Hour != 7 || a.Minute != 30 {
					t.Errorf("time not applied: %d:%d", a.Hour, a.Minute)
				}
				if len(a.RepeatDays) != 2 || a.RepeatDays[0] != 1 || a.RepeatDays[1] != 5 {
					t.Errorf("days not normalized: %v", a.RepeatDays)
				}
				if a.Label != "Gym" {
					t.Errorf("label not trimmed: %q", a.Label)
				}
				if a.ID != "a1" {
					t.Error("id must be preserved")
				}
			},
		},
		{
			name: "clears days for one-time",
			edit: func(fm *AlarmFormModel) { fm.Days = nil },
			check: func(t *testing.T, a models.Alarm) {
				if !a.IsOneTime() {
					t.Errorf("expected one-time alarm, got %v", a.RepeatDays)
				}
			},
		},
		{name: "bad time", edit: func(fm *AlarmFormModel) { fm.Time = "25:00" }, wantErr: true},
		{name: "zero target", edit: func(fm *AlarmFormModel) { fm.TargetSteps = "0" }, wantErr: true},
		{name: "non-numeric target", edit: func(fm *AlarmFormModel) { fm.TargetSteps = "many" }, wantErr: true},
		{name: "empty sound", edit: func(fm *AlarmFormModel) { fm.Sound = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseAlarm()
			fm := NewAlarmFormModel(a)
			tt.edit(fm)
			err := fm.Apply(&a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if a.Hour != 6 || a.TargetSteps != 100 {
					t.Error("failed Apply must leave the alarm untouched")
				}
				return
			}
			tt.check(t, a)
		})
	}
}

func TestFormsBuild(t *testing.T) {
	fm := NewAlarmFormModel(baseAlarm())
	if NewAlarmForm(fm) == nil {
		t.Fatal("expected alarm form")
	}
	var ok bool
	if NewConfirmForm("Reset?", "", &ok) == nil {
		t.Fatal("expected confirm form")
	}
	if len(weekdayOptions()) != 7 || len(soundOptions()) != 5 {
		t.Error("unexpected option counts")
	}
}
