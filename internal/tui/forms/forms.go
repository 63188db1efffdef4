// Package forms holds the interactive huh forms used by the CLI.
package forms

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/utils"
)

// AlarmFormModel is the editable projection of an alarm.
type AlarmFormModel struct {
	Time        string
	Days        []int
	TargetSteps string
	Sound       string
	Label       string
	Enabled     bool
}

// NewAlarmFormModel seeds the form from an existing or default alarm.
func NewAlarmFormModel(a models.Alarm) *AlarmFormModel {
	return &AlarmFormModel{
		Time:        fmt.Sprintf("%02d:%02d", a.Hour, a.Minute),
		Days:        append([]int(nil), a.RepeatDays...),
		TargetSteps: strconv.Itoa(a.TargetSteps),
		Sound:       a.SoundName,
		Label:       a.Label,
		Enabled:     a.Enabled,
	}
}

// Apply copies the form values onto a, validating them.
func (fm *AlarmFormModel) Apply(a *models.Alarm) error {
	hour, minute, err := utils.ParseClock(fm.Time)
	if err != nil {
		return err
	}
	target, err := parseTarget(fm.TargetSteps)
	if err != nil {
		return err
	}

	updated := *a
	updated.Hour = hour
	updated.Minute = minute
	updated.RepeatDays = append([]int(nil), fm.Days...)
	updated.TargetSteps = target
	updated.SoundName = fm.Sound
	updated.Label = strings.TrimSpace(fm.Label)
	updated.Enabled = fm.Enabled
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return err
	}
	*a = updated
	return nil
}

func parseTarget(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("target steps must be a number")
	}
	if n <= 0 {
		return 0, fmt.Errorf("target steps must be positive")
	}
	return n, nil
}

func weekdayOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, 7)
	// Monday first, the way most alarm clocks list them.
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		opts = append(opts, huh.NewOption(d.String(), int(d)))
	}
	return opts
}

func soundOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(constants.Sounds))
	for _, s := range constants.Sounds {
		opts = append(opts, huh.NewOption(s.DisplayName, s.Name))
	}
	return opts
}

// NewAlarmForm creates a form for adding or editing an alarm.
func NewAlarmForm(fm *AlarmFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Time (HH:MM)").
				Value(&fm.Time).
				Validate(func(s string) error {
					_, _, err := utils.ParseClock(s)
					return err
				}),
			huh.NewMultiSelect[int]().
				Title("Repeat").
				Description("Leave empty to ring once").
				Options(weekdayOptions()...).
				Value(&fm.Days),
			huh.NewInput().
				Title("Steps to stop").
				Value(&fm.TargetSteps).
				Validate(func(s string) error {
					_, err := parseTarget(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Sound").
				Options(soundOptions()...).
				Value(&fm.Sound),
			huh.NewInput().
				Title("Label").
				Value(&fm.Label),
			huh.NewConfirm().
				Title("Enabled").
				Value(&fm.Enabled),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewConfirmForm asks a yes/no question.
func NewConfirmForm(title, description string, value *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(value),
		),
	).WithTheme(huh.ThemeDracula())
}

// Confirm runs a confirmation form in the terminal.
func Confirm(title, description string) (bool, error) {
	var ok bool
	if err := NewConfirmForm(title, description, &ok).Run(); err != nil {
		return false, err
	}
	return ok, nil
}
