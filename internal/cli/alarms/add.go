package alarms

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/tui/forms"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type AlarmAddCmd struct {
	Time        string `arg:"" optional:"" help:"Alarm time (HH:MM). Omit to open the interactive form."`
	Days        string `help:"Repeat days (e.g. mon,wed,fri, weekdays, weekends, daily). Empty rings once."`
	TargetSteps int    `help:"Steps required to stop the alarm. Defaults to the configured value."`
	Sound       string `help:"Sound name. Defaults to the configured value."`
	Label       string `help:"Label shown in notifications."`
	Disabled    bool   `help:"Create the alarm disabled."`
}

func (c *AlarmAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	now := ctx.Now()
	alarm := models.Alarm{
		ID:          uuid.New().String(),
		Enabled:     !c.Disabled,
		TargetSteps: settings.DefaultTargetSteps,
		SoundName:   settings.DefaultSound,
		Label:       c.Label,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if c.Time == "" {
		alarm.Hour, alarm.Minute = 7, 0
		fm := forms.NewAlarmFormModel(alarm)
		if err := ctx.AlarmForm(fm); err != nil {
			return err
		}
		if err := fm.Apply(&alarm); err != nil {
			return err
		}
	} else if err := c.apply(&alarm); err != nil {
		return err
	}

	if err := ctx.Store.AddAlarm(alarm); err != nil {
		return fmt.Errorf("failed to add alarm: %w", err)
	}

	n, err := ctx.Reschedule(alarm)
	if err != nil {
		return fmt.Errorf("alarm saved but scheduling failed: %w", err)
	}

	ctx.Printf("✓ Added alarm %s at %s (%s)\n", shortID(alarm.ID), alarm.TimeString(), alarm.FormatRepeatDays())
	if alarm.Enabled {
		ctx.Printf("  %d notifications scheduled\n", n)
	}
	return nil
}

func (c *AlarmAddCmd) apply(a *models.Alarm) error {
	hour, minute, err := utils.ParseClock(c.Time)
	if err != nil {
		return err
	}
	days, err := utils.ParseWeekdays(c.Days)
	if err != nil {
		return err
	}
	a.Hour, a.Minute, a.RepeatDays = hour, minute, days
	if c.TargetSteps != 0 {
		a.TargetSteps = c.TargetSteps
	}
	if c.Sound != "" {
		a.SoundName = c.Sound
	}
	a.Normalize()
	return a.Validate()
}

// shortID trims UUIDs for display. FindAlarm resolves unique prefixes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatNext(t time.Time, now time.Time) string {
	d := t.Sub(now).Round(time.Minute)
	return fmt.Sprintf("%s (in %s)", t.Format("Mon Jan 2 15:04"), formatDuration(d))
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
