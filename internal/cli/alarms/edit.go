package alarms

import (
	"fmt"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/tui/forms"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type AlarmEditCmd struct {
	ID          string  `arg:"" help:"Alarm ID or unique prefix."`
	Time        *string `help:"New time (HH:MM)."`
	Days        *string `help:"New repeat days. Pass an empty string for a one-time alarm."`
	TargetSteps *int    `help:"New step target."`
	Sound       *string `help:"New sound name."`
	Label       *string `help:"New label."`
}

func (c *AlarmEditCmd) hasFlags() bool {
	return c.Time != nil || c.Days != nil || c.TargetSteps != nil || c.Sound != nil || c.Label != nil
}

func (c *AlarmEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarm, err := ctx.FindAlarm(c.ID)
	if err != nil {
		return err
	}

	if !c.hasFlags() {
		fm := forms.NewAlarmFormModel(alarm)
		if err := ctx.AlarmForm(fm); err != nil {
			return err
		}
		if err := fm.Apply(&alarm); err != nil {
			return err
		}
	} else {
		updated := alarm
		if c.Time != nil {
			if updated.Hour, updated.Minute, err = utils.ParseClock(*c.Time); err != nil {
				return err
			}
		}
		if c.Days != nil {
			if updated.RepeatDays, err = utils.ParseWeekdays(*c.Days); err != nil {
				return err
			}
		}
		if c.TargetSteps != nil {
			updated.TargetSteps = *c.TargetSteps
		}
		if c.Sound != nil {
			updated.SoundName = *c.Sound
		}
		if c.Label != nil {
			updated.Label = *c.Label
		}
		updated.Normalize()
		if err := updated.Validate(); err != nil {
			return err
		}
		alarm = updated
	}

	alarm.UpdatedAt = ctx.Now()
	if err := ctx.Store.UpdateAlarm(alarm); err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	if _, err := ctx.Reschedule(alarm); err != nil {
		return fmt.Errorf("alarm saved but scheduling failed: %w", err)
	}

	ctx.Printf("✓ Updated alarm %s: %s (%s)\n", shortID(alarm.ID), alarm.TimeString(), alarm.FormatRepeatDays())
	return nil
}
