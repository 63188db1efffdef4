package alarms

import (
	"fmt"

	"github.com/julianstephens/stepalarm/internal/cli"
)

type AlarmEnableCmd struct {
	ID string `arg:"" help:"Alarm ID or unique prefix."`
}

func (c *AlarmEnableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.ID, true)
}

type AlarmDisableCmd struct {
	ID string `arg:"" help:"Alarm ID or unique prefix."`
}

func (c *AlarmDisableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.ID, false)
}

// setEnabled flips the flag and reschedules. Disabling cancels all pending
// notifications because Schedule clears the alarm first.
func setEnabled(ctx *cli.Context, ref string, enabled bool) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarm, err := ctx.FindAlarm(ref)
	if err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	if alarm.Enabled == enabled {
		ctx.Printf("Alarm %s is already %s\n", shortID(alarm.ID), state)
		return nil
	}

	alarm.Enabled = enabled
	alarm.UpdatedAt = ctx.Now()
	if err := ctx.Store.UpdateAlarm(alarm); err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	if _, err := ctx.Reschedule(alarm); err != nil {
		return fmt.Errorf("failed to reschedule alarm: %w", err)
	}

	ctx.Printf("✓ Alarm %s at %s %s\n", shortID(alarm.ID), alarm.TimeString(), state)
	return nil
}
