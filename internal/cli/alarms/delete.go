package alarms

import (
	"context"
	"fmt"

	"github.com/julianstephens/stepalarm/internal/cli"
)

type AlarmDeleteCmd struct {
	ID  string `arg:"" help:"Alarm ID or unique prefix."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *AlarmDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarm, err := ctx.FindAlarm(c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(
			fmt.Sprintf("Delete alarm %s?", alarm.TimeString()),
			fmt.Sprintf("%s, %s", alarm.FormatRepeatDays(), alarm.Label),
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()

	if err := ctx.Scheduler.Cancel(context.Background(), alarm.ID); err != nil {
		return fmt.Errorf("failed to cancel notifications: %w", err)
	}
	if err := ctx.Store.DeleteAlarm(alarm.ID); err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}

	ctx.Printf("✓ Deleted alarm %s\n", shortID(alarm.ID))
	return nil
}
