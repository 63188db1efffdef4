package alarms

import (
	"fmt"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type AlarmNextCmd struct{}

func (c *AlarmNextCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	now, err := ctx.Clock()
	if err != nil {
		return err
	}

	var next *models.Alarm
	for i := range alarms {
		a := &alarms[i]
		if !a.Enabled {
			continue
		}
		if next == nil || utils.NextOccurrence(*a, now).Before(utils.NextOccurrence(*next, now)) {
			next = a
		}
	}
	if next == nil {
		ctx.Println("No enabled alarms.")
		return nil
	}

	at := utils.NextOccurrence(*next, now)
	ctx.Printf("⏰ Next alarm: %s\n", formatNext(at, now))
	ctx.Printf("   %s, %d steps", next.FormatRepeatDays(), next.TargetSteps)
	if next.Label != "" {
		ctx.Printf(", %s", next.Label)
	}
	ctx.Println()
	return nil
}
