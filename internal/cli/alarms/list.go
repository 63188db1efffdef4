package alarms

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/utils"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type AlarmListCmd struct {
	All bool `short:"a" help:"Include disabled alarms."`
}

func (c *AlarmListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}

	var shown []models.Alarm
	for _, a := range alarms {
		if a.Enabled || c.All {
			shown = append(shown, a)
		}
	}
	if len(shown) == 0 {
		if len(alarms) > 0 {
			ctx.Println("No enabled alarms. Use --all to show disabled ones.")
		} else {
			ctx.Println("No alarms yet. Add one with 'stepalarm alarm add 07:00'.")
		}
		return nil
	}

	sort.Slice(shown, func(i, j int) bool {
		if shown[i].Hour != shown[j].Hour {
			return shown[i].Hour < shown[j].Hour
		}
		return shown[i].Minute < shown[j].Minute
	})

	now, err := ctx.Clock()
	if err != nil {
		return err
	}

	ctx.Println(headerStyle.Render(fmt.Sprintf("%-9s %-6s %-22s %-7s %-15s %s", "ID", "TIME", "REPEAT", "STEPS", "SOUND", "NEXT")))
	for _, a := range shown {
		next := "-"
		if a.Enabled {
			next = utils.NextOccurrence(a, now).Format("Mon Jan 2 15:04")
		}
		line := fmt.Sprintf("%-9s %-6s %-22s %-7d %-15s %s",
			shortID(a.ID), a.TimeString(), a.FormatRepeatDays(), a.TargetSteps, constants.SoundDisplayName(a.SoundName), next)
		if a.Label != "" {
			line += "  " + a.Label
		}
		if !a.Enabled {
			line = disabledStyle.Render(line + "  (disabled)")
		}
		ctx.Println(line)
	}
	return nil
}
