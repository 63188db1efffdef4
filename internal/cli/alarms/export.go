package alarms

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/export"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type AlarmExportCmd struct {
	Output string `short:"o" help:"Write the calendar to this file instead of stdout."`
}

func (c *AlarmExportCmd) Run(ctx *cli.Context) error {
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

	var w io.Writer = ctx.Out
	if c.Output != "" {
		path, err := utils.ExpandPath(c.Output)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	n, err := export.Write(w, alarms, now)
	if err != nil {
		return fmt.Errorf("failed to export alarms: %w", err)
	}
	if c.Output != "" {
		ctx.Printf("✓ Exported %d alarm(s) to %s\n", n, c.Output)
	}
	return nil
}
