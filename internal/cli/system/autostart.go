package system

import (
	"github.com/julianstephens/stepalarm/internal/autostart"
	"github.com/julianstephens/stepalarm/internal/cli"
)

// setAutostart is swapped in tests.
var setAutostart = autostart.Set

type AutostartEnableCmd struct {
	Args []string `arg:"" optional:"" help:"Extra arguments passed to 'watch' at login."`
}

func (c *AutostartEnableCmd) Run(ctx *cli.Context) error {
	changed, err := setAutostart(true, c.Args...)
	if err != nil {
		return err
	}
	if !changed {
		ctx.Println("Autostart is already enabled")
		return nil
	}
	ctx.Println("✓ The watcher will start at login")
	return nil
}

type AutostartDisableCmd struct{}

func (c *AutostartDisableCmd) Run(ctx *cli.Context) error {
	changed, err := setAutostart(false)
	if err != nil {
		return err
	}
	if !changed {
		ctx.Println("Autostart is already disabled")
		return nil
	}
	ctx.Println("✓ Autostart disabled")
	ctx.Println("⚠ Alarms will not ring after a reboot until 'stepalarm watch' is started")
	return nil
}

type AutostartStatusCmd struct{}

func (c *AutostartStatusCmd) Run(ctx *cli.Context) error {
	enabled, err := autostartEnabled()
	if err != nil {
		return err
	}
	if enabled {
		ctx.Println("✓ Autostart is enabled")
	} else {
		ctx.Println("ℹ Autostart is disabled")
	}
	return nil
}
