// Package watch holds the long-running commands: the notification watcher and
// the ring screen it opens.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/notifier"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type WatchCmd struct {
	Interval time.Duration `help:"How often to check for due notifications." default:"5s"`
	Ring     bool          `help:"Open the ring screen in this terminal when an alarm fires."`
	Sensor   string        `help:"Override the configured step sensor for rings (mqtt, simulated)."`
	Once     bool          `help:"Deliver due notifications once and exit."`
}

// signalContext is swapped in tests.
var signalContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.NotificationsEnabled {
		ctx.Println("Notifications are disabled. Enable them with 'stepalarm settings --notifications-enabled'.")
		return nil
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	if c.Interval <= 0 {
		c.Interval = constants.DefaultWatchInterval
	}

	armed, err := ctx.EnsureScheduled()
	if err != nil {
		return fmt.Errorf("failed to schedule alarms: %w", err)
	}
	if armed > 0 {
		wlog().Info("Scheduled missing notifications", "count", armed)
	}

	deliverer, closeDeliverer, err := ctx.NewDeliverer(settings)
	if err != nil {
		return err
	}
	defer closeDeliverer()

	d := notifier.NewDispatcher(
		notifier.NewStoreCenter(ctx.Store),
		deliverer,
		notifier.WithGracePeriod(time.Duration(settings.NotificationGracePeriodMin)*time.Minute),
		notifier.WithLocation(loc),
		notifier.WithDispatchClock(ctx.Now),
		notifier.WithBurstEnd(ctx.RetireOneTime),
	)

	if c.Once {
		n, err := d.Tick(context.Background(), ctx.Now())
		if err != nil {
			return err
		}
		ctx.Printf("✓ Delivered %d notification(s) via %s\n", n, deliverer.Name())
		return nil
	}

	runCtx, stop := signalContext()
	defer stop()

	done := make(chan error, 1)
	go func() { done <- d.Run(runCtx, c.Interval) }()

	wlog().Info("Watching for alarms", "interval", c.Interval, "delivery", deliverer.Name(), "ring", c.Ring)
	ctx.Printf("👀 Watching for alarms (delivery: %s). Press Ctrl+C to stop.\n", deliverer.Name())

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case t := <-d.Triggers():
			if !c.Ring {
				continue
			}
			if err := c.handleTrigger(runCtx, ctx, t); err != nil {
				wlog().Error("Ring failed", "alarm", t.AlarmID, "error", err)
			}
			drain(d.Triggers())
		}
	}

	stop()
	runErr := <-done

	if err := warnTermination(ctx, d); err != nil {
		wlog().Warn("Failed to deliver termination warning", "error", err)
	}
	ctx.Println("Stopped watching.")
	return runErr
}

func (c *WatchCmd) handleTrigger(runCtx context.Context, ctx *cli.Context, t notifier.Trigger) error {
	alarm, err := ctx.Store.GetAlarm(t.AlarmID)
	if err != nil {
		return err
	}
	if !alarm.Enabled {
		return nil
	}
	snap, err := ringAlarm(runCtx, ctx, alarm, c.Sensor, false)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printOutcome(ctx, snap)
	return nil
}

// drain discards triggers that arrived while an alarm was ringing.
func drain(ch <-chan notifier.Trigger) {
	for {
		select {
		case t := <-ch:
			wlog().Debug("Ignoring trigger received during ring", "alarm", t.AlarmID, "id", t.NotificationID)
		default:
			return
		}
	}
}

func warnTermination(ctx *cli.Context, d *notifier.Dispatcher) error {
	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		return err
	}
	enabled := 0
	for _, a := range alarms {
		if a.Enabled {
			enabled++
		}
	}
	wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.WarnTermination(wctx, enabled)
}

// wlog tags watcher and ring log lines. Resolved per call so it follows logger.Init.
func wlog() *log.Logger {
	return logger.Component("watch")
}
