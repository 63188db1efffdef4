package watch

import (
	"context"
	"fmt"
	"io"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/quota"
	"github.com/julianstephens/stepalarm/internal/ring"
	"github.com/julianstephens/stepalarm/internal/sensor"
	ringtui "github.com/julianstephens/stepalarm/internal/tui/ring"
)

type RingCmd struct {
	ID       string `arg:"" help:"Alarm ID, unique prefix, or notification ID."`
	Sensor   string `help:"Override the configured step sensor (mqtt, simulated)."`
	Headless bool   `help:"Print progress instead of opening the ring screen."`
}

func (c *RingCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	alarm, err := ctx.FindAlarm(c.ID)
	if err != nil {
		return err
	}

	snap, err := ringAlarm(context.Background(), ctx, alarm, c.Sensor, c.Headless)
	if err != nil {
		return err
	}
	printOutcome(ctx, snap)
	return nil
}

// present shows a running session until it ends. Swapped in tests.
var present = func(ctx *cli.Context, s *ring.Session, q *quota.Tracker, sim *sensor.Simulated, headless bool) error {
	if headless {
		follow(ctx.Out, s)
		return nil
	}
	var stepper ringtui.Stepper
	if sim != nil {
		stepper = sim
	}
	return ringtui.Run(s, q, stepper)
}

// ringAlarm rings alarm until the session ends, then dismisses it. A session
// closed before completion or an emergency stop is not dismissed, so the
// remaining retries keep firing.
func ringAlarm(parent context.Context, ctx *cli.Context, alarm models.Alarm, sensorKind string, headless bool) (ring.Snapshot, error) {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return ring.Snapshot{}, fmt.Errorf("failed to get settings: %w", err)
	}
	sens, sim, err := ctx.NewSensor(settings, sensorKind)
	if err != nil {
		return ring.Snapshot{}, err
	}
	soundsDir, err := cli.SoundsDir(settings)
	if err != nil {
		return ring.Snapshot{}, err
	}

	tracker := ctx.Quota()
	session := ring.NewSession(alarm, ctx.NewAudio(soundsDir), sens, tracker, ring.WithClock(ctx.Now))

	runCtx, cancel := context.WithCancel(parent)
	defer cancel()
	if err := session.Start(runCtx); err != nil {
		return ring.Snapshot{}, fmt.Errorf("failed to start ring session: %w", err)
	}

	presentErr := present(ctx, session, tracker, sim, headless)
	session.Close()
	snap := session.Snapshot()
	if presentErr != nil {
		return snap, presentErr
	}

	if snap.State == ring.Ringing {
		wlog().Info("Ring session closed before completion", "alarm", alarm.ID, "steps", snap.Steps)
		return snap, nil
	}

	if err := dismiss(ctx, alarm); err != nil {
		return snap, err
	}
	wlog().Info("Alarm dismissed", "alarm", alarm.ID, "state", snap.State, "steps", snap.Steps)
	return snap, nil
}

func dismiss(ctx *cli.Context, alarm models.Alarm) error {
	now, err := ctx.Clock()
	if err != nil {
		return err
	}
	updated, err := ctx.Scheduler.Dismiss(context.Background(), alarm, now)
	if err != nil {
		return fmt.Errorf("failed to dismiss alarm: %w", err)
	}
	if updated.Enabled != alarm.Enabled {
		updated.UpdatedAt = ctx.Now()
		if err := ctx.Store.UpdateAlarm(updated); err != nil {
			return fmt.Errorf("failed to update alarm: %w", err)
		}
	}
	return nil
}

// follow prints progress lines until the session ends.
func follow(w io.Writer, s *ring.Session) {
	last := -1
	for snap := range s.Updates() {
		if snap.SensorError != "" && last < 0 {
			fmt.Fprintf(w, "⚠ %s\n", snap.SensorError)
		}
		if snap.Steps != last {
			fmt.Fprintf(w, "  %d / %d steps\n", snap.Steps, snap.Target)
			last = snap.Steps
		}
	}
}

func printOutcome(ctx *cli.Context, snap ring.Snapshot) {
	switch snap.State {
	case ring.Completed:
		ctx.Printf("☀️  Good morning! %d steps walked.\n", snap.Steps)
	case ring.StoppedByEmergency:
		ctx.Println("✓ Alarm stopped with an emergency stop.")
	default:
		ctx.Println("⚠ Alarm closed before the step target was reached. It will ring again.")
	}
}
