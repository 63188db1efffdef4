package settings

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/config"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	var out bytes.Buffer
	ctx := cli.NewContext(store, config.StoreLocation{Value: dbPath})
	ctx.Out = &out
	ctx.Now = func() time.Time { return time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC) }
	return ctx, &out
}

func TestSettingsCmd_List(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&SettingsCmd{List: true}).Run(ctx); err != nil {
		t.Errorf("settings list failed: %v", err)
	}
	if !strings.Contains(out.String(), constants.DefaultMQTTBroker) {
		t.Errorf("expected broker in listing, got %q", out.String())
	}
}

func TestSettingsCmd_Update(t *testing.T) {
	ctx, _ := setupTestDB(t)

	steps := 300
	delivery := constants.DeliveryStdout
	cmd := &SettingsCmd{DefaultTargetSteps: &steps, Delivery: &delivery}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if settings.DefaultTargetSteps != 300 || settings.Delivery != constants.DeliveryStdout {
		t.Errorf("settings not saved: %+v", settings)
	}
}

func TestSettingsCmd_Invalid(t *testing.T) {
	ctx, _ := setupTestDB(t)

	tz := "Mars/Olympus"
	delivery := "pigeon"
	sensor := "pedometer"
	steps := 0
	for _, cmd := range []*SettingsCmd{
		{Timezone: &tz},
		{Delivery: &delivery},
		{Sensor: &sensor},
		{DefaultTargetSteps: &steps},
	} {
		if err := cmd.Run(ctx); err == nil {
			t.Errorf("expected error for %+v", cmd)
		}
	}
}

func TestSettingsCmd_TimezoneReschedules(t *testing.T) {
	ctx, out := setupTestDB(t)
	alarm := models.Alarm{ID: "a1", Hour: 7, Enabled: true, TargetSteps: 10, SoundName: constants.DefaultSound}
	if err := ctx.Store.AddAlarm(alarm); err != nil {
		t.Fatalf("failed to add alarm: %v", err)
	}

	tz := "America/New_York"
	if err := (&SettingsCmd{Timezone: &tz}).Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	if !strings.Contains(out.String(), "Rescheduled 10 notifications") {
		t.Errorf("expected reschedule message, got %q", out.String())
	}

	ns, err := ctx.Store.GetNotificationsForAlarm("a1")
	if err != nil || len(ns) == 0 {
		t.Fatalf("expected notifications, got %v / %v", ns, err)
	}
	ny, _ := time.LoadLocation(tz)
	if got := ns[0].FireAt.In(ny); got.Hour() != 7 {
		t.Errorf("expected 07:00 New York, got %v", got)
	}
}
