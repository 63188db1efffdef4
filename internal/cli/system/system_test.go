package system

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/config"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/mqtt"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

func setupTestInitDB(t *testing.T) (*cli.Context, string, *bytes.Buffer) {
	t.Helper()
	// Keep default paths such as the sounds directory out of the real home.
	t.Setenv("HOME", t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	var out bytes.Buffer
	ctx := cli.NewContext(store, config.StoreLocation{Value: dbPath})
	ctx.Out = &out
	ctx.Now = func() time.Time { return time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC) }
	ctx.Dial = func(mqtt.Config) (mqtt.Conn, error) { return nil, errors.New("no broker") }
	return ctx, dbPath, &out
}

// useSoundsDir points the sounds directory into the test's temp dir.
func useSoundsDir(t *testing.T, ctx *cli.Context) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sounds")
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	settings.SoundsDir = dir
	if err := ctx.Store.SaveSettings(settings); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
	return dir
}

// stubAutostart replaces the login item backend with an in-memory flag.
func stubAutostart(t *testing.T, initial bool) *bool {
	t.Helper()
	origSet, origEnabled := setAutostart, autostartEnabled
	t.Cleanup(func() { setAutostart, autostartEnabled = origSet, origEnabled })

	enabled := initial
	autostartEnabled = func() (bool, error) { return enabled, nil }
	return &enabled
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath, _ := setupTestInitDB(t)
	// Init writes the default sound into the configured directory, so seed the
	// settings first.
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	dir := useSoundsDir(t, ctx)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.DefaultSound+constants.SoundFileExtension)); err != nil {
		t.Errorf("default sound was not installed: %v", err)
	}
}

func TestInitCmd_Force(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	useSoundsDir(t, ctx)
	if err := ctx.Store.AddAlarm(models.Alarm{ID: "a1", Hour: 7, Enabled: true, TargetSteps: 10, SoundName: "x"}); err != nil {
		t.Fatalf("failed to add alarm: %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		t.Fatalf("failed to get alarms: %v", err)
	}
	if len(alarms) != 0 {
		t.Errorf("expected empty database after --force, got %d alarms", len(alarms))
	}
	if !strings.Contains(out.String(), "Deleted existing database") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestInitCmd_MigratesFromSource(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.db")
	src := sqlite.NewStore(srcPath)
	if err := src.Init(); err != nil {
		t.Fatalf("failed to init source: %v", err)
	}
	for _, id := range []string{"a1", "a2"} {
		if err := src.AddAlarm(models.Alarm{ID: id, Hour: 7, Enabled: true, TargetSteps: 10, SoundName: "x", RepeatDays: []int{1}}); err != nil {
			t.Fatalf("failed to add alarm: %v", err)
		}
	}
	if err := src.SaveQuota(models.EmergencyQuota{Remaining: 1, MaxPerMonth: 4, LastResetYear: 2024, LastResetMonth: time.June}); err != nil {
		t.Fatalf("failed to save quota: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("failed to close source: %v", err)
	}

	ctx, _, _ := setupTestInitDB(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	useSoundsDir(t, ctx)

	if err := (&InitCmd{Source: srcPath}).Run(ctx); err != nil {
		t.Fatalf("init with source failed: %v", err)
	}
	alarms, _ := ctx.Store.GetAllAlarms()
	if len(alarms) != 2 {
		t.Errorf("expected 2 migrated alarms, got %d", len(alarms))
	}
	q, err := ctx.Store.GetQuota()
	if err != nil || q.MaxPerMonth != 4 || q.Remaining != 1 {
		t.Errorf("quota not migrated: %+v, %v", q, err)
	}
	ns, _ := ctx.Store.GetNotificationsForAlarm("a1")
	if len(ns) != constants.NotificationRetryCount {
		t.Errorf("expected notifications to be scheduled, got %d", len(ns))
	}
}

func TestInitCmd_ForceSameSource(t *testing.T) {
	ctx, dbPath, _ := setupTestInitDB(t)
	if err := (&InitCmd{Force: true, Source: dbPath}).Run(ctx); err == nil {
		t.Error("expected error when source equals destination")
	}
}

func TestMigrateCmd_UpToDate(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestDoctorCmd(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	stubAutostart(t, false)

	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	useSoundsDir(t, ctx)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed on a fresh database: %v\n%s", err, out.String())
	}
	for _, want := range []string{
		"✓ Database reachable: OK",
		"✓ Schema version: OK",
		"⚠ Backups present: WARNING",
		"⚠ MQTT broker: WARNING",
		"⚠ Autostart: WARNING",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}

	// An enabled alarm without notifications is an error.
	if err := ctx.Store.AddAlarm(models.Alarm{ID: "a1", Hour: 7, Enabled: true, TargetSteps: 10, SoundName: "x"}); err != nil {
		t.Fatalf("failed to add alarm: %v", err)
	}
	out.Reset()
	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Errorf("expected doctor to fail:\n%s", out.String())
	}

	if _, err := ctx.RescheduleAll(); err != nil {
		t.Fatalf("failed to reschedule: %v", err)
	}
	out.Reset()
	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("expected doctor to pass after scheduling: %v\n%s", err, out.String())
	}
}

func TestDoctorCmd_Uninitialized(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	stubAutostart(t, true)

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail without a database")
	}
	if !strings.Contains(out.String(), "⊘ Schema version: SKIPPED") {
		t.Errorf("expected skipped checks:\n%s", out.String())
	}
}

func TestAutostartCmds(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	enabled := stubAutostart(t, false)
	setAutostart = func(enable bool, _ ...string) (bool, error) {
		changed := enable != *enabled
		*enabled = enable
		return changed, nil
	}

	if err := (&AutostartEnableCmd{}).Run(ctx); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := (&AutostartEnableCmd{}).Run(ctx); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if err := (&AutostartStatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if err := (&AutostartDisableCmd{}).Run(ctx); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"will start at login", "already enabled", "Autostart is enabled", "Autostart disabled"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}
