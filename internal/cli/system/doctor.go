package system

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/stepalarm/internal/autostart"
	"github.com/julianstephens/stepalarm/internal/backup"
	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/mqtt"
	"github.com/julianstephens/stepalarm/internal/utils"
)

// SchemaInspector is implemented by stores that track schema versions.
type SchemaInspector interface {
	SchemaVersions() (current, latest int, err error)
}

type DoctorCmd struct{}

type checkLevel int

const (
	levelFail checkLevel = iota
	levelWarn
)

type check struct {
	name  string
	level checkLevel
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
	run     func(ctx *cli.Context) error
}

var doctorChecks = []check{
	{name: "Schema version", level: levelFail, needsDB: true, run: checkSchemaVersion},
	{name: "Alarm validation", level: levelFail, needsDB: true, run: checkAlarms},
	{name: "Notification coverage", level: levelFail, needsDB: true, run: checkNotificationCoverage},
	{name: "Clock/timezone", level: levelFail, needsDB: true, run: checkClockTimezone},
	{name: "Backups present", level: levelWarn, run: checkBackupsPresent},
	{name: "Alarm sound", level: levelWarn, needsDB: true, run: checkSound},
	{name: "MQTT broker", level: levelWarn, needsDB: true, run: checkBroker},
	{name: "Autostart", level: levelWarn, run: checkAutostart},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true

	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.level == levelWarn:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if s, ok := ctx.Store.(interface{ GetDB() *sql.DB }); ok && s.GetDB() != nil {
		var one int
		if err := s.GetDB().QueryRow("SELECT 1").Scan(&one); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	inspector, ok := ctx.Store.(SchemaInspector)
	if !ok {
		return nil
	}
	current, latest, err := inspector.SchemaVersions()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'stepalarm migrate')", current, latest)
	}
	return nil
}

func checkAlarms(ctx *cli.Context) error {
	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	seen := make(map[string]bool, len(alarms))
	for _, a := range alarms {
		if seen[a.ID] {
			return fmt.Errorf("duplicate alarm ID found: %s", a.ID)
		}
		seen[a.ID] = true
		if err := a.Validate(); err != nil {
			return fmt.Errorf("alarm %s: %w", a.ID, err)
		}
	}
	return nil
}

// checkNotificationCoverage flags enabled alarms with nothing pending. The
// watcher re-arms everything on start, so this usually means it is not running.
func checkNotificationCoverage(ctx *cli.Context) error {
	alarms, err := ctx.Store.GetAllAlarms()
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	var missing []string
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		ns, err := ctx.Store.GetNotificationsForAlarm(a.ID)
		if err != nil {
			return fmt.Errorf("failed to get notifications for %s: %w", a.ID, err)
		}
		pending := false
		for _, n := range ns {
			if n.IsPending() {
				pending = true
				break
			}
		}
		if !pending {
			missing = append(missing, a.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d enabled alarm(s) have no pending notifications: %v (run 'stepalarm watch')", len(missing), missing)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !utils.ValidateTimezone(settings.Timezone) {
		return fmt.Errorf("invalid timezone %q", settings.Timezone)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if ctx.Location.Postgres {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'stepalarm backup create'")
	}
	return nil
}

func checkSound(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	dir, err := cli.SoundsDir(settings)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, settings.DefaultSound+constants.SoundFileExtension)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s not found, alarms will fall back to a synthesized tone", path)
	}
	return nil
}

func checkBroker(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.Delivery != constants.DeliveryMQTT && settings.Sensor != constants.SensorMQTT {
		return nil
	}
	conn, err := ctx.Dial(mqtt.Config{
		Broker:   settings.MQTTBroker,
		ClientID: mqtt.ClientID("doctor"),
		Username: ctx.MQTT.Username,
		Password: ctx.MQTT.Password,
	})
	if err != nil {
		return fmt.Errorf("cannot reach %s: %v", settings.MQTTBroker, err)
	}
	conn.Disconnect()
	return nil
}

// autostartEnabled is swapped in tests.
var autostartEnabled = autostart.Enabled

func checkAutostart(_ *cli.Context) error {
	enabled, err := autostartEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("watcher does not start at login - run 'stepalarm autostart enable'")
	}
	return nil
}
