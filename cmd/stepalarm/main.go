package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/cli/alarms"
	"github.com/julianstephens/stepalarm/internal/cli/backups"
	"github.com/julianstephens/stepalarm/internal/cli/quota"
	"github.com/julianstephens/stepalarm/internal/cli/settings"
	"github.com/julianstephens/stepalarm/internal/cli/system"
	"github.com/julianstephens/stepalarm/internal/cli/watch"
	"github.com/julianstephens/stepalarm/internal/config"
	"github.com/julianstephens/stepalarm/internal/constants"
	apperrors "github.com/julianstephens/stepalarm/internal/errors"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/storage"
	"github.com/julianstephens/stepalarm/internal/storage/postgres"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Database file path or PostgreSQL connection string. Credentials must NOT be embedded in the connection string; use STEPALARM_DB_CONNECTION, .pgpass, or the OS keyring instead." type:"string" default:"${default_config}"`
	Debug    bool   `help:"Log at debug level and mirror logs to stderr."`
	LogLevel string `help:"Log level (debug, info, warn, error)." name:"log-level"`

	Init    system.InitCmd    `cmd:"" help:"Initialize stepalarm storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`

	Alarm struct {
		Add     alarms.AlarmAddCmd     `cmd:"" help:"Add a new alarm."`
		Edit    alarms.AlarmEditCmd    `cmd:"" help:"Edit an existing alarm."`
		Delete  alarms.AlarmDeleteCmd  `cmd:"" help:"Delete an alarm."`
		List    alarms.AlarmListCmd    `cmd:"" help:"List alarms." default:"1"`
		Next    alarms.AlarmNextCmd    `cmd:"" help:"Show the next alarm to ring."`
		Enable  alarms.AlarmEnableCmd  `cmd:"" help:"Enable an alarm."`
		Disable alarms.AlarmDisableCmd `cmd:"" help:"Disable an alarm and cancel its notifications."`
		Export  alarms.AlarmExportCmd  `cmd:"" help:"Export enabled alarms as an iCalendar file."`
	} `cmd:"" help:"Manage alarms."`

	Ring  watch.RingCmd  `cmd:"" help:"Ring an alarm now. Walk the step target or use an emergency stop to dismiss it."`
	Watch watch.WatchCmd `cmd:"" help:"Deliver alarm notifications as they come due."`

	Quota struct {
		Show   quota.QuotaShowCmd   `cmd:"" help:"Show emergency stops left this month." default:"1"`
		Reset  quota.QuotaResetCmd  `cmd:"" help:"Restore the full monthly allowance."`
		SetMax quota.QuotaSetMaxCmd `cmd:"" name:"set-max" help:"Change the monthly allowance."`
	} `cmd:"" help:"Manage the emergency stop quota."`

	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`

	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`

	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a connection string or MQTT password in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`

	Autostart struct {
		Enable  system.AutostartEnableCmd  `cmd:"" help:"Start the watcher at login."`
		Disable system.AutostartDisableCmd `cmd:"" help:"Stop starting the watcher at login."`
		Status  system.AutostartStatusCmd  `cmd:"" help:"Show whether the watcher starts at login." default:"1"`
	} `cmd:"" help:"Manage starting the watcher at login."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Step-gated alarm clock: walk to turn it off."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
		},
	)

	// .env may name the database, so it is read from the default config
	// directory before the store is resolved.
	defaultDir, err := config.DefaultConfigDir()
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := config.LoadEnv(defaultDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	loc, err := config.ResolveStore(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	configDir, err := config.ConfigDir(loc)
	if err != nil {
		apperrors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir, Level: CLI.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	var store storage.Provider
	if loc.Postgres {
		store = postgres.New(loc.Value)
	} else {
		store = sqlite.NewStore(loc.Value)
	}
	defer store.Close()

	appCtx := cli.NewContext(store, loc)
	appCtx.ConfigDir = configDir
	appCtx.MQTT = config.ResolveMQTTCredentials()

	logger.Debug("Running command", "command", ctx.Command(), "store", store.GetConfigPath(), "source", loc.Source)

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
}
