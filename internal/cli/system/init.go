package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/stepalarm/internal/audio"
	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/storage"
	"github.com/julianstephens/stepalarm/internal/storage/postgres"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to migrate data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if ctx.Location.Postgres {
			return errors.New("--force is only supported for SQLite databases")
		}
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized stepalarm storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Migrating data from: %s\n", c.Source)
		if err := c.migrateData(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	dir, err := cli.SoundsDir(settings)
	if err != nil {
		return err
	}
	path, created, err := audio.InstallDefaultSound(dir)
	if err != nil {
		ctx.Printf("⚠ Could not install default sound: %v\n", err)
	} else if created {
		ctx.Printf("Installed default alarm sound at: %s\n", path)
	}

	return nil
}

func (c *InitCmd) migrateData(ctx *cli.Context, sourcePath string) error {
	var sourceStore storage.Provider
	if postgres.IsConnString(sourcePath) {
		if valid, err := postgres.ValidateConnString(sourcePath); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return err
		}
		sourceStore = postgres.New(sourcePath)
	} else {
		sourceStore = sqlite.NewStore(sourcePath)
	}

	if err := sourceStore.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer sourceStore.Close()

	ctx.Println("  Migrating settings...")
	settings, err := sourceStore.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	ctx.Println("  Migrating emergency stop quota...")
	q, err := sourceStore.GetQuota()
	switch {
	case err == nil:
		if err := ctx.Store.SaveQuota(q); err != nil {
			return fmt.Errorf("failed to save quota to destination: %w", err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("failed to get quota from source: %w", err)
	}

	ctx.Println("  Migrating alarms...")
	alarms, err := sourceStore.GetAllAlarms()
	if err != nil {
		return fmt.Errorf("failed to get alarms from source: %w", err)
	}
	for _, alarm := range alarms {
		if err := ctx.Store.AddAlarm(alarm); err != nil {
			return fmt.Errorf("failed to add alarm %s: %w", alarm.ID, err)
		}
	}
	ctx.Printf("    Migrated %d alarms\n", len(alarms))

	// Fire times are recomputed rather than copied.
	n, err := ctx.RescheduleAll()
	if err != nil {
		return fmt.Errorf("failed to schedule notifications: %w", err)
	}
	ctx.Printf("    Scheduled %d notifications\n", n)

	return nil
}
