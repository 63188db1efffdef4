package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/keyring"
	"github.com/julianstephens/stepalarm/internal/storage/postgres"
)

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	Value string `arg:"" help:"PostgreSQL connection string, or the broker password with --mqtt."`
	MQTT  bool   `name:"mqtt" help:"Store the MQTT broker password instead of the database connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if cmd.MQTT {
		if strings.TrimSpace(cmd.Value) == "" {
			return errors.New("password cannot be empty")
		}
		if err := keyring.Set(keyring.MQTTPassword, cmd.Value); err != nil {
			return fmt.Errorf("failed to store MQTT password in keyring: %w", err)
		}
		ctx.Println("✓ MQTT password stored successfully in OS keyring")
		ctx.Println("  Set STEPALARM_MQTT_USERNAME so it is used when connecting")
		return nil
	}

	if !postgres.IsConnString(cmd.Value) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.Value); err != nil {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
			ctx.Println("   It will be stored as-is in the encrypted OS keyring, which is a secure place for credentials.")
			ctx.Println("   If you prefer to keep passwords separate from connection strings, consider using .pgpass or environment variables instead.")
		} else {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	}

	if err := keyring.SetConnectionString(cmd.Value); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	ctx.Println("✓ Connection string stored successfully in OS keyring")
	ctx.Println("  You can now use stepalarm without the --config flag")
	return nil
}

// KeyringGetCmd prints the stored connection string with the password masked
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'stepalarm keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	ctx.Println("Connection string retrieved from keyring:")
	ctx.Println(maskPassword(connStr))
	return nil
}

// KeyringDeleteCmd removes a secret from the OS keyring
type KeyringDeleteCmd struct {
	MQTT bool `name:"mqtt" help:"Delete the MQTT broker password instead of the connection string."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	name, label := keyring.ConnectionString, "connection string"
	if cmd.MQTT {
		name, label = keyring.MQTTPassword, "MQTT password"
	}

	if err := keyring.Delete(name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", label)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", label, err)
	}

	ctx.Printf("✓ %s deleted from OS keyring\n", strings.ToUpper(label[:1])+label[1:])
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")

	for _, s := range []struct{ name, label string }{
		{keyring.ConnectionString, "Connection string"},
		{keyring.MQTTPassword, "MQTT password"},
	} {
		_, err := keyring.Get(s.name)
		switch {
		case err == nil:
			ctx.Printf("✓ %s is stored in keyring\n", s.label)
		case errors.Is(err, keyring.ErrNotFound):
			ctx.Printf("ℹ No %s stored in keyring\n", strings.ToLower(s.label[:1])+s.label[1:])
		default:
			return fmt.Errorf("failed to read %s: %w", s.label, err)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			// The last @ separates user info from host
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		masked := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				masked = append(masked, "password=****")
			} else {
				masked = append(masked, part)
			}
		}
		return strings.Join(masked, " ")
	}

	return connStr
}
