// Package config resolves where data lives and which credentials to use.
// Values come from, in order: explicit flags, the environment (including a
// .env file), the OS keyring, then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/keyring"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/storage/postgres"
	"github.com/julianstephens/stepalarm/internal/utils"
)

// Source names where a resolved value came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceDefault Source = "default"
)

// StoreLocation is a resolved database location.
type StoreLocation struct {
	Value    string // expanded file path or PostgreSQL connection string
	Postgres bool
	Source   Source
}

// MQTTCredentials are optional broker credentials.
type MQTTCredentials struct {
	Username string
	Password string
}

// keyringGet is swapped out in tests.
var keyringGet = keyring.Get

// LoadEnv reads .env files from the working directory and the config directory.
// Existing environment variables win. Missing files are not an error.
func LoadEnv(configDir string) error {
	for _, path := range []string{constants.EnvFileName, filepath.Join(configDir, constants.EnvFileName)} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		logger.Debug("Loaded environment file", "path", path)
	}
	return nil
}

// ResolveStore picks the database location. flagValue is the --config flag;
// it only counts as explicit when it differs from the default path.
func ResolveStore(flagValue string) (StoreLocation, error) {
	if flagValue != "" && flagValue != constants.DefaultConfigPath {
		return newLocation(flagValue, SourceFlag)
	}

	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return newLocation(v, SourceEnv)
	}

	v, err := keyringGet(keyring.ConnectionString)
	switch {
	case err == nil && v != "":
		return newLocation(v, SourceKeyring)
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		logger.Debug("Keyring lookup failed", "error", err)
	}

	return newLocation(constants.DefaultConfigPath, SourceDefault)
}

func newLocation(value string, source Source) (StoreLocation, error) {
	if postgres.IsConnString(value) {
		// Secrets from the env or keyring may carry a password, a flag may not.
		if source == SourceFlag && postgres.HasEmbeddedCredentials(value) {
			return StoreLocation{}, postgres.ErrEmbeddedCredentials
		}
		return StoreLocation{Value: value, Postgres: true, Source: source}, nil
	}

	path, err := utils.ExpandPath(value)
	if err != nil {
		return StoreLocation{}, err
	}
	return StoreLocation{Value: path, Source: source}, nil
}

// ConfigDir returns the directory holding logs, backups and .env for a location.
// PostgreSQL users get the default local config directory.
func ConfigDir(loc StoreLocation) (string, error) {
	if !loc.Postgres {
		return filepath.Dir(loc.Value), nil
	}
	return DefaultConfigDir()
}

// DefaultConfigDir returns the directory of the default database path.
func DefaultConfigDir() (string, error) {
	path, err := utils.ExpandPath(constants.DefaultConfigPath)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// ResolveMQTTCredentials reads broker credentials from the environment, falling
// back to the keyring for the password.
func ResolveMQTTCredentials() MQTTCredentials {
	creds := MQTTCredentials{
		Username: os.Getenv(constants.EnvMQTTUsername),
		Password: os.Getenv(constants.EnvMQTTPassword),
	}
	if creds.Password == "" && creds.Username != "" {
		if v, err := keyringGet(keyring.MQTTPassword); err == nil {
			creds.Password = v
		}
	}
	return creds
}
