package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/storage"
)

func (s *Store) GetSettings() (models.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		data[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if _, ok := data[constants.SettingTimezone]; !ok {
		return models.Settings{}, fmt.Errorf("settings not found")
	}

	return models.MapToSettings(data)
}

func (s *Store) SaveSettings(settings models.Settings) error {
	return s.putValues(models.SettingsToMap(settings))
}

func (s *Store) putValues(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range values {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// quotaKeys is the fixed write order of the quota rows.
var quotaKeys = []string{
	constants.SettingEmergencyRemaining,
	constants.SettingEmergencyMaxPerMonth,
	constants.SettingEmergencyLastReset,
}

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getValue(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	return value, err
}

func readQuota(ctx context.Context, q querier) (models.EmergencyQuota, error) {
	values := make(map[string]string, len(quotaKeys))
	for _, key := range quotaKeys {
		v, err := getValue(ctx, q, key)
		if err != nil {
			return models.EmergencyQuota{}, err
		}
		values[key] = v
	}
	return models.QuotaFromValues(values)
}

func quotaValues(q models.EmergencyQuota) map[string]string {
	return map[string]string{
		constants.SettingEmergencyRemaining:   strconv.Itoa(q.Remaining),
		constants.SettingEmergencyMaxPerMonth: strconv.Itoa(q.MaxPerMonth),
		constants.SettingEmergencyLastReset:   q.LastResetString(),
	}
}

func (s *Store) GetQuota() (models.EmergencyQuota, error) {
	return readQuota(context.Background(), s.db)
}

func (s *Store) SaveQuota(q models.EmergencyQuota) error {
	return s.putValues(quotaValues(q))
}

// UpdateQuota takes the database write lock with BEGIN IMMEDIATE before
// reading, so a concurrent writer in this or another process waits on
// busy_timeout instead of interleaving its read-modify-write.
func (s *Store) UpdateQuota(fn func(q *models.EmergencyQuota, found bool) (bool, error)) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to lock emergency quota: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			logger.Warn("Failed to roll back emergency quota update", "error", rbErr)
		}
	}()

	q, err := readQuota(ctx, conn)
	found := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if !found {
		q = models.EmergencyQuota{}
	}

	changed, err := fn(&q, found)
	if err != nil {
		return err
	}
	if changed {
		values := quotaValues(q)
		for _, key := range quotaKeys {
			if _, err := conn.ExecContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, values[key]); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit emergency quota: %w", err)
	}
	return nil
}
