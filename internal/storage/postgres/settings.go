package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/julianstephens/stepalarm/internal/constants"
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

	stmt, err := tx.Prepare(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`)
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

// quotaLockKey names the transaction-scoped advisory lock guarding the quota rows.
const quotaLockKey int64 = 0x5354455041 // "STEPA"

// quotaKeys is the fixed write order of the quota rows.
var quotaKeys = []string{
	constants.SettingEmergencyRemaining,
	constants.SettingEmergencyMaxPerMonth,
	constants.SettingEmergencyLastReset,
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func readQuota(q querier) (models.EmergencyQuota, error) {
	rows, err := q.Query(
		"SELECT key, value FROM settings WHERE key IN ($1, $2, $3)",
		constants.SettingEmergencyRemaining,
		constants.SettingEmergencyMaxPerMonth,
		constants.SettingEmergencyLastReset,
	)
	if err != nil {
		return models.EmergencyQuota{}, fmt.Errorf("failed to query quota: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.EmergencyQuota{}, err
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.EmergencyQuota{}, err
	}

	if len(values) < 3 {
		return models.EmergencyQuota{}, storage.ErrNotFound
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
	return readQuota(s.db)
}

func (s *Store) SaveQuota(q models.EmergencyQuota) error {
	return s.putValues(quotaValues(q))
}

// UpdateQuota serializes writers on an advisory lock held until commit, which
// also covers the first save when no quota rows exist yet.
func (s *Store) UpdateQuota(fn func(q *models.EmergencyQuota, found bool) (bool, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("SELECT pg_advisory_xact_lock($1)", quotaLockKey); err != nil {
		return fmt.Errorf("failed to lock emergency quota: %w", err)
	}

	q, err := readQuota(tx)
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
			if _, err := tx.Exec(`
				INSERT INTO settings (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
			`, key, values[key]); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}
	}

	return tx.Commit()
}
