package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/storage"
)

const alarmColumns = `id, hour, minute, enabled, repeat_days, target_steps, sound_name, label, created_at, updated_at`

func (s *Store) AddAlarm(alarm models.Alarm) error {
	alarm.Normalize()
	if err := alarm.Validate(); err != nil {
		return err
	}

	daysJSON, err := marshalDays(alarm.RepeatDays)
	if err != nil {
		return err
	}

	now := time.Now()
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = now
	}
	if alarm.UpdatedAt.IsZero() {
		alarm.UpdatedAt = now
	}

	_, err = s.db.Exec(`
		INSERT INTO alarms (`+alarmColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		alarm.ID, alarm.Hour, alarm.Minute, alarm.Enabled, daysJSON,
		alarm.TargetSteps, alarm.SoundName, alarm.Label, alarm.CreatedAt, alarm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alarm: %w", err)
	}
	return nil
}

func (s *Store) GetAlarm(id string) (models.Alarm, error) {
	alarm, err := scanAlarm(s.db.QueryRow(`SELECT `+alarmColumns+` FROM alarms WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return models.Alarm{}, fmt.Errorf("alarm %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Alarm{}, fmt.Errorf("failed to get alarm: %w", err)
	}
	return alarm, nil
}

func (s *Store) GetAllAlarms() ([]models.Alarm, error) {
	rows, err := s.db.Query(`SELECT ` + alarmColumns + ` FROM alarms ORDER BY hour ASC, minute ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []models.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarms = append(alarms, alarm)
	}
	return alarms, rows.Err()
}

func (s *Store) UpdateAlarm(alarm models.Alarm) error {
	alarm.Normalize()
	if err := alarm.Validate(); err != nil {
		return err
	}

	daysJSON, err := marshalDays(alarm.RepeatDays)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE alarms
		SET hour = $1, minute = $2, enabled = $3, repeat_days = $4, target_steps = $5,
			sound_name = $6, label = $7, updated_at = $8
		WHERE id = $9
	`,
		alarm.Hour, alarm.Minute, alarm.Enabled, daysJSON, alarm.TargetSteps,
		alarm.SoundName, alarm.Label, time.Now(), alarm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	return requireRow(res, alarm.ID)
}

func (s *Store) DeleteAlarm(id string) error {
	res, err := s.db.Exec("DELETE FROM alarms WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alarm %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row rowScanner) (models.Alarm, error) {
	var alarm models.Alarm
	var daysJSON string

	if err := row.Scan(
		&alarm.ID, &alarm.Hour, &alarm.Minute, &alarm.Enabled, &daysJSON,
		&alarm.TargetSteps, &alarm.SoundName, &alarm.Label, &alarm.CreatedAt, &alarm.UpdatedAt,
	); err != nil {
		return models.Alarm{}, err
	}

	if err := json.Unmarshal([]byte(daysJSON), &alarm.RepeatDays); err != nil {
		return models.Alarm{}, fmt.Errorf("failed to unmarshal repeat days: %w", err)
	}
	alarm.Normalize()
	return alarm, nil
}

func marshalDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("failed to marshal repeat days: %w", err)
	}
	return string(b), nil
}
