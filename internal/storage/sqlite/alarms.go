package sqlite

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		alarm.ID, alarm.Hour, alarm.Minute, alarm.Enabled, daysJSON,
		alarm.TargetSteps, alarm.SoundName, alarm.Label,
		formatTime(alarm.CreatedAt), formatTime(alarm.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alarm: %w", err)
	}

	return nil
}

func (s *Store) GetAlarm(id string) (models.Alarm, error) {
	row := s.db.QueryRow(`SELECT `+alarmColumns+` FROM alarms WHERE id = ?`, id)
	alarm, err := scanAlarm(row)
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

	alarm.UpdatedAt = time.Now()
	res, err := s.db.Exec(`
		UPDATE alarms
		SET hour = ?, minute = ?, enabled = ?, repeat_days = ?, target_steps = ?,
			sound_name = ?, label = ?, updated_at = ?
		WHERE id = ?
	`,
		alarm.Hour, alarm.Minute, alarm.Enabled, daysJSON, alarm.TargetSteps,
		alarm.SoundName, alarm.Label, formatTime(alarm.UpdatedAt), alarm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alarm %s: %w", alarm.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteAlarm(id string) error {
	res, err := s.db.Exec("DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
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
	var daysJSON, createdAt, updatedAt string

	if err := row.Scan(
		&alarm.ID, &alarm.Hour, &alarm.Minute, &alarm.Enabled, &daysJSON,
		&alarm.TargetSteps, &alarm.SoundName, &alarm.Label, &createdAt, &updatedAt,
	); err != nil {
		return models.Alarm{}, err
	}

	if err := json.Unmarshal([]byte(daysJSON), &alarm.RepeatDays); err != nil {
		return models.Alarm{}, fmt.Errorf("failed to unmarshal repeat days: %w", err)
	}
	alarm.Normalize()

	var err error
	if alarm.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Alarm{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if alarm.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Alarm{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

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
