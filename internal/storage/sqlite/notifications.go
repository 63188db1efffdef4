package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
)

const notificationColumns = `id, alarm_id, weekday, retry, fire_at, title, subtitle, body, sound, urgency, repeats, delivered_at`

// AddNotification inserts or replaces the notification with the same ID.
func (s *Store) AddNotification(n models.Notification) error {
	var deliveredAt *string
	if n.DeliveredAt != nil {
		str := formatTime(*n.DeliveredAt)
		deliveredAt = &str
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.AlarmID, n.Weekday, n.Retry, formatTime(n.FireAt),
		n.Title, n.Subtitle, n.Body, n.Sound, n.Urgency, n.Repeats, deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotificationsForAlarm(alarmID string) ([]models.Notification, error) {
	return s.queryNotifications(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE alarm_id = ?
		ORDER BY fire_at ASC, retry ASC
	`, alarmID)
}

func (s *Store) GetDueNotifications(now time.Time) ([]models.Notification, error) {
	return s.queryNotifications(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE fire_at <= ? AND (delivered_at IS NULL OR delivered_at < fire_at)
		ORDER BY fire_at ASC, retry ASC
	`, formatTime(now))
}

func (s *Store) MarkNotificationDelivered(id string, deliveredAt time.Time, nextFireAt *time.Time) error {
	var err error
	if nextFireAt != nil {
		_, err = s.db.Exec(
			"UPDATE notifications SET delivered_at = ?, fire_at = ? WHERE id = ?",
			formatTime(deliveredAt), formatTime(*nextFireAt), id,
		)
	} else {
		_, err = s.db.Exec(
			"UPDATE notifications SET delivered_at = ? WHERE id = ?",
			formatTime(deliveredAt), id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

func (s *Store) DeleteNotifications(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.Exec("DELETE FROM notifications WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func (s *Store) queryNotifications(query string, args ...any) ([]models.Notification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var fireAt string
		var deliveredAt *string

		if err := rows.Scan(
			&n.ID, &n.AlarmID, &n.Weekday, &n.Retry, &fireAt,
			&n.Title, &n.Subtitle, &n.Body, &n.Sound, &n.Urgency, &n.Repeats, &deliveredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if n.FireAt, err = parseTime(fireAt); err != nil {
			return nil, fmt.Errorf("failed to parse fire_at: %w", err)
		}
		if deliveredAt != nil {
			t, err := parseTime(*deliveredAt)
			if err != nil {
				return nil, fmt.Errorf("failed to parse delivered_at: %w", err)
			}
			n.DeliveredAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
