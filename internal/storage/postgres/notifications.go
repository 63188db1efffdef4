package postgres

import (
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/stepalarm/internal/models"
)

const notificationColumns = `id, alarm_id, weekday, retry, fire_at, title, subtitle, body, sound, urgency, repeats, delivered_at`

// AddNotification inserts the notification or replaces one with the same ID.
func (s *Store) AddNotification(n models.Notification) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			alarm_id = EXCLUDED.alarm_id, weekday = EXCLUDED.weekday, retry = EXCLUDED.retry,
			fire_at = EXCLUDED.fire_at, title = EXCLUDED.title, subtitle = EXCLUDED.subtitle,
			body = EXCLUDED.body, sound = EXCLUDED.sound, urgency = EXCLUDED.urgency,
			repeats = EXCLUDED.repeats, delivered_at = EXCLUDED.delivered_at
	`,
		n.ID, n.AlarmID, n.Weekday, n.Retry, n.FireAt,
		n.Title, n.Subtitle, n.Body, n.Sound, n.Urgency, n.Repeats, n.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotificationsForAlarm(alarmID string) ([]models.Notification, error) {
	return s.queryNotifications(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE alarm_id = $1
		ORDER BY fire_at ASC, retry ASC
	`, alarmID)
}

func (s *Store) GetDueNotifications(now time.Time) ([]models.Notification, error) {
	return s.queryNotifications(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE fire_at <= $1 AND (delivered_at IS NULL OR delivered_at < fire_at)
		ORDER BY fire_at ASC, retry ASC
	`, now)
}

func (s *Store) MarkNotificationDelivered(id string, deliveredAt time.Time, nextFireAt *time.Time) error {
	var err error
	if nextFireAt != nil {
		_, err = s.db.Exec(
			"UPDATE notifications SET delivered_at = $1, fire_at = $2 WHERE id = $3",
			deliveredAt, *nextFireAt, id,
		)
	} else {
		_, err = s.db.Exec(
			"UPDATE notifications SET delivered_at = $1 WHERE id = $2",
			deliveredAt, id,
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
	if _, err := s.db.Exec("DELETE FROM notifications WHERE id = ANY($1)", pq.Array(ids)); err != nil {
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
		var deliveredAt pq.NullTime

		if err := rows.Scan(
			&n.ID, &n.AlarmID, &n.Weekday, &n.Retry, &n.FireAt,
			&n.Title, &n.Subtitle, &n.Body, &n.Sound, &n.Urgency, &n.Repeats, &deliveredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if deliveredAt.Valid {
			t := deliveredAt.Time
			n.DeliveredAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
