package storage

import (
	"errors"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Alarms
	AddAlarm(models.Alarm) error
	GetAlarm(id string) (models.Alarm, error)
	GetAllAlarms() ([]models.Alarm, error)
	UpdateAlarm(models.Alarm) error
	DeleteAlarm(id string) error

	// Emergency stop quota. GetQuota returns ErrNotFound before the first save.
	GetQuota() (models.EmergencyQuota, error)
	SaveQuota(models.EmergencyQuota) error
	// UpdateQuota runs fn on the stored quota inside a transaction that excludes
	// other writers, including other processes sharing the database. found is
	// false before the first save. The quota is written back only when fn
	// reports a change; an error from fn rolls back.
	UpdateQuota(fn func(q *models.EmergencyQuota, found bool) (bool, error)) error

	// Notifications
	AddNotification(models.Notification) error
	GetNotificationsForAlarm(alarmID string) ([]models.Notification, error)
	// GetDueNotifications returns pending notifications with a fire time at or before now,
	// ordered by fire time.
	GetDueNotifications(now time.Time) ([]models.Notification, error)
	// MarkNotificationDelivered records a delivery. When nextFireAt is non-nil the
	// notification is re-armed for that instant.
	MarkNotificationDelivered(id string, deliveredAt time.Time, nextFireAt *time.Time) error
	// DeleteNotifications removes pending and delivered notifications with the given IDs.
	DeleteNotifications(ids []string) error

	// Utils
	GetConfigPath() string
}
