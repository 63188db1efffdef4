package notifier

import (
	"context"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
)

// NotificationStore is the persistence subset used by StoreCenter.
// storage.Provider satisfies it.
type NotificationStore interface {
	AddNotification(models.Notification) error
	GetNotificationsForAlarm(alarmID string) ([]models.Notification, error)
	GetDueNotifications(now time.Time) ([]models.Notification, error)
	MarkNotificationDelivered(id string, deliveredAt time.Time, nextFireAt *time.Time) error
	DeleteNotifications(ids []string) error
}

// StoreCenter keeps notifications in the application database so the watcher
// and one-shot commands share them.
type StoreCenter struct {
	store NotificationStore
}

var _ Center = (*StoreCenter)(nil)

func NewStoreCenter(store NotificationStore) *StoreCenter {
	return &StoreCenter{store: store}
}

func (c *StoreCenter) Add(_ context.Context, n models.Notification) error {
	return c.store.AddNotification(n)
}

func (c *StoreCenter) Remove(_ context.Context, ids []string) error {
	return c.store.DeleteNotifications(ids)
}

func (c *StoreCenter) Due(_ context.Context, now time.Time) ([]models.Notification, error) {
	return c.store.GetDueNotifications(now)
}

func (c *StoreCenter) MarkDelivered(_ context.Context, id string, at time.Time, next *time.Time) error {
	return c.store.MarkNotificationDelivered(id, at, next)
}

func (c *StoreCenter) ForAlarm(_ context.Context, alarmID string) ([]models.Notification, error) {
	return c.store.GetNotificationsForAlarm(alarmID)
}
