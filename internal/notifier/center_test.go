package notifier

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/models"
)

// memCenter mirrors the store's due rule in memory.
type memCenter struct {
	mu    sync.Mutex
	items map[string]models.Notification
	err   error
}

func newMemCenter() *memCenter {
	return &memCenter{items: make(map[string]models.Notification)}
}

func (c *memCenter) Add(_ context.Context, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[n.ID] = n
	return nil
}

func (c *memCenter) Remove(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, id := range ids {
		delete(c.items, id)
	}
	return nil
}

func (c *memCenter) Due(_ context.Context, now time.Time) ([]models.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Notification
	for _, n := range c.items {
		if !n.FireAt.After(now) && n.IsPending() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (c *memCenter) MarkDelivered(_ context.Context, id string, at time.Time, next *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[id]
	if !ok {
		return errors.New("not found")
	}
	n.DeliveredAt = &at
	if next != nil {
		n.FireAt = *next
	}
	c.items[id] = n
	return nil
}

func (c *memCenter) ForAlarm(_ context.Context, alarmID string) ([]models.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Notification
	for _, n := range c.items {
		if n.AlarmID == alarmID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCenter) get(id string) (models.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[id]
	return n, ok
}

func (c *memCenter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
