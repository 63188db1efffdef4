package models

import "time"

// Notification is a single scheduled delivery for one alarm occurrence and retry.
type Notification struct {
	ID          string     `json:"id"`
	AlarmID     string     `json:"alarm_id"`
	Weekday     int        `json:"weekday"` // -1 for one-time alarms
	Retry       int        `json:"retry"`
	FireAt      time.Time  `json:"fire_at"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Body        string     `json:"body"`
	Sound       string     `json:"sound"`
	Urgency     string     `json:"urgency"`
	Repeats     bool       `json:"repeats"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// IsPending reports whether the notification still has an undelivered fire time.
func (n Notification) IsPending() bool {
	return n.DeliveredAt == nil || n.DeliveredAt.Before(n.FireAt)
}
