package models

// Settings represents application-wide settings
type Settings struct {
	NotificationsEnabled       bool   `json:"notifications_enabled"`         // whether the watcher delivers notifications
	NotificationGracePeriodMin int    `json:"notification_grace_period_min"` // notifications older than this are skipped
	DefaultTargetSteps         int    `json:"default_target_steps"`          // step target for new alarms
	DefaultSound               string `json:"default_sound"`                 // sound for new alarms
	SoundsDir                  string `json:"sounds_dir"`                    // directory holding <sound>.wav files
	Timezone                   string `json:"timezone"`                      // IANA timezone name or "Local"
	Delivery                   string `json:"delivery"`                      // tray, mqtt or stdout
	Sensor                     string `json:"sensor"`                        // mqtt or simulated
	MQTTBroker                 string `json:"mqtt_broker"`                   // e.g. tcp://127.0.0.1:1883
	MQTTTopicPrefix            string `json:"mqtt_topic_prefix"`             // topics are <prefix>/steps and <prefix>/notifications
}
