package constants

const (
	// General Settings
	SettingNotificationsEnabled       = "notifications_enabled"
	SettingNotificationGracePeriodMin = "notification_grace_period_min"
	SettingDefaultTargetSteps         = "default_target_steps"
	SettingDefaultSound               = "default_sound"
	SettingSoundsDir                  = "sounds_dir"
	SettingTimezone                   = "timezone"
	SettingDelivery                   = "delivery"
	SettingSensor                     = "sensor"
	SettingMQTTBroker                 = "mqtt_broker"
	SettingMQTTTopicPrefix            = "mqtt_topic_prefix"

	// Emergency stop quota
	SettingEmergencyRemaining   = "emergency_stop_remaining"
	SettingEmergencyMaxPerMonth = "emergency_stop_max_per_month"
	SettingEmergencyLastReset   = "emergency_stop_last_reset"

	// Default Settings Values
	DefaultNotificationsEnabled       = true
	DefaultNotificationGracePeriodMin = 10
	DefaultTargetSteps                = 100
	DefaultSound                      = "default_alarm"
	DefaultSoundsDir                  = "~/.config/stepalarm/sounds"
	DefaultTimezone                   = "Local" // Use system local timezone by default
	DefaultDelivery                   = DeliveryTray
	DefaultSensor                     = SensorMQTT
	DefaultMQTTBroker                 = "tcp://127.0.0.1:1883"
	DefaultMQTTTopicPrefix            = "stepalarm"

	// Emergency stop defaults and bounds
	DefaultEmergencyMaxPerMonth = 3
	MinEmergencyMaxPerMonth     = 1
	MaxEmergencyMaxPerMonth     = 10
)
