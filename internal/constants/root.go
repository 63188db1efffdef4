package constants

import "time"

const (
	AppName            = "stepalarm"
	DisplayName        = "Step Alarm"
	DefaultKeyringUser = "database-connection"
	MQTTKeyringUser    = "mqtt-password"
	DefaultConfigPath  = "~/.config/stepalarm/stepalarm.db"
	EnvFileName        = ".env"
	Version            = "v0.3.0"

	// Environment overrides
	EnvDBConnection = "STEPALARM_DB_CONNECTION"
	EnvMQTTUsername = "STEPALARM_MQTT_USERNAME"
	EnvMQTTPassword = "STEPALARM_MQTT_PASSWORD"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MonthFormat is the layout used to persist the quota reset month (YYYY-MM)
	MonthFormat = "2006-01"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "stepalarm-"
	BackupFileSuffix = ".db"

	// Notification fan-out: one conceptual alarm occurrence becomes
	// NotificationRetryCount requests spaced NotificationRetrySpacing apart.
	NotificationRetryCount   = 10
	NotificationRetrySpacing = 30 * time.Second
	NotificationUrgency      = "time-sensitive"
	TerminationWarningID     = "app-terminated-warning"

	// Tray notifier constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "stepalarm-notifier.lock"
	NotificationDurationMs = 30000
	TrayAppIdentifier      = "com.julianstephens.stepalarm"
	TrayProcessPrefix      = "stepalarm-tray"
	TraySecretHeader       = "X-Stepalarm-Secret"

	// Watcher
	DefaultWatchInterval = 5 * time.Second

	// Audio
	SoundFileExtension = ".wav"
	FallbackToneHz     = 880
	FallbackToneLength = 400 * time.Millisecond
	FallbackToneEvery  = 1500 * time.Millisecond
	AudioSampleRate    = 44100
	AudioChannels      = 2

	// MQTT
	MQTTStepsTopic         = "steps"
	MQTTNotificationsTopic = "notifications"
	MQTTSessionTopic       = "steps/session"
	MQTTConnectTimeout     = 10 * time.Second
	MQTTDisconnectQuiesce  = 250

	// Delivery backends
	DeliveryTray   = "tray"
	DeliveryMQTT   = "mqtt"
	DeliveryStdout = "stdout"

	// Sensor backends
	SensorMQTT      = "mqtt"
	SensorSimulated = "simulated"
)

// Sound describes a bundled alarm sound.
type Sound struct {
	Name        string
	DisplayName string
}

// Sounds is the catalogue of bundled alarm sounds.
var Sounds = []Sound{
	{Name: "default_alarm", DisplayName: "Default"},
	{Name: "gentle_morning", DisplayName: "Gentle Morning"},
	{Name: "digital_beep", DisplayName: "Digital"},
	{Name: "nature_birds", DisplayName: "Birdsong"},
	{Name: "energetic_beat", DisplayName: "Energy"},
}

// SoundDisplayName returns the label for a sound, or the name itself when unknown.
func SoundDisplayName(name string) string {
	for _, s := range Sounds {
		if s.Name == name {
			return s.DisplayName
		}
	}
	return name
}
