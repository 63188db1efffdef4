package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/stepalarm/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
// Unknown keys, including the emergency quota keys, are ignored.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingNotificationsEnabled:
			settings.NotificationsEnabled = value == "true"
		case constants.SettingNotificationGracePeriodMin:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.NotificationGracePeriodMin = n
		case constants.SettingDefaultTargetSteps:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.DefaultTargetSteps = n
		case constants.SettingDefaultSound:
			settings.DefaultSound = value
		case constants.SettingSoundsDir:
			settings.SoundsDir = value
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingDelivery:
			settings.Delivery = value
		case constants.SettingSensor:
			settings.Sensor = value
		case constants.SettingMQTTBroker:
			settings.MQTTBroker = value
		case constants.SettingMQTTTopicPrefix:
			settings.MQTTTopicPrefix = value
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingNotificationsEnabled:       strconv.FormatBool(settings.NotificationsEnabled),
		constants.SettingNotificationGracePeriodMin: strconv.Itoa(settings.NotificationGracePeriodMin),
		constants.SettingDefaultTargetSteps:         strconv.Itoa(settings.DefaultTargetSteps),
		constants.SettingDefaultSound:               settings.DefaultSound,
		constants.SettingSoundsDir:                  settings.SoundsDir,
		constants.SettingTimezone:                   settings.Timezone,
		constants.SettingDelivery:                   settings.Delivery,
		constants.SettingSensor:                     settings.Sensor,
		constants.SettingMQTTBroker:                 settings.MQTTBroker,
		constants.SettingMQTTTopicPrefix:            settings.MQTTTopicPrefix,
	}
}

// DefaultSettings returns the settings written by a fresh init.
func DefaultSettings() Settings {
	s := Settings{NotificationsEnabled: constants.DefaultNotificationsEnabled}
	ApplyDefaultSettings(&s)
	return s
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.NotificationGracePeriodMin == 0 {
		settings.NotificationGracePeriodMin = constants.DefaultNotificationGracePeriodMin
	}
	if settings.DefaultTargetSteps == 0 {
		settings.DefaultTargetSteps = constants.DefaultTargetSteps
	}
	if settings.DefaultSound == "" {
		settings.DefaultSound = constants.DefaultSound
	}
	if settings.SoundsDir == "" {
		settings.SoundsDir = constants.DefaultSoundsDir
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.Delivery == "" {
		settings.Delivery = constants.DefaultDelivery
	}
	if settings.Sensor == "" {
		settings.Sensor = constants.DefaultSensor
	}
	if settings.MQTTBroker == "" {
		settings.MQTTBroker = constants.DefaultMQTTBroker
	}
	if settings.MQTTTopicPrefix == "" {
		settings.MQTTTopicPrefix = constants.DefaultMQTTTopicPrefix
	}
}
