package settings

import (
	"fmt"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	NotificationsEnabled *bool   `help:"Enable or disable notification delivery."`
	GracePeriodMin       *int    `name:"grace-period-min" help:"Skip notifications older than this many minutes."`
	DefaultTargetSteps   *int    `help:"Step target for new alarms."`
	DefaultSound         *string `help:"Sound for new alarms."`
	SoundsDir            *string `help:"Directory holding <sound>.wav files."`
	Timezone             *string `help:"IANA timezone name or Local."`
	Delivery             *string `help:"Notification backend (tray, mqtt, stdout)."`
	Sensor               *string `help:"Step sensor backend (mqtt, simulated)."`
	MQTTBroker           *string `name:"mqtt-broker" help:"MQTT broker URL, e.g. tcp://127.0.0.1:1883."`
	MQTTTopicPrefix      *string `name:"mqtt-topic-prefix" help:"Prefix for MQTT topics."`
}

func (c *SettingsCmd) Validate() error {
	if c.GracePeriodMin != nil && *c.GracePeriodMin < 0 {
		return fmt.Errorf("grace period cannot be negative")
	}
	if c.DefaultTargetSteps != nil && *c.DefaultTargetSteps <= 0 {
		return fmt.Errorf("default target steps must be positive")
	}
	if c.Timezone != nil && !utils.ValidateTimezone(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}
	if c.Delivery != nil {
		switch *c.Delivery {
		case constants.DeliveryTray, constants.DeliveryMQTT, constants.DeliveryStdout:
		default:
			return fmt.Errorf("invalid delivery %q (must be tray, mqtt or stdout)", *c.Delivery)
		}
	}
	if c.Sensor != nil {
		switch *c.Sensor {
		case constants.SensorMQTT, constants.SensorSimulated:
		default:
			return fmt.Errorf("invalid sensor %q (must be mqtt or simulated)", *c.Sensor)
		}
	}
	return nil
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		ctx.Println("Current Settings:")
		ctx.Printf("  Default Target Steps:  %d\n", settings.DefaultTargetSteps)
		ctx.Printf("  Default Sound:         %s\n", constants.SoundDisplayName(settings.DefaultSound))
		ctx.Printf("  Sounds Directory:      %s\n", settings.SoundsDir)
		ctx.Printf("  Timezone:              %s\n", settings.Timezone)
		ctx.Println("\nNotification Settings:")
		ctx.Printf("  Notifications Enabled: %v\n", settings.NotificationsEnabled)
		ctx.Printf("  Grace Period:          %d min\n", settings.NotificationGracePeriodMin)
		ctx.Printf("  Delivery:              %s\n", settings.Delivery)
		ctx.Println("\nSensor Settings:")
		ctx.Printf("  Sensor:                %s\n", settings.Sensor)
		ctx.Printf("  MQTT Broker:           %s\n", settings.MQTTBroker)
		ctx.Printf("  MQTT Topic Prefix:     %s\n", settings.MQTTTopicPrefix)
		return nil
	}

	updated := false
	timezoneChanged := false
	if c.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *c.NotificationsEnabled
		updated = true
	}
	if c.GracePeriodMin != nil {
		settings.NotificationGracePeriodMin = *c.GracePeriodMin
		updated = true
	}
	if c.DefaultTargetSteps != nil {
		settings.DefaultTargetSteps = *c.DefaultTargetSteps
		updated = true
	}
	if c.DefaultSound != nil {
		settings.DefaultSound = *c.DefaultSound
		updated = true
	}
	if c.SoundsDir != nil {
		settings.SoundsDir = *c.SoundsDir
		updated = true
	}
	if c.Timezone != nil {
		timezoneChanged = settings.Timezone != *c.Timezone
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.Delivery != nil {
		settings.Delivery = *c.Delivery
		updated = true
	}
	if c.Sensor != nil {
		settings.Sensor = *c.Sensor
		updated = true
	}
	if c.MQTTBroker != nil {
		settings.MQTTBroker = *c.MQTTBroker
		updated = true
	}
	if c.MQTTTopicPrefix != nil {
		settings.MQTTTopicPrefix = *c.MQTTTopicPrefix
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated successfully.")

	// Stored fire times are absolute, so a new timezone moves every alarm.
	if timezoneChanged {
		n, err := ctx.RescheduleAll()
		if err != nil {
			return fmt.Errorf("failed to reschedule alarms: %w", err)
		}
		ctx.Printf("✓ Rescheduled %d notifications for %s\n", n, settings.Timezone)
	}
	return nil
}
