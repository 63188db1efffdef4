// Package cli holds the state shared by every stepalarm command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/audio"
	"github.com/julianstephens/stepalarm/internal/backup"
	"github.com/julianstephens/stepalarm/internal/config"
	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/mqtt"
	"github.com/julianstephens/stepalarm/internal/notifier"
	"github.com/julianstephens/stepalarm/internal/quota"
	"github.com/julianstephens/stepalarm/internal/ring"
	"github.com/julianstephens/stepalarm/internal/sensor"
	"github.com/julianstephens/stepalarm/internal/storage"
	"github.com/julianstephens/stepalarm/internal/tui/forms"
	"github.com/julianstephens/stepalarm/internal/utils"
)

// Migrator is implemented by stores that can apply schema migrations.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
}

type Context struct {
	Store     storage.Provider
	Scheduler *notifier.Scheduler
	Location  config.StoreLocation
	ConfigDir string
	MQTT      config.MQTTCredentials
	Out       io.Writer
	Now       func() time.Time

	// Swapped in tests.
	Confirm   func(title, description string) (bool, error)
	AlarmForm func(fm *forms.AlarmFormModel) error
	Dial      mqtt.Dialer
	NewAudio  func(soundsDir string) ring.Audio

	trackerOnce sync.Once
	tracker     *quota.Tracker
}

func NewContext(store storage.Provider, loc config.StoreLocation) *Context {
	return &Context{
		Store:     store,
		Scheduler: notifier.NewScheduler(notifier.NewStoreCenter(store)),
		Location:  loc,
		Out:       os.Stdout,
		Now:       time.Now,
		Confirm:   forms.Confirm,
		AlarmForm: func(fm *forms.AlarmFormModel) error {
			return forms.NewAlarmForm(fm).Run()
		},
		Dial:      mqtt.Connect,
		NewAudio: func(dir string) ring.Audio {
			return audio.NewPlayer(dir)
		},
	}
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// PerformAutomaticBackup creates a backup of SQLite stores and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if c.Location.Postgres {
		return
	}
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Clock returns the current time in the configured timezone.
func (c *Context) Clock() (time.Time, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get settings: %w", err)
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return c.Now().In(loc), nil
}

// Quota returns the context's tracker, whose month boundaries follow the
// configured timezone.
func (c *Context) Quota() *quota.Tracker {
	c.trackerOnce.Do(func() {
		c.tracker = quota.NewTracker(c.Store, quota.WithClock(func() time.Time {
			now, err := c.Clock()
			if err != nil {
				return c.Now()
			}
			return now
		}))
	})
	return c.tracker
}

var ErrAmbiguousAlarm = errors.New("alarm reference is ambiguous")

// FindAlarm resolves an alarm by full ID, notification ID, or unique ID prefix.
func (c *Context) FindAlarm(ref string) (models.Alarm, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Alarm{}, fmt.Errorf("alarm %q: %w", ref, storage.ErrNotFound)
	}

	alarm, err := c.Store.GetAlarm(ref)
	if err == nil {
		return alarm, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Alarm{}, err
	}

	if id, perr := notifier.ResolveAlarmID(ref); perr == nil {
		if alarm, err := c.Store.GetAlarm(id); err == nil {
			return alarm, nil
		}
	}

	alarms, err := c.Store.GetAllAlarms()
	if err != nil {
		return models.Alarm{}, err
	}
	var matches []models.Alarm
	for _, a := range alarms {
		if strings.HasPrefix(a.ID, ref) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Alarm{}, fmt.Errorf("alarm %s: %w", ref, storage.ErrNotFound)
	default:
		return models.Alarm{}, fmt.Errorf("%w: %q matches %d alarms", ErrAmbiguousAlarm, ref, len(matches))
	}
}

// Reschedule re-arms the alarm's notifications from now.
func (c *Context) Reschedule(alarm models.Alarm) (int, error) {
	now, err := c.Clock()
	if err != nil {
		return 0, err
	}
	out, err := c.Scheduler.Schedule(context.Background(), alarm, now)
	return len(out), err
}

// RescheduleAll re-arms every alarm and returns the number of notifications
// armed. One-time alarms that already fired are retired instead.
func (c *Context) RescheduleAll() (int, error) {
	alarms, err := c.Store.GetAllAlarms()
	if err != nil {
		return 0, fmt.Errorf("failed to get alarms: %w", err)
	}
	total := 0
	for _, a := range alarms {
		if a.Enabled && a.IsOneTime() {
			ns, err := c.Store.GetNotificationsForAlarm(a.ID)
			if err != nil {
				return total, err
			}
			if spent(ns) {
				if err := c.RetireOneTime(context.Background(), a.ID); err != nil {
					return total, err
				}
				continue
			}
		}
		n, err := c.Reschedule(a)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// EnsureScheduled arms enabled alarms that have nothing pending. Alarms in the
// middle of a burst are left alone so their remaining retries still fire, and
// one-time alarms whose burst is over are retired.
func (c *Context) EnsureScheduled() (int, error) {
	alarms, err := c.Store.GetAllAlarms()
	if err != nil {
		return 0, fmt.Errorf("failed to get alarms: %w", err)
	}
	total := 0
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		ns, err := c.Store.GetNotificationsForAlarm(a.ID)
		if err != nil {
			return total, err
		}
		if slices.ContainsFunc(ns, models.Notification.IsPending) {
			continue
		}
		if a.IsOneTime() && spent(ns) {
			if err := c.RetireOneTime(context.Background(), a.ID); err != nil {
				return total, err
			}
			continue
		}
		n, err := c.Reschedule(a)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// spent reports whether a burst was armed and has been fully delivered.
func spent(ns []models.Notification) bool {
	return len(ns) > 0 && !slices.ContainsFunc(ns, models.Notification.IsPending)
}

// RetireOneTime disables a one-time alarm after its burst, so it does not
// ring again the next day. Other alarms are left untouched.
func (c *Context) RetireOneTime(_ context.Context, alarmID string) error {
	a, err := c.Store.GetAlarm(alarmID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !a.IsOneTime() || !a.Enabled {
		return nil
	}
	a.Enabled = false
	if err := c.Store.UpdateAlarm(a); err != nil {
		return fmt.Errorf("failed to disable alarm %s: %w", a.ID, err)
	}
	logger.Info("One-time alarm finished", "alarm", a.ID)
	return nil
}

// NewDeliverer builds the configured notification backend. The returned
// close function releases broker connections.
func (c *Context) NewDeliverer(settings models.Settings) (notifier.Deliverer, func(), error) {
	switch settings.Delivery {
	case constants.DeliveryTray:
		return notifier.NewTrayDeliverer(), func() {}, nil
	case constants.DeliveryStdout:
		return notifier.NewStdoutDeliverer(c.Out), func() {}, nil
	case constants.DeliveryMQTT:
		d := notifier.NewMQTTDeliverer(mqtt.Config{
			Broker:   settings.MQTTBroker,
			Username: c.MQTT.Username,
			Password: c.MQTT.Password,
		}, settings.MQTTTopicPrefix, c.Dial)
		return d, d.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown delivery backend %q (expected tray, mqtt or stdout)", settings.Delivery)
	}
}

// NewSensor builds the step sensor. kind overrides the configured backend when
// set. The simulated sensor is also returned so the ring screen can feed it.
func (c *Context) NewSensor(settings models.Settings, kind string) (sensor.Sensor, *sensor.Simulated, error) {
	if kind == "" {
		kind = settings.Sensor
	}
	switch kind {
	case constants.SensorSimulated:
		sim := sensor.NewSimulated()
		return sim, sim, nil
	case constants.SensorMQTT:
		return sensor.NewMQTT(sensor.MQTTConfig{
			Broker:      settings.MQTTBroker,
			TopicPrefix: settings.MQTTTopicPrefix,
			Username:    c.MQTT.Username,
			Password:    c.MQTT.Password,
		}, c.Dial), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor %q (expected mqtt or simulated)", kind)
	}
}

// SoundsDir returns the expanded sound directory from settings.
func SoundsDir(settings models.Settings) (string, error) {
	return utils.ExpandPath(settings.SoundsDir)
}
