package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// TrayDeliverer posts notifications to the companion tray app, which
// advertises its local webhook through a lockfile.
type TrayDeliverer struct {
	client *resty.Client
}

type WebhookPayload struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Text       string `json:"text"`
	Sound      string `json:"sound,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
	AlarmID    string `json:"alarm_id,omitempty"`
	DurationMs uint32 `json:"duration_ms"`
}

var _ Deliverer = (*TrayDeliverer)(nil)

func NewTrayDeliverer() *TrayDeliverer {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(constants.NotifyMaxRetries).
		SetRetryWaitTime(constants.NotifyRetryDelay).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})
	return &TrayDeliverer{client: client}
}

func (t *TrayDeliverer) Name() string { return constants.DeliveryTray }

func (t *TrayDeliverer) Deliver(ctx context.Context, n models.Notification) error {
	trayAppConfigPath, err := GetTrayAppConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := findAndValidateTrayProcess(filepath.Join(trayAppConfigPath, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	payload := WebhookPayload{
		Title:      n.Title,
		Subtitle:   n.Subtitle,
		Text:       n.Body,
		Sound:      n.Sound,
		Urgency:    n.Urgency,
		AlarmID:    n.AlarmID,
		DurationMs: constants.NotificationDurationMs,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader(constants.TraySecretHeader, secret).
		SetBody(payload).
		Post(fmt.Sprintf("http://127.0.0.1:%s", port))
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", constants.TrayProcessPrefix, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("notification failed with status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// GetTrayAppConfigDir returns the configuration directory used by the tray application.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	// A custom lockfile_dir in the tray settings wins.
	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err == nil {
		var store struct {
			Settings struct {
				LockfileDir *string `json:"lockfile_dir"`
			} `json:"settings"`
		}
		if json.Unmarshal(data, &store) == nil && store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
			return *store.Settings.LockfileDir, nil
		}
	}

	return trayConfigDir, nil
}

// findAndValidateTrayProcess reads port|pid|secret from the lockfile and
// checks that the pid still belongs to the tray app.
func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", fmt.Errorf("%s is not running", constants.TrayProcessPrefix)
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", fmt.Errorf("%s process not running", constants.TrayProcessPrefix)
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayProcessPrefix) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.TrayProcessPrefix, process.Executable())
	}

	return port, secret, nil
}
