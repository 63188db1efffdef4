// Package autostart registers the notification watcher to run at login so
// alarms keep firing after a reboot.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
)

// Entry is the login item backend. *autostart.App implements it.
type Entry interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

var executableFunc = os.Executable

// newEntry is swapped in tests.
var newEntry = func(exec []string) Entry {
	return &autostart.App{
		Name:        constants.AppName,
		DisplayName: constants.DisplayName + " watcher",
		Exec:        exec,
	}
}

// Command returns the argv started at login: this binary running "watch".
func Command(extraArgs ...string) ([]string, error) {
	execPath, err := executableFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return append([]string{execPath, "watch"}, extraArgs...), nil
}

// Set enables or disables the login item. It reports whether anything changed.
func Set(enable bool, extraArgs ...string) (bool, error) {
	exec, err := Command(extraArgs...)
	if err != nil {
		return false, err
	}
	entry := newEntry(exec)

	if enable == entry.IsEnabled() {
		return false, nil
	}
	if enable {
		if err := entry.Enable(); err != nil {
			return false, fmt.Errorf("failed to enable autostart: %w", err)
		}
		logger.Info("Autostart enabled", "exec", exec)
		return true, nil
	}
	if err := entry.Disable(); err != nil {
		return false, fmt.Errorf("failed to disable autostart: %w", err)
	}
	logger.Info("Autostart disabled")
	return true, nil
}

// Enabled reports whether the login item is installed.
func Enabled() (bool, error) {
	exec, err := Command()
	if err != nil {
		return false, err
	}
	return newEntry(exec).IsEnabled(), nil
}
