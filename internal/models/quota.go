package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
)

// EmergencyQuota is the persisted state of the monthly emergency-stop allowance.
type EmergencyQuota struct {
	Remaining      int        `json:"remaining"`
	MaxPerMonth    int        `json:"max_per_month"`
	LastResetYear  int        `json:"last_reset_year"`
	LastResetMonth time.Month `json:"last_reset_month"`
}

// SameMonth reports whether the last reset happened in the calendar month of t.
func (q EmergencyQuota) SameMonth(t time.Time) bool {
	return q.LastResetYear == t.Year() && q.LastResetMonth == t.Month()
}

// LastResetString formats the reset month as YYYY-MM.
func (q EmergencyQuota) LastResetString() string {
	return fmt.Sprintf("%04d-%02d", q.LastResetYear, int(q.LastResetMonth))
}

// QuotaFromValues decodes the quota from its settings key/value form.
func QuotaFromValues(values map[string]string) (EmergencyQuota, error) {
	var q EmergencyQuota

	remaining, err := strconv.Atoi(values[constants.SettingEmergencyRemaining])
	if err != nil {
		return q, fmt.Errorf("parsing %s: %w", constants.SettingEmergencyRemaining, err)
	}
	maxPerMonth, err := strconv.Atoi(values[constants.SettingEmergencyMaxPerMonth])
	if err != nil {
		return q, fmt.Errorf("parsing %s: %w", constants.SettingEmergencyMaxPerMonth, err)
	}
	reset, err := time.Parse(constants.MonthFormat, values[constants.SettingEmergencyLastReset])
	if err != nil {
		return q, fmt.Errorf("parsing %s: %w", constants.SettingEmergencyLastReset, err)
	}

	q.Remaining = remaining
	q.MaxPerMonth = maxPerMonth
	q.LastResetYear = reset.Year()
	q.LastResetMonth = reset.Month()
	return q, nil
}
