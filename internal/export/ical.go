// Package export writes alarms as an iCalendar feed so other calendars can
// show when the alarm will ring.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/utils"
)

var byDay = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Calendar builds a VCALENDAR with one VEVENT per enabled alarm. Repeating
// alarms carry a weekly RRULE; every event has an audio VALARM at start.
func Calendar(alarms []models.Alarm, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, fmt.Sprintf("-//%s//%s//EN", constants.AppName, constants.Version))

	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		cal.Children = append(cal.Children, event(a, now).Component)
	}
	return cal
}

func event(a models.Alarm, now time.Time) *ical.Event {
	start := utils.NextOccurrence(a, now)
	burst := time.Duration(constants.NotificationRetryCount) * constants.NotificationRetrySpacing

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, a.ID+"@"+constants.AppName)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(burst))
	ev.Props.SetText(ical.PropSummary, summary(a))
	ev.Props.SetText(ical.PropDescription, fmt.Sprintf("Walk %d steps to stop the alarm", a.TargetSteps))

	if !a.IsOneTime() {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = RecurrenceRule(a.RepeatDays)
		ev.Props.Set(rule)
	}

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "AUDIO")
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = "PT0S"
	alarm.Props.Set(trigger)
	ev.Children = append(ev.Children, alarm)

	return ev
}

func summary(a models.Alarm) string {
	if a.Label != "" {
		return "⏰ " + a.Label
	}
	return "⏰ Alarm " + a.TimeString()
}

// RecurrenceRule renders FREQ=WEEKLY;BYDAY=... for weekday indices 0=Sunday..6=Saturday.
func RecurrenceRule(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(byDay) {
			names = append(names, byDay[d])
		}
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(names, ",")
}

// Write encodes the calendar for alarms and returns how many events it holds.
func Write(w io.Writer, alarms []models.Alarm, now time.Time) (int, error) {
	cal := Calendar(alarms, now)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return len(cal.Children), nil
}
