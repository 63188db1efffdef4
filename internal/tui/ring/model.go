// Package ring is the terminal screen shown while an alarm rings.
package ring

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/stepalarm/internal/logger"
	ringsession "github.com/julianstephens/stepalarm/internal/ring"
)

const emergencyTimeout = 5 * time.Second

// Session is the part of ring.Session the screen drives.
type Session interface {
	Updates() <-chan ringsession.Snapshot
	Snapshot() ringsession.Snapshot
	EmergencyStop(ctx context.Context) (bool, error)
	Close()
}

// Stepper feeds fake steps when the simulated sensor is in use.
type Stepper interface {
	AddSteps(n int)
}

// QuotaReader reports how many emergency stops are left this month.
type QuotaReader interface {
	Remaining() (int, error)
}

type snapshotMsg ringsession.Snapshot

type sessionEndedMsg struct{}

type emergencyResultMsg struct {
	ok  bool
	err error
}

type remainingMsg struct {
	n   int
	err error
}

type Model struct {
	session Session
	stepper Stepper
	quota   QuotaReader

	snap       ringsession.Snapshot
	remaining  int
	confirming bool
	pending    bool
	notice     string
	ended      bool
	quitting   bool

	keys     KeyMap
	help     help.Model
	progress progress.Model
	width    int
	height   int
}

// New builds the screen. stepper may be nil when a real sensor is used.
func New(session Session, quota QuotaReader, stepper Stepper) Model {
	m := Model{
		session:  session,
		stepper:  stepper,
		quota:    quota,
		snap:     session.Snapshot(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
	}
	m.syncKeys()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.session.Updates()), m.loadRemaining())
}

func waitForSnapshot(ch <-chan ringsession.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return sessionEndedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) loadRemaining() tea.Cmd {
	return func() tea.Msg {
		n, err := m.quota.Remaining()
		return remainingMsg{n: n, err: err}
	}
}

func (m Model) requestEmergency() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), emergencyTimeout)
		defer cancel()
		ok, err := m.session.EmergencyStop(ctx)
		return emergencyResultMsg{ok: ok, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = min(max(msg.Width-8, 10), 60)
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = ringsession.Snapshot(msg)
		if m.snap.Ended() {
			m.confirming = false
		}
		m.syncKeys()
		return m, waitForSnapshot(m.session.Updates())

	case sessionEndedMsg:
		m.ended = true
		m.snap = m.session.Snapshot()
		m.syncKeys()
		return m, nil

	case remainingMsg:
		if msg.err != nil {
			logger.Warn("Failed to read emergency stop quota", "error", msg.err)
		} else {
			m.remaining = msg.n
		}
		m.syncKeys()
		return m, nil

	case emergencyResultMsg:
		m.pending = false
		switch {
		case msg.err != nil:
			m.notice = "Emergency stop failed: " + msg.err.Error()
		case !msg.ok:
			m.notice = "No emergency stops left this month. Keep walking!"
		}
		return m, m.loadRemaining()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.session.Close()
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Emergency):
		m.confirming = true
		m.notice = ""
	case key.Matches(msg, m.keys.Confirm):
		m.confirming = false
		m.pending = true
		m.syncKeys()
		return m, m.requestEmergency()
	case key.Matches(msg, m.keys.Cancel):
		m.confirming = false
	case key.Matches(msg, m.keys.Add10):
		m.stepper.AddSteps(10)
	case key.Matches(msg, m.keys.Add50):
		m.stepper.AddSteps(50)
	case key.Matches(msg, m.keys.Complete):
		if left := m.snap.Target - m.snap.Steps; left > 0 {
			m.stepper.AddSteps(left)
		}
	}
	m.syncKeys()
	return m, nil
}

// syncKeys enables only the bindings that make sense in the current state.
func (m *Model) syncKeys() {
	over := m.ended || m.snap.Ended()
	ringing := !over && !m.pending

	m.keys.Emergency.SetEnabled(ringing && !m.confirming && m.remaining > 0)
	m.keys.Confirm.SetEnabled(ringing && m.confirming)
	m.keys.Cancel.SetEnabled(ringing && m.confirming)

	sim := ringing && !m.confirming && m.stepper != nil
	m.keys.Add10.SetEnabled(sim)
	m.keys.Add50.SetEnabled(sim)
	m.keys.Complete.SetEnabled(sim)

	m.keys.Dismiss.SetEnabled(over)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.snap.State == ringsession.Completed:
		content = lipgloss.JoinVertical(lipgloss.Center,
			successStyle.Render("☀️  Good morning!"),
			countStyle.Render(fmt.Sprintf("You walked %d steps.", m.snap.Steps)),
		)
	case m.snap.State == ringsession.StoppedByEmergency:
		content = lipgloss.JoinVertical(lipgloss.Center,
			warningStyle.Render("Alarm stopped with an emergency stop."),
			countStyle.Render(fmt.Sprintf("%d emergency stop(s) left this month.", m.remaining)),
		)
	case m.ended || m.snap.Closed:
		content = countStyle.Render("Alarm dismissed.")
	default:
		content = m.ringingView()
	}

	content = lipgloss.JoinVertical(lipgloss.Center, content, "", m.help.View(m.keys))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}

func (m Model) ringingView() string {
	label := m.snap.Label
	if label == "" {
		label = "Alarm"
	}

	lines := []string{
		titleStyle.Render("⏰ Time to get up!"),
		labelStyle.Render(label),
		"",
		m.progress.ViewAs(m.snap.Progress),
		countStyle.Render(fmt.Sprintf("%d / %d steps", m.snap.Steps, m.snap.Target)),
	}

	if m.snap.SensorError != "" {
		lines = append(lines, dangerStyle.Render(m.snap.SensorError))
	}
	if m.confirming {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("Use 1 of %d emergency stops left this month? (y/n)", m.remaining)))
	}
	if m.pending {
		lines = append(lines, countStyle.Render("Stopping..."))
	}
	if m.notice != "" {
		lines = append(lines, warningStyle.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// Run shows the screen until the session ends and the user closes it.
func Run(session Session, quota QuotaReader, stepper Stepper) error {
	p := tea.NewProgram(New(session, quota, stepper), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
