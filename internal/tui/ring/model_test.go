package ring

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	ringsession "github.com/julianstephens/stepalarm/internal/ring"
)

type fakeSession struct {
	updates   chan ringsession.Snapshot
	snap      ringsession.Snapshot
	stopOK    bool
	stopErr   error
	stopCalls int
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		updates: make(chan ringsession.Snapshot, 1),
		snap:    ringsession.Snapshot{AlarmID: "a1", Label: "Work", State: ringsession.Ringing, Target: 100},
	}
}

func (f *fakeSession) Updates() <-chan ringsession.Snapshot { return f.updates }
func (f *fakeSession) Snapshot() ringsession.Snapshot       { return f.snap }
func (f *fakeSession) Close()                               { f.closed = true }

func (f *fakeSession) EmergencyStop(context.Context) (bool, error) {
	f.stopCalls++
	return f.stopOK, f.stopErr
}

type fakeQuota struct {
	n   int
	err error
}

func (q *fakeQuota) Remaining() (int, error) { return q.n, q.err }

type fakeStepper struct{ added []int }

func (s *fakeStepper) AddSteps(n int) { s.added = append(s.added, n) }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return nm, cmd
}

func TestRingingViewShowsProgress(t *testing.T) {
	sess := newFakeSession()
	m := New(sess, &fakeQuota{n: 3}, nil)

	m, _ = update(t, m, snapshotMsg(ringsession.Snapshot{Label: "Work", State: ringsession.Ringing, Steps: 30, Target: 100, Progress: 0.3}))
	view := m.View()
	for _, want := range []string{"Time to get up!", "Work", "30 / 100 steps"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestEmergencyRequiresConfirmation(t *testing.T) {
	sess := newFakeSession()
	sess.stopOK = true
	m := New(sess, &fakeQuota{n: 2}, nil)
	m, _ = update(t, m, remainingMsg{n: 2})

	m, _ = update(t, m, keyMsg("e"))
	if !m.confirming {
		t.Fatal("emergency key should ask for confirmation")
	}
	if !strings.Contains(m.View(), "Use 1 of 2 emergency stops") {
		t.Errorf("confirmation prompt missing:\n%s", m.View())
	}

	m, _ = update(t, m, keyMsg("n"))
	if m.confirming || sess.stopCalls != 0 {
		t.Fatal("cancel should not stop the alarm")
	}

	m, _ = update(t, m, keyMsg("e"))
	m, cmd := update(t, m, keyMsg("y"))
	if cmd == nil {
		t.Fatal("confirm should issue the emergency request")
	}
	res := cmd()
	if sess.stopCalls != 1 {
		t.Fatalf("expected one emergency call, got %d", sess.stopCalls)
	}
	m, _ = update(t, m, res)
	if m.pending {
		t.Error("pending flag should clear after the result")
	}
}

func TestEmergencyHiddenWhenExhausted(t *testing.T) {
	m := New(newFakeSession(), &fakeQuota{}, nil)
	m, _ = update(t, m, remainingMsg{n: 0})

	m, _ = update(t, m, keyMsg("e"))
	if m.confirming {
		t.Error("emergency key must be inert with no stops left")
	}
	if strings.Contains(m.help.View(m.keys), "emergency stop") {
		t.Error("emergency affordance should be hidden")
	}
}

func TestEmergencyRejectedShowsNotice(t *testing.T) {
	m := New(newFakeSession(), &fakeQuota{n: 1}, nil)
	m, _ = update(t, m, emergencyResultMsg{ok: false})
	if !strings.Contains(m.View(), "No emergency stops left") {
		t.Errorf("expected exhaustion notice:\n%s", m.View())
	}

	m, _ = update(t, m, emergencyResultMsg{err: errors.New("disk full")})
	if !strings.Contains(m.View(), "disk full") {
		t.Errorf("expected error notice:\n%s", m.View())
	}
}

func TestSimulatedStepKeys(t *testing.T) {
	stepper := &fakeStepper{}
	m := New(newFakeSession(), &fakeQuota{n: 3}, stepper)
	m, _ = update(t, m, snapshotMsg(ringsession.Snapshot{State: ringsession.Ringing, Steps: 30, Target: 100}))

	m, _ = update(t, m, keyMsg("1"))
	m, _ = update(t, m, keyMsg("5"))
	_, _ = update(t, m, keyMsg("c"))

	want := []int{10, 50, 70}
	if len(stepper.added) != len(want) {
		t.Fatalf("expected %v, got %v", want, stepper.added)
	}
	for i := range want {
		if stepper.added[i] != want[i] {
			t.Errorf("step %d: expected %d, got %d", i, want[i], stepper.added[i])
		}
	}
}

func TestStepKeysInertWithRealSensor(t *testing.T) {
	m := New(newFakeSession(), &fakeQuota{n: 3}, nil)
	// Must not panic on a nil stepper.
	_, _ = update(t, m, keyMsg("1"))
	_, _ = update(t, m, keyMsg("c"))
}

func TestCompletionScreen(t *testing.T) {
	m := New(newFakeSession(), &fakeQuota{n: 3}, &fakeStepper{})
	m, _ = update(t, m, snapshotMsg(ringsession.Snapshot{State: ringsession.Completed, Steps: 120, Target: 100, Progress: 1}))

	if !strings.Contains(m.View(), "Good morning!") {
		t.Errorf("expected completion screen:\n%s", m.View())
	}

	_, cmd := update(t, m, keyMsg("enter"))
	if cmd == nil {
		t.Fatal("enter should quit once the alarm is over")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestDismissInertWhileRinging(t *testing.T) {
	m := New(newFakeSession(), &fakeQuota{n: 3}, nil)
	_, cmd := update(t, m, keyMsg("q"))
	if cmd != nil {
		t.Error("q must not close a ringing alarm")
	}
}

func TestCtrlCClosesSession(t *testing.T) {
	sess := newFakeSession()
	m := New(sess, &fakeQuota{n: 3}, nil)
	_, cmd := update(t, m, keyMsg("ctrl+c"))
	if !sess.closed {
		t.Error("ctrl+c should close the session")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestSessionEndedReadsFinalSnapshot(t *testing.T) {
	sess := newFakeSession()
	sess.snap.State = ringsession.StoppedByEmergency
	m := New(newFakeSession(), &fakeQuota{n: 3}, nil)
	m.session = sess

	m, _ = update(t, m, sessionEndedMsg{})
	if !m.ended || !strings.Contains(m.View(), "emergency stop") {
		t.Errorf("expected emergency summary:\n%s", m.View())
	}
}

func TestWaitForSnapshot(t *testing.T) {
	ch := make(chan ringsession.Snapshot, 1)
	ch <- ringsession.Snapshot{Steps: 5}
	if msg, ok := waitForSnapshot(ch)().(snapshotMsg); !ok || msg.Steps != 5 {
		t.Errorf("unexpected message %#v", msg)
	}
	close(ch)
	if _, ok := waitForSnapshot(ch)().(sessionEndedMsg); !ok {
		t.Error("closed channel should report the session ended")
	}
}
