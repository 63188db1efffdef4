package autostart

import (
	"errors"
	"testing"
)

type fakeEntry struct {
	enabled bool
	err     error
	exec    []string
}

func (f *fakeEntry) IsEnabled() bool { return f.enabled }

func (f *fakeEntry) Enable() error {
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeEntry) Disable() error {
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}

func useFake(t *testing.T, entry *fakeEntry) {
	t.Helper()
	oldEntry, oldExec := newEntry, executableFunc
	t.Cleanup(func() { newEntry, executableFunc = oldEntry, oldExec })
	executableFunc = func() (string, error) { return "/nonexistent/bin/stepalarm", nil }
	newEntry = func(exec []string) Entry {
		entry.exec = exec
		return entry
	}
}

func TestSetTogglesOnce(t *testing.T) {
	entry := &fakeEntry{}
	useFake(t, entry)

	changed, err := Set(true, "--db", "/tmp/x.db")
	if err != nil || !changed {
		t.Fatalf("expected enable to change state, got %v (%v)", changed, err)
	}
	want := []string{"/nonexistent/bin/stepalarm", "watch", "--db", "/tmp/x.db"}
	if len(entry.exec) != len(want) {
		t.Fatalf("unexpected exec %v", entry.exec)
	}
	for i := range want {
		if entry.exec[i] != want[i] {
			t.Errorf("exec[%d] = %q, want %q", i, entry.exec[i], want[i])
		}
	}

	if changed, _ := Set(true); changed {
		t.Error("enabling twice should be a no-op")
	}
	if on, _ := Enabled(); !on {
		t.Error("expected Enabled to report true")
	}

	if changed, err := Set(false); err != nil || !changed {
		t.Fatalf("expected disable to change state, got %v (%v)", changed, err)
	}
	if on, _ := Enabled(); on {
		t.Error("expected Enabled to report false")
	}
}

func TestSetErrors(t *testing.T) {
	entry := &fakeEntry{err: errors.New("read-only home")}
	useFake(t, entry)
	if _, err := Set(true); err == nil {
		t.Error("expected enable error")
	}

	executableFunc = func() (string, error) { return "", errors.New("no exe") }
	if _, err := Set(true); err == nil {
		t.Error("expected executable error")
	}
	if _, err := Enabled(); err == nil {
		t.Error("expected executable error from Enabled")
	}
}
