package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("alarm not found"),
			expected: "Error: alarm not found",
		},
		{
			name:     "hinted error",
			err:      WithHint(errors.New("storage not initialized"), "run 'stepalarm init' first"),
			expected: "Error: storage not initialized\nHint: run 'stepalarm init' first",
		},
		{
			name:     "wrapped hinted error",
			err:      fmt.Errorf("loading store: %w", WithHint(errors.New("locked"), "close other sessions")),
			expected: "Error: loading store: locked\nHint: close other sessions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "alarm")
	if got != "Error: failed to load alarm" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestWithHint(t *testing.T) {
	if WithHint(nil, "ignored") != nil {
		t.Error("WithHint(nil) should return nil")
	}

	base := errors.New("base")
	err := WithHint(base, "try again")
	if !errors.Is(err, base) {
		t.Error("hinted error should unwrap to base")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if Report(&buf, nil) {
		t.Error("Report(nil) should return false")
	}
	if buf.Len() != 0 {
		t.Errorf("Report(nil) wrote %q", buf.String())
	}

	if !Report(&buf, errors.New("boom")) {
		t.Error("Report should return true for an error")
	}
	if buf.String() != "Error: boom\n" {
		t.Errorf("Report wrote %q", buf.String())
	}
}

// TestFatal runs Fatal in a subprocess and checks the exit code
func TestFatal(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL") == "1" {
		Fatal(errors.New("quota exhausted"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestFatal$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Fatal() did not exit with error: %v", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("Fatal() exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(stderr.String(), "Error: quota exhausted") {
		t.Errorf("Fatal() stderr = %q", stderr.String())
	}
}

func TestFatalNilError(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestFatalNilError$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL_NIL=1")
	if err := cmd.Run(); err != nil {
		t.Errorf("Fatal(nil) should not exit, but got error: %v", err)
	}
}
