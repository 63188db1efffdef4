package e2e

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	TEST_WATCH_INTERVAL        = "1s"
	TEST_NOTIFICATION_TIMEOUT  = 90 * time.Second
	TEST_EXPECTED_NOTIFICATION = "Time to get up!"
)

func TestEndToEndWorkflow(t *testing.T) {
	// 1. Locate the binary
	// Allow overriding bin dir via env var, default to ../../bin (relative to tests/e2e)
	binDir := os.Getenv("STEPALARM_BIN_DIR")
	if binDir == "" {
		binDir = filepath.Join("..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)
	t.Logf("Using bin dir: %s", binDir)

	cliPath := filepath.Join(binDir, "stepalarm")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s. Build it with: go build -o bin/stepalarm ./cmd/stepalarm", cliPath)
	}

	// Isolate config, database and sounds in a temp home
	tempDir := t.TempDir()
	t.Logf("Running test in temp dir: %s", tempDir)

	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "XDG_CONFIG_HOME=") || strings.HasPrefix(e, "STEPALARM_") {
			continue
		}
		env = append(env, e)
	}
	env = append(env,
		fmt.Sprintf("HOME=%s", tempDir),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", tempDir),
		fmt.Sprintf("STEPALARM_DB_CONNECTION=%s", filepath.Join(tempDir, "stepalarm", "stepalarm.db")),
	)

	// 2. Initialize and configure
	t.Log("Initializing CLI...")
	runCmd(t, cliPath, env, "init")
	runCmd(t, cliPath, env, "settings", "--notifications-enabled=true", "--delivery", "stdout")

	// 3. Add an alarm for the next minute
	at := time.Now().Add(time.Minute).Format("15:04")
	t.Logf("Adding alarm for %s", at)
	out := runCmd(t, cliPath, env, "alarm", "add", at, "--label", "E2E wake-up", "--target-steps", "20")
	if !strings.Contains(out, "Added alarm") {
		t.Fatalf("Unexpected add output: %s", out)
	}

	out = runCmd(t, cliPath, env, "alarm", "list")
	if !strings.Contains(out, "E2E wake-up") {
		t.Fatalf("Alarm missing from list: %s", out)
	}

	out = runCmd(t, cliPath, env, "quota", "show")
	if !strings.Contains(out, "3 of 3 left") {
		t.Errorf("Unexpected quota output: %s", out)
	}

	icsPath := filepath.Join(tempDir, "alarms.ics")
	runCmd(t, cliPath, env, "alarm", "export", "--output", icsPath)
	if data, err := os.ReadFile(icsPath); err != nil || !strings.Contains(string(data), "BEGIN:VCALENDAR") {
		t.Errorf("Export did not produce a calendar: %v", err)
	}

	// 4. Watch until the first notification is printed
	ctx, cancel := context.WithTimeout(context.Background(), TEST_NOTIFICATION_TIMEOUT)
	defer cancel()

	watchCmd := exec.CommandContext(ctx, cliPath, "watch", "--interval", TEST_WATCH_INTERVAL)
	watchCmd.Env = env
	stdoutPipe, err := watchCmd.StdoutPipe()
	if err != nil {
		t.Fatalf("Failed to get stdout pipe: %v", err)
	}
	if err := watchCmd.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer func() {
		cancel()
		_ = watchCmd.Wait()
	}()

	t.Log("Waiting for notification...")
	doneCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		for scanner.Scan() {
			if line := scanner.Text(); strings.Contains(line, TEST_EXPECTED_NOTIFICATION) {
				doneCh <- line
				return
			}
		}
	}()

	select {
	case line := <-doneCh:
		t.Logf("Verified notification flow: %s", line)
	case <-ctx.Done():
		t.Fatalf("Timed out waiting for %q", TEST_EXPECTED_NOTIFICATION)
	}

	// 5. Health check still passes with notifications in flight
	runCmd(t, cliPath, env, "doctor")
}

func runCmd(t *testing.T, path string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Command %s %v failed: %v\nOutput: %s", path, args, err, out)
	}
	return string(out)
}
