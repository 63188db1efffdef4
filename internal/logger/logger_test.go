package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesLogFile(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	Warn("ring session failed", "alarm", "a1")
	if _, err := os.Stat(filepath.Join(logDir, "stepalarm.log")); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info("hidden at warn level")
	Warn("visible warning", "retry", 3)

	out := buf.String()
	if strings.Contains(out, "hidden at warn level") {
		t.Error("info message should be filtered at default level")
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "retry=3") {
		t.Errorf("expected warning with key/value, got %q", out)
	}
}

func TestLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Output: &buf, Level: "INFO"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("scheduled", "count", 10)
	if !strings.Contains(buf.String(), "scheduled") {
		t.Errorf("expected info message, got %q", buf.String())
	}

	if err := Init(Config{Output: &buf, Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Output: &buf, Debug: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Component("dispatcher").Debug("tick")
	if !strings.Contains(buf.String(), "component=dispatcher") {
		t.Errorf("expected component tag, got %q", buf.String())
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
	Component("x").Error("discarded")
}
