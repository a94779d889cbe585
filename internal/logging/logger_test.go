package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer SetOutput(os.Stdout, "info")

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn %d", 1)
	Error("shown error")
	Attack("203.0.113.1", "GET", "/admin", "Reconnaissance", "final=HIGH")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("messages below level leaked: %q", out)
	}
	for _, want := range []string{"[WARN] shown warn 1", "[ERROR] shown error", "[ATTACK] ATTACK | IP: 203.0.113.1 | GET /admin | Type: Reconnaissance | final=HIGH"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestAttackAlwaysLogged(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "error")
	defer SetOutput(os.Stdout, "info")

	Attack("x", "POST", "/", "Normal Traffic", "final=LOW")
	if !strings.Contains(buf.String(), "[ATTACK]") {
		t.Fatalf("attack line dropped: %q", buf.String())
	}
}

func TestInitWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, &config.LogRotationConfig{MaxSizeMB: 1, MaxBackups: 1}, "debug", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Debug("written to file")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] written to file") {
		t.Fatalf("unexpected log file content %q", data)
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("error", true) != LogLevelDebug {
		t.Fatalf("debug flag must win")
	}
	if parseLogLevel("WARNING", false) != LogLevelWarn {
		t.Fatalf("expected warn")
	}
	if parseLogLevel("", false) != LogLevelInfo {
		t.Fatalf("expected info default")
	}
}
