package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetup_WithLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	var stdout bytes.Buffer

	closer, err := setup(&stdout, "info", tmpDir)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer closer.Close()

	slog.Info("tokens to burn", "count", 3)

	expectedFile := filepath.Join(tmpDir, "splreaper-"+time.Now().Format("2006-01-02")+".log")
	content, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("expected log file %q to exist: %v", expectedFile, err)
	}
	if !strings.Contains(string(content), "tokens to burn") {
		t.Errorf("log file missing message, got %q", content)
	}
	if !strings.Contains(stdout.String(), "tokens to burn") {
		t.Errorf("stdout missing message, got %q", stdout.String())
	}
}

func TestSetup_StdoutOnly(t *testing.T) {
	var stdout bytes.Buffer

	closer, err := setup(&stdout, "info", "")
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer closer.Close()

	slog.Info("accounts to close", "count", 30)

	line := strings.TrimSpace(stdout.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("stdout is not a JSON line: %v (%q)", err, line)
	}
	if entry["msg"] != "accounts to close" {
		t.Errorf("msg = %v, want %q", entry["msg"], "accounts to close")
	}
	if entry["count"] != float64(30) {
		t.Errorf("count = %v, want 30", entry["count"])
	}
}

func TestSetup_DebugFiltered(t *testing.T) {
	var stdout bytes.Buffer

	closer, err := setup(&stdout, "warn", "")
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer closer.Close()

	slog.Info("should not appear")
	if stdout.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", stdout.String())
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	closer, err := Setup("invalid", t.TempDir())
	if closer != nil {
		defer closer.Close()
	}
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestCleanOldLogs(t *testing.T) {
	tmpDir := t.TempDir()

	old := filepath.Join(tmpDir, "splreaper-2020-01-01.log")
	fresh := filepath.Join(tmpDir, "splreaper-"+time.Now().Format("2006-01-02")+".log")
	foreign := filepath.Join(tmpDir, "other-2020-01-01.log")
	for _, p := range []string{old, fresh, foreign} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -40)
	for _, p := range []string{old, foreign} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if removed := CleanOldLogs(tmpDir, 30); removed != 1 {
		t.Errorf("CleanOldLogs() removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old splreaper log should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh log should be kept")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("files without the splreaper prefix should be kept")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
