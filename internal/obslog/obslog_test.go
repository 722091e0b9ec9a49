package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Console: true}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("engine_request_failed", zap.String("op", "play"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if entry["msg"] != "engine_request_failed" || entry["op"] != "play" || entry["level"] != "debug" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewFileOnly(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	logger, err := New(Config{Level: "info", Format: "legacy", ToFile: true, File: path}, &console)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session_start")
	_ = logger.Sync()

	if console.Len() != 0 {
		t.Fatalf("console must stay silent, got %q", console.String())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), " | INFO | ") || !strings.Contains(string(b), "session_start") {
		t.Fatalf("unexpected file content %q", b)
	}
}

func TestNewNoSinks(t *testing.T) {
	logger, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected a no-op logger")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	cfg := ConfigFromEnv()
	if cfg.Level != "debug" || cfg.Console || !cfg.ToFile || cfg.File != "/tmp/x.log" || cfg.Format != "legacy" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
