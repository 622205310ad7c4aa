package state

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/weave/internal/config"
	"github.com/Paintersrp/weave/internal/note"
)

func TestNewStateWiresMemoryStore(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WEAVE_STORE_DRIVER", "memory")

	var logs bytes.Buffer
	s, err := NewState(context.Background(), config.NewViper(), &logs)
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := os.Stat(config.GetConfigPath(home)); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	n, err := s.Notes.Create(context.Background(), s.Config.Owner, note.Draft{Title: "hello"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !strings.Contains(logs.String(), "note created") {
		t.Fatalf("expected service logs to reach the writer, got %q", logs.String())
	}
	if _, err := s.Notes.Get(context.Background(), s.Config.Owner, n.ID); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestNewStateCreatesSQLiteDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dsn := filepath.Join(home, "nested", "dir", "weave.db")
	t.Setenv("WEAVE_STORE_DSN", dsn)

	s, err := NewState(context.Background(), config.NewViper(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("store directory missing: %v", err)
	}
}

func TestNewStateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WEAVE_STORE_DRIVER", "mongo")

	_, err := NewState(context.Background(), config.NewViper(), &bytes.Buffer{})
	if err == nil || !config.IsInitError(err) {
		t.Fatalf("expected ConfigInitError, got %v", err)
	}
}

func TestTokensRequireSecret(t *testing.T) {
	cfg := config.Default(t.TempDir())
	s := &State{Config: cfg}
	if _, err := s.Tokens(); !config.IsInitError(err) {
		t.Fatalf("expected ConfigInitError without secret, got %v", err)
	}

	cfg.Auth.Secret = "s3cret"
	tokens, err := s.Tokens()
	if err != nil {
		t.Fatalf("Tokens returned error: %v", err)
	}
	raw, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if owner, err := tokens.Verify(raw); err != nil || owner != "alice" {
		t.Fatalf("Verify = %q, %v", owner, err)
	}
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestGraphOptionsCarriesConfig(t *testing.T) {
	cfg := config.Default(t.TempDir()).Graph
	opts := GraphOptions(cfg)
	if opts.HubThreshold != 5 || opts.Canvas.Radius != 200 || opts.Palette.Base("Work/x") != "#3b82f6" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
