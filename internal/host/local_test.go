package host

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/messenger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLocalResolvesProjectPath(t *testing.T) {
	h, err := NewLocal(config.HostConfig{
		ProjectRoot: ".",
		AutoRefresh: "always",
	}, testLogger(), "1.0.0")
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}

	if !filepath.IsAbs(h.ProjectPath()) {
		t.Errorf("Expected absolute project path, got %q", h.ProjectPath())
	}
	if h.Version() != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %q", h.Version())
	}
	if h.AutoRefreshPolicy() != messenger.RefreshAlways {
		t.Errorf("Expected always policy, got %v", h.AutoRefreshPolicy())
	}
}

func TestNewLocalRejectsUnknownRefreshPolicy(t *testing.T) {
	_, err := NewLocal(config.HostConfig{
		ProjectRoot: ".",
		AutoRefresh: "sometimes",
	}, testLogger(), "1.0.0")
	if err == nil {
		t.Fatal("Expected error for unknown refresh policy")
	}
}

func TestStopClearsPause(t *testing.T) {
	h, err := NewLocal(config.HostConfig{
		ProjectRoot: ".",
		AutoRefresh: "disabled",
	}, testLogger(), "1.0.0")
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}

	h.SetPlaying(true)
	h.SetPaused(true)

	if !h.IsPlaying() || !h.IsPaused() {
		t.Fatal("Expected host to be playing and paused")
	}

	h.SetPlaying(false)

	if h.IsPlaying() {
		t.Error("Expected host to stop playing")
	}
	if h.IsPaused() {
		t.Error("Expected pause to clear when play stops")
	}
}

func TestSafeModeFlag(t *testing.T) {
	h, err := NewLocal(config.HostConfig{
		ProjectRoot: ".",
		AutoRefresh: "outside_play",
		SafeMode:    true,
	}, testLogger(), "1.0.0")
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}

	if !h.IsSafeMode() {
		t.Error("Expected safe mode to be reported")
	}
}
