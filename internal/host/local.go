package host

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/messenger"
)

// Local is the in-process editing host. It tracks play and pause state
// behind a mutex so the messaging tick and the monitoring API can both
// read it.
type Local struct {
	logger      *slog.Logger
	projectPath string
	version     string
	safeMode    bool
	refresh     messenger.RefreshPolicy

	mu      sync.Mutex
	playing bool
	paused  bool
}

// NewLocal builds the host from configuration. The project root is
// resolved to an absolute path so clients always receive a usable one.
func NewLocal(cfg config.HostConfig, logger *slog.Logger, version string) (*Local, error) {
	policy, err := messenger.ParseRefreshPolicy(cfg.AutoRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to configure host: %w", err)
	}

	projectPath, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	return &Local{
		logger:      logger,
		projectPath: projectPath,
		version:     version,
		safeMode:    cfg.SafeMode,
		refresh:     policy,
	}, nil
}

// IsPlaying reports whether the host is in play state.
func (h *Local) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// SetPlaying enters or leaves play state. Leaving play state also clears
// pause; a stopped host is never paused.
func (h *Local) SetPlaying(playing bool) {
	h.mu.Lock()
	changed := h.playing != playing
	h.playing = playing
	if !playing {
		h.paused = false
	}
	h.mu.Unlock()

	if changed {
		h.logger.Info("Play state changed", slog.Bool("playing", playing))
	}
}

// SetPaused pauses or resumes play state.
func (h *Local) SetPaused(paused bool) {
	h.mu.Lock()
	changed := h.paused != paused
	h.paused = paused
	h.mu.Unlock()

	if changed {
		h.logger.Info("Pause state changed", slog.Bool("paused", paused))
	}
}

// IsPaused reports whether play state is paused.
func (h *Local) IsPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// RequestRefresh asks the host to re-scan project assets.
func (h *Local) RequestRefresh() {
	h.logger.Info("Asset refresh requested", slog.String("project_path", h.projectPath))
}

// IsSafeMode reports whether the host runs with compilation errors
// outstanding.
func (h *Local) IsSafeMode() bool {
	return h.safeMode
}

// AutoRefreshPolicy returns the configured refresh gating.
func (h *Local) AutoRefreshPolicy() messenger.RefreshPolicy {
	return h.refresh
}

// ProjectPath returns the absolute project root.
func (h *Local) ProjectPath() string {
	return h.projectPath
}

// Version returns the host version string clients receive.
func (h *Local) Version() string {
	return h.version
}
