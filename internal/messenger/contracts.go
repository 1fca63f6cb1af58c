package messenger

import "fmt"

// RefreshPolicy mirrors the host's auto-refresh preference.
type RefreshPolicy int

const (
	// RefreshDisabled never triggers an asset refresh from a message.
	RefreshDisabled RefreshPolicy = iota
	// RefreshAlways triggers a refresh whenever one is requested.
	RefreshAlways
	// RefreshOutsidePlay triggers a refresh only while the host is not in
	// play state.
	RefreshOutsidePlay
)

// ParseRefreshPolicy converts a configuration string into a policy.
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch s {
	case "disabled":
		return RefreshDisabled, nil
	case "always":
		return RefreshAlways, nil
	case "outside_play":
		return RefreshOutsidePlay, nil
	default:
		return RefreshDisabled, fmt.Errorf("unknown refresh policy %q", s)
	}
}

// String returns the configuration spelling of the policy.
func (p RefreshPolicy) String() string {
	switch p {
	case RefreshDisabled:
		return "disabled"
	case RefreshAlways:
		return "always"
	case RefreshOutsidePlay:
		return "outside_play"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Host is the editing host the session controls and queries. The session
// calls it only from the tick goroutine.
type Host interface {
	IsPlaying() bool
	SetPlaying(playing bool)
	SetPaused(paused bool)

	// RequestRefresh asks the host to re-scan project assets. The session
	// applies the safe-mode and auto-refresh gating before calling it.
	RequestRefresh()
	IsSafeMode() bool
	AutoRefreshPolicy() RefreshPolicy

	ProjectPath() string
	Version() string
}

// TestRunner receives test-execution requests. Message payloads pass
// through verbatim; their interpretation belongs to the runner.
type TestRunner interface {
	ExecuteTests(payload string)
	RetrieveTestList(payload string)
	ShowUsage(payload string)
}

// Scheduler is the host event loop the session hangs its work off. Each
// registration returns its own unregister func; unregistering twice is
// harmless.
type Scheduler interface {
	OnEveryTick(fn func()) (unregister func())
	OnBeforeQuit(fn func()) (unregister func())
	OnAfterReloadCompleted(fn func()) (unregister func())
}
