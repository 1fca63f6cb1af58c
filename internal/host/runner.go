package host

import "log/slog"

// LogRunner is the default test runner. It records requests in the log;
// an embedding host replaces it with a runner wired into its own test
// framework.
type LogRunner struct {
	logger *slog.Logger
}

// NewLogRunner creates a runner that only logs requests.
func NewLogRunner(logger *slog.Logger) *LogRunner {
	return &LogRunner{logger: logger}
}

// ExecuteTests logs a test-execution request.
func (r *LogRunner) ExecuteTests(payload string) {
	r.logger.Info("Test execution requested", slog.String("filter", payload))
}

// RetrieveTestList logs a test-list request.
func (r *LogRunner) RetrieveTestList(payload string) {
	r.logger.Info("Test list requested", slog.String("mode", payload))
}

// ShowUsage logs a usage-window request.
func (r *LogRunner) ShowUsage(payload string) {
	r.logger.Info("Usage window requested", slog.String("payload", payload))
}
