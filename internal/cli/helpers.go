package cli

import (
	"log/slog"

	"github.com/aretw0/webflow/internal/logging"
)

// createLogger configures the console logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}
