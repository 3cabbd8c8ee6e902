//go:build js

package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
)

// logLevel never goes below Warn in the browser, where every record lands in the console.
func logLevel(cfg config.Config) slog.Level {
	return max(cfg.Level(), slog.LevelWarn)
}
