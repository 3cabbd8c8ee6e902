//go:build !js

package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
)

func logLevel(cfg config.Config) slog.Level {
	return cfg.Level()
}
