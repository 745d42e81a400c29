package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// appIDMarker is read by the platform client to pick the application
// before Init.
const appIDMarker = "steam_appid.txt"

func writeAppIDMarker(dir string, app workshop.AppID, logger *slog.Logger) error {
	logger.Info("writing app id marker", "app", app)
	path := filepath.Join(dir, appIDMarker)
	if err := os.WriteFile(path, []byte(app.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
