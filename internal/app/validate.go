package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/naughtyden-us/naughty-den/pkg/config"
)

// validateConfig checks what only the server process needs on top of
// config.ValidateConfig: the static bundle and the session settings.
func validateConfig(eff config.EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if dir := cfg.Server.StaticDir; dir != "" {
		fi, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("static dir not accessible: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("static dir is not a directory: %s", dir)
		}
		if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
			return fmt.Errorf("static dir has no index.html: %w", err)
		}
	}
	if cfg.App.SessionIdleTTL <= 0 {
		return fmt.Errorf("app.session_idle_ttl must be positive")
	}
	if cfg.App.BootDelay < 0 {
		return fmt.Errorf("app.boot_delay must not be negative")
	}
	if cfg.Verification.Timeout <= 0 {
		return fmt.Errorf("verification.timeout must be positive")
	}
	return nil
}
