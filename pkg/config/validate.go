package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/adhocore/gronx"
)

// fail fast on critical errors; defaults are already applied by LoadEffectiveConfig
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, %sDB_PATH env, or server.db_path in config", envPrefix)
	}

	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if cfg.Security.RateLimit.RPS <= 0 || cfg.Security.RateLimit.Burst <= 0 {
		return fmt.Errorf("security.rate_limit must be positive")
	}

	o := cfg.Offline
	if o.Origin != "" {
		u, err := url.Parse(o.Origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid offline.origin: %q", o.Origin)
		}
	}
	if !strings.HasPrefix(o.APIPrefix, "/") {
		return fmt.Errorf("offline.api_prefix must start with /")
	}
	for _, p := range o.Manifest {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("offline.manifest entries must be same-origin paths: %q", p)
		}
	}
	if o.Sync.Enabled && !gronx.IsValid(o.Sync.Cron) {
		return fmt.Errorf("invalid offline.sync.cron: %s", o.Sync.Cron)
	}

	if cfg.Auth.TokenSecret != "" && len(cfg.Auth.TokenSecret) < 16 {
		return fmt.Errorf("auth.token_secret must be at least 16 bytes")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost out of range: %d", cfg.Auth.BcryptCost)
	}

	if u, err := url.Parse(cfg.Verification.Host); err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid verification.host: %q", cfg.Verification.Host)
	}
	if strings.TrimSpace(cfg.Verification.APIKey) != "" && cfg.Verification.SharedSecret == "" {
		return fmt.Errorf("verification.shared_secret is required when verification.api_key is set")
	}
	if cfg.Uploads.MaxSize <= 0 {
		return fmt.Errorf("uploads.max_size must be positive")
	}

	return nil
}
