package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 8080
	defaultBootDelay     = 2 * time.Second
	defaultDeclineURL    = "https://www.google.com/"
	defaultSessionIdle   = 30 * time.Minute
	defaultCachePrefix   = "naughty-den"
	defaultCacheVersion  = "v1"
	defaultAPIPrefix     = "/api/"
	defaultNavFallback   = "/"
	defaultImgFallback   = "/logo.png"
	defaultFetchTimeout  = 15 * time.Second
	defaultEdgeListen    = "0.0.0.0:8081"
	defaultControlListen = "127.0.0.1:8082"
	defaultSyncCron      = "*/15 * * * *"
	defaultSyncTag       = "background-sync"
	defaultTokenIssuer   = "naughty-den"
	defaultTokenTTL      = time.Hour
	defaultBcryptCost    = 10
	defaultVerifyHost    = "https://stationapi.veriff.com"
	defaultVerifyMount   = "inline-veriff-root"
	defaultVerifyTimeout = 10 * time.Second
	defaultUploadMax     = 5 * 1024 * 1024
	defaultRateRPS       = 50
	defaultRateBurst     = 100
)

// DefaultManifest lists the shell assets cached at install.
var DefaultManifest = []string{
	"/",
	"/manifest.webmanifest",
	"/favicon.png",
	"/logo.png",
	"/pl.gif",
	"/sw.js",
}

var defaultUploadTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// CacheNames returns the static and dynamic partition names for the current version.
func (c *Config) CacheNames() (static, dynamic string) {
	return c.Offline.Prefix + "-static-" + c.Offline.Version, c.Offline.Prefix + "-dynamic-" + c.Offline.Version
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset value in place.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	if c.App.BootDelay.Duration() == 0 {
		c.App.BootDelay = Duration(defaultBootDelay)
	}
	if c.App.DeclineURL == "" {
		c.App.DeclineURL = defaultDeclineURL
	}
	if c.App.SessionIdleTTL.Duration() == 0 {
		c.App.SessionIdleTTL = Duration(defaultSessionIdle)
	}

	o := &c.Offline
	if o.Prefix == "" {
		o.Prefix = defaultCachePrefix
	}
	if o.Version == "" {
		o.Version = defaultCacheVersion
	}
	if o.APIPrefix == "" {
		o.APIPrefix = defaultAPIPrefix
	}
	if len(o.Manifest) == 0 {
		o.Manifest = append([]string(nil), DefaultManifest...)
	}
	if o.NavigateFallback == "" {
		o.NavigateFallback = defaultNavFallback
	}
	if o.ImageFallback == "" {
		o.ImageFallback = defaultImgFallback
	}
	if o.FetchTimeout.Duration() == 0 {
		o.FetchTimeout = Duration(defaultFetchTimeout)
	}
	if o.Listen == "" {
		o.Listen = defaultEdgeListen
	}
	if o.ControlListen == "" {
		o.ControlListen = defaultControlListen
	}
	if o.Sync.Cron == "" {
		o.Sync.Cron = defaultSyncCron
	}
	if o.Sync.Tag == "" {
		o.Sync.Tag = defaultSyncTag
	}

	if c.Auth.TokenIssuer == "" {
		c.Auth.TokenIssuer = defaultTokenIssuer
	}
	if c.Auth.TokenTTL.Duration() == 0 {
		c.Auth.TokenTTL = Duration(defaultTokenTTL)
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = defaultBcryptCost
	}

	if c.Verification.Host == "" {
		c.Verification.Host = defaultVerifyHost
	}
	if c.Verification.MountID == "" {
		c.Verification.MountID = defaultVerifyMount
	}
	if c.Verification.Timeout.Duration() == 0 {
		c.Verification.Timeout = Duration(defaultVerifyTimeout)
	}

	if c.Uploads.MaxSize == 0 {
		c.Uploads.MaxSize = SizeBytes(defaultUploadMax)
	}
	if len(c.Uploads.AllowedTypes) == 0 {
		c.Uploads.AllowedTypes = append([]string(nil), defaultUploadTypes...)
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	return flagPath
}
