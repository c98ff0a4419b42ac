package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Security     SecurityConfig     `yaml:"security"`
	Logging      LoggingConfig      `yaml:"logging"`
	App          AppConfig          `yaml:"app"`
	Offline      OfflineConfig      `yaml:"offline"`
	Auth         AuthConfig         `yaml:"auth"`
	Verification VerificationConfig `yaml:"verification"`
	Uploads      UploadsConfig      `yaml:"uploads"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address   string    `yaml:"address"`
	Port      int       `yaml:"port"`
	DBPath    string    `yaml:"db_path"`
	StaticDir string    `yaml:"static_dir"`
	TLS       TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// AppConfig tunes the view-state sessions.
type AppConfig struct {
	BootDelay      Duration `yaml:"boot_delay"`
	DeclineURL     string   `yaml:"decline_url"`
	SessionIdleTTL Duration `yaml:"session_idle_ttl"`
}

// OfflineConfig configures the offline cache worker and its edge proxy.
type OfflineConfig struct {
	Origin           string   `yaml:"origin"`
	Listen           string   `yaml:"listen"`
	ControlListen    string   `yaml:"control_listen"`
	Prefix           string   `yaml:"prefix"`
	Version          string   `yaml:"version"`
	APIPrefix        string   `yaml:"api_prefix"`
	Manifest         []string `yaml:"manifest"`
	NavigateFallback string   `yaml:"navigate_fallback"`
	ImageFallback    string   `yaml:"image_fallback"`
	FetchTimeout     Duration `yaml:"fetch_timeout"`
	Sync             struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		Tag     string `yaml:"tag"`
	} `yaml:"sync"`
}

// AuthConfig configures the local identity provider.
type AuthConfig struct {
	TokenSecret string   `yaml:"token_secret"`
	TokenIssuer string   `yaml:"token_issuer"`
	TokenTTL    Duration `yaml:"token_ttl"`
	BcryptCost  int      `yaml:"bcrypt_cost"`
}

// VerificationConfig configures the identity verification vendor.
type VerificationConfig struct {
	Host         string   `yaml:"host"`
	APIKey       string   `yaml:"api_key"`
	SharedSecret string   `yaml:"shared_secret"`
	MountID      string   `yaml:"mount_id"`
	Timeout      Duration `yaml:"timeout"`
}

// UploadsConfig bounds user uploads.
type UploadsConfig struct {
	MaxSize      SizeBytes `yaml:"max_size"`
	AllowedTypes []string  `yaml:"allowed_types"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "5MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := parseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

func parseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Duration wraps time.Duration and parses "100ms" style strings or plain numbers (seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}
