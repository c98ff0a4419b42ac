package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "NAUGHTYDEN_"

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// holds the results of applying environment overrides
type EnvResult struct {
	EnvUsed bool
	Keys    []string // env names that were set, for diagnostics
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// parses the process command line
func ParseConfigFlags() Flags {
	f, _ := ParseFlags(flag.CommandLine, os.Args[1:])
	return f
}

// ParseFlags registers the three config flags on fs and parses args.
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	addrPtr := fs.String("addr", ":8080", "HTTP listen address")
	dbPtr := fs.String("db", "./.database", "Pebble DB path")
	cfgPtr := fs.String("config", "./config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// envNames are the recognised variables, without the prefix.
var envNames = []string{
	"SERVER_ADDR", "ADDR", "SERVER_ADDRESS", "SERVER_PORT", "DB_PATH", "STATIC_DIR",
	"TLS_CERT", "TLS_KEY",
	"CORS_ORIGINS", "RATE_RPS", "RATE_BURST", "IP_WHITELIST",
	"LOG_LEVEL", "LOG_FORMAT",
	"BOOT_DELAY", "DECLINE_URL", "SESSION_IDLE_TTL",
	"OFFLINE_ORIGIN", "OFFLINE_LISTEN", "OFFLINE_CONTROL_LISTEN", "CACHE_PREFIX", "CACHE_VERSION",
	"API_PREFIX", "FETCH_TIMEOUT", "SYNC_ENABLED", "SYNC_CRON",
	"AUTH_TOKEN_SECRET", "AUTH_TOKEN_ISSUER", "AUTH_TOKEN_TTL", "AUTH_BCRYPT_COST",
	"VERIFY_HOST", "VERIFY_API_KEY", "VERIFY_SHARED_SECRET", "VERIFY_MOUNT_ID", "VERIFY_TIMEOUT",
	"UPLOAD_MAX_SIZE", "UPLOAD_TYPES",
}

// loads environment variables into a new Config; caller config is unchanged
func ParseConfigEnvs() (*Config, EnvResult) {
	envs := make(map[string]string, len(envNames))
	var used []string
	for _, n := range envNames {
		v := strings.TrimSpace(os.Getenv(envPrefix + n))
		envs[n] = v
		if v != "" {
			used = append(used, envPrefix+n)
		}
	}
	envCfg := &Config{}

	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	parseBool := func(v string) bool {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}

	splitAddr := func(v string) {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
			return
		}
		envCfg.Server.Address = v
	}

	// address variables in precedence order
	if v := envs["SERVER_ADDR"]; v != "" {
		splitAddr(v)
	} else if v := envs["ADDR"]; v != "" {
		splitAddr(v)
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if port := envs["SERVER_PORT"]; port != "" {
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}

	if v := envs["DB_PATH"]; v != "" {
		envCfg.Server.DBPath = v
	}
	if v := envs["STATIC_DIR"]; v != "" {
		envCfg.Server.StaticDir = v
	}
	if v := envs["TLS_CERT"]; v != "" {
		envCfg.Server.TLS.CertFile = v
	}
	if v := envs["TLS_KEY"]; v != "" {
		envCfg.Server.TLS.KeyFile = v
	}

	if v := envs["CORS_ORIGINS"]; v != "" {
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := envs["RATE_BURST"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envCfg.Security.RateLimit.Burst = n
		}
	}
	if v := envs["IP_WHITELIST"]; v != "" {
		envCfg.Security.IPWhitelist = parseList(v)
	}

	envCfg.Logging.Level = envs["LOG_LEVEL"]
	envCfg.Logging.Format = envs["LOG_FORMAT"]

	if v := envs["BOOT_DELAY"]; v != "" {
		envCfg.App.BootDelay, _ = parseDuration(v)
	}
	envCfg.App.DeclineURL = envs["DECLINE_URL"]
	if v := envs["SESSION_IDLE_TTL"]; v != "" {
		envCfg.App.SessionIdleTTL, _ = parseDuration(v)
	}

	o := &envCfg.Offline
	o.Origin = envs["OFFLINE_ORIGIN"]
	o.Listen = envs["OFFLINE_LISTEN"]
	o.ControlListen = envs["OFFLINE_CONTROL_LISTEN"]
	o.Prefix = envs["CACHE_PREFIX"]
	o.Version = envs["CACHE_VERSION"]
	o.APIPrefix = envs["API_PREFIX"]
	if v := envs["FETCH_TIMEOUT"]; v != "" {
		o.FetchTimeout, _ = parseDuration(v)
	}
	if v := envs["SYNC_ENABLED"]; v != "" {
		o.Sync.Enabled = parseBool(v)
	}
	o.Sync.Cron = envs["SYNC_CRON"]

	envCfg.Auth.TokenSecret = envs["AUTH_TOKEN_SECRET"]
	envCfg.Auth.TokenIssuer = envs["AUTH_TOKEN_ISSUER"]
	if v := envs["AUTH_TOKEN_TTL"]; v != "" {
		envCfg.Auth.TokenTTL, _ = parseDuration(v)
	}
	if v := envs["AUTH_BCRYPT_COST"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envCfg.Auth.BcryptCost = n
		}
	}

	envCfg.Verification.Host = envs["VERIFY_HOST"]
	envCfg.Verification.APIKey = envs["VERIFY_API_KEY"]
	envCfg.Verification.SharedSecret = envs["VERIFY_SHARED_SECRET"]
	envCfg.Verification.MountID = envs["VERIFY_MOUNT_ID"]
	if v := envs["VERIFY_TIMEOUT"]; v != "" {
		envCfg.Verification.Timeout, _ = parseDuration(v)
	}

	if v := envs["UPLOAD_MAX_SIZE"]; v != "" {
		envCfg.Uploads.MaxSize, _ = parseSize(v)
	}
	if v := envs["UPLOAD_TYPES"]; v != "" {
		envCfg.Uploads.AllowedTypes = parseList(v)
	}

	return envCfg, EnvResult{EnvUsed: len(used) > 0, Keys: used}
}

// decides which source drives the effective config. --config pins the file;
// --addr/--db override on top of env, then file; else file if present; else env.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	if fileCfg == nil {
		fileCfg = &Config{}
	}
	if envCfg == nil {
		envCfg = &Config{}
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		return finish(fileCfg, "config"), nil
	}

	if flags.Set["addr"] || flags.Set["db"] {
		base := fileCfg
		if !fileExists && envRes.EnvUsed {
			base = envCfg
		}
		out := *base
		if flags.Set["addr"] {
			host, port := splitHostPort(flags.Addr)
			out.Server.Address = host
			out.Server.Port = port
		}
		if flags.Set["db"] {
			out.Server.DBPath = flags.DB
		} else if p := strings.TrimSpace(envCfg.Server.DBPath); p != "" {
			out.Server.DBPath = p
		}
		if out.Server.DBPath == "" {
			out.Server.DBPath = flags.DB
		}
		return finish(&out, "flags"), nil
	}

	if fileExists {
		if fileCfg.Server.DBPath == "" {
			fileCfg.Server.DBPath = flags.DB
		}
		return finish(fileCfg, "config"), nil
	}
	if envCfg.Server.DBPath == "" {
		envCfg.Server.DBPath = flags.DB
	}
	return finish(envCfg, "env"), nil
}

func finish(cfg *Config, source string) EffectiveConfigResult {
	cfg.ApplyDefaults()
	return EffectiveConfigResult{Config: cfg, Addr: cfg.Addr(), DBPath: cfg.Server.DBPath, Source: source}
}

// splits host:port; a bare ":8080" yields an empty host
func splitHostPort(a string) (string, int) {
	if a == "" {
		return "", 0
	}
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	pi, _ := strconv.Atoi(p)
	return h, pi
}
