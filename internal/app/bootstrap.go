package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/naughtyden-us/naughty-den/pkg/config"
	"github.com/naughtyden-us/naughty-den/pkg/state"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/state/shutdown"
)

// Bootstrap resolves the effective config for a process, starts logging and
// lays out the state directories. dbName is the default folder used when
// --db is not given. Any failure exits the process.
func Bootstrap(dbName string) config.EffectiveConfigResult {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	if !flags.Set["db"] {
		flags.DB = "./." + dbName
		if root := state.ArtifactRoot(); root != "" {
			flags.DB = filepath.Join(root, dbName)
		}
	}

	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		shutdown.Abort("failed to load config file", err, flags.DB)
	}
	envCfg, envRes := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		shutdown.Abort("failed to build effective config", err, flags.DB)
	}
	if err := config.ValidateConfig(eff); err != nil {
		shutdown.Abort("invalid configuration", err, eff.DBPath)
	}

	logger.Init(eff.Config.Logging.Level, eff.Config.Logging.Format)
	logger.Info("effective_config_loaded", "source", eff.Source, "addr", eff.Addr, "db_path", eff.DBPath)
	if envRes.EnvUsed {
		logger.Info("env_overrides_applied", "keys", envRes.Keys)
	}

	numCPU := runtime.NumCPU()
	runtime.GOMAXPROCS(numCPU)
	logger.Info("system_logical_cores", "logical_cores", numCPU)

	if err := state.Init(eff.DBPath); err != nil {
		fmt.Fprintf(os.Stderr, "state_dirs_setup_failed: %v\n", err)
		shutdown.Abort(fmt.Sprintf("failed to ensure state directories under %s", eff.DBPath), err, eff.DBPath)
	}
	return eff
}
