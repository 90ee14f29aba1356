package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/taskforge/forge/internal/errors"
)

// Load reads configuration from all available sources with proper
// precedence: FORGE_* environment variables, then the project config file
// at dir/.forge/config.yaml, then the global config file, then built-in
// defaults. dir is the planning directory; pass "" to skip project config.
//
// Load never fails because a config file is absent — only on a malformed
// file or a value that fails Validate.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := loadProjectConfig(v, dir); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil {
		return nil //nolint:nilerr // home dir unavailable: skip silently
	}
	if !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read global config file")
		}
	}
	return nil
}

func loadProjectConfig(v *viper.Viper, dir string) error {
	path := dir + string(os.PathSeparator) + ProjectConfigPath()
	if !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read project config file")
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("lock.timeout", d.Lock.Timeout)
	v.SetDefault("execution.batch_size", d.Execution.BatchSize)
	v.SetDefault("gates.coverage_threshold", d.Gates.CoverageThreshold)
	v.SetDefault("fsm.steel_thread_coverage_threshold", d.FSM.SteelThreadCoverageThreshold)
	v.SetDefault("fsm.non_steel_thread_coverage_threshold", d.FSM.NonSteelThreadCoverageThreshold)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("topo_cache.addr", d.TopoCache.Addr)
	v.SetDefault("topo_cache.ttl", d.TopoCache.TTL)
}

// viperDecoderOption configures mapstructure to handle time.Duration
// conversion from YAML/env string values.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
