// Package config provides configuration management for forge with layered
// precedence: FORGE_* environment variables, then the project config file
// (.forge/config.yaml), then the global config file, then built-in defaults.
// CLI flags are not one of the layers Load reads.
//
// This package may import internal/constants and internal/errors, but MUST
// NOT import internal/domain or any other internal package.
package config

import "time"

// Config is the root configuration structure governing engine-wide tuning
// knobs: lock timeout, parallel batch size, default planning-gate
// thresholds, and log rotation.
type Config struct {
	Lock       LockConfig       `yaml:"lock" mapstructure:"lock"`
	Execution  ExecutionConfig  `yaml:"execution" mapstructure:"execution"`
	Gates      GatesConfig      `yaml:"gates" mapstructure:"gates"`
	FSM        FSMConfig        `yaml:"fsm" mapstructure:"fsm"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	TopoCache  TopoCacheConfig  `yaml:"topo_cache" mapstructure:"topo_cache"`
}

// LockConfig governs the advisory file lock over state.json.
type LockConfig struct {
	// Timeout is how long to wait to acquire the state lock before
	// surfacing state:LOCKED. Default: 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ExecutionConfig governs the parallel-batch execution coordinator.
type ExecutionConfig struct {
	// BatchSize is the number of worker processes run concurrently per
	// batch. Default: 3.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// GatesConfig governs the definition → validation planning gate.
type GatesConfig struct {
	// CoverageThreshold is the minimum spec-coverage ratio required to
	// pass the coverage gate. Default: 0.90.
	CoverageThreshold float64 `yaml:"coverage_threshold" mapstructure:"coverage_threshold"`
}

// FSMConfig governs the behavior-model validator's transition-coverage
// thresholds.
type FSMConfig struct {
	// SteelThreadCoverageThreshold is the minimum fraction of
	// task-declared transition IDs the steel-thread machine must cover.
	// Default: 1.00.
	SteelThreadCoverageThreshold float64 `yaml:"steel_thread_coverage_threshold" mapstructure:"steel_thread_coverage_threshold"`

	// NonSteelThreadCoverageThreshold is the minimum coverage fraction for
	// non-steel-thread machines. Default: 0.90.
	NonSteelThreadCoverageThreshold float64 `yaml:"non_steel_thread_coverage_threshold" mapstructure:"non_steel_thread_coverage_threshold"`
}

// LoggingConfig governs rotation of the engine's operational log.
type LoggingConfig struct {
	// MaxSizeMB is the size in megabytes a log file reaches before rotation.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to retain.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
	// MaxAgeDays is the number of days to retain rotated log files.
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`
	// Compress enables gzip compression of rotated log files.
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// TopoCacheConfig governs the optional Redis-backed cache of computed
// topological task orderings. Addr empty disables the cache: load-tasks
// falls back to recomputing the order every call. ready-tasks does not use
// the cache.
type TopoCacheConfig struct {
	// Addr is the redis "host:port" to dial. Empty disables caching.
	Addr string `yaml:"addr" mapstructure:"addr"`
	// TTL is how long a cached ordering survives before eviction.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}
