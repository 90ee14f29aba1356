package config

import (
	"github.com/taskforge/forge/internal/constants"
)

// DefaultConfig returns a new Config populated with forge's built-in
// defaults, the lowest-precedence layer in Load.
func DefaultConfig() *Config {
	return &Config{
		Lock: LockConfig{
			Timeout: constants.DefaultLockTimeout,
		},
		Execution: ExecutionConfig{
			BatchSize: constants.DefaultBatchSize,
		},
		Gates: GatesConfig{
			CoverageThreshold: constants.DefaultCoverageThreshold,
		},
		FSM: FSMConfig{
			SteelThreadCoverageThreshold:    constants.DefaultSteelThreadCoverageThreshold,
			NonSteelThreadCoverageThreshold: constants.DefaultNonSteelThreadCoverageThreshold,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  constants.LogMaxSizeMB,
			MaxBackups: constants.LogMaxBackups,
			MaxAgeDays: constants.LogMaxAgeDays,
			Compress:   constants.LogCompress,
		},
		TopoCache: TopoCacheConfig{
			Addr: "",
			TTL:  constants.DefaultTopoCacheTTL,
		},
	}
}
