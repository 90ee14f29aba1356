package config

import (
	stderrors "errors"

	"github.com/taskforge/forge/internal/errors"
)

// Validate checks that cfg's values are within sane operating ranges,
// returning a config:INVALID error describing the first violation found.
func Validate(cfg *Config) error {
	switch {
	case cfg.Lock.Timeout <= 0:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("lock.timeout must be positive"))
	case cfg.Execution.BatchSize <= 0:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("execution.batch_size must be positive"))
	case cfg.Gates.CoverageThreshold < 0 || cfg.Gates.CoverageThreshold > 1:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("gates.coverage_threshold must be in [0,1]"))
	case cfg.FSM.SteelThreadCoverageThreshold < 0 || cfg.FSM.SteelThreadCoverageThreshold > 1:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("fsm.steel_thread_coverage_threshold must be in [0,1]"))
	case cfg.FSM.NonSteelThreadCoverageThreshold < 0 || cfg.FSM.NonSteelThreadCoverageThreshold > 1:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("fsm.non_steel_thread_coverage_threshold must be in [0,1]"))
	case cfg.Logging.MaxSizeMB <= 0:
		return errors.NewCodedError(errors.CategoryConfig, "INVALID", stderrors.New("logging.max_size_mb must be positive"))
	}
	return nil
}
