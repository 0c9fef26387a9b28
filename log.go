package scheduler

import (
	"github.com/cooptask/scheduler/internal/core"
	"github.com/sirupsen/logrus"
)

// LoggerConfig configures the package-wide root logger (see config.go for
// how it is loaded from YAML alongside SchedulerConfig).
type LoggerConfig = core.LoggerConfig

// DefaultLoggerConfig returns the library's default logging configuration.
func DefaultLoggerConfig() *LoggerConfig { return core.DefaultLoggerConfig() }

// SetLogger applies cfg (or the defaults, if cfg is nil) to the package's
// root logger.
func SetLogger(cfg *LoggerConfig) error { return core.SetLogger(cfg) }

// NewCompLogger returns a logger entry tagged with comp=compName.
func NewCompLogger(compName string) *logrus.Entry { return core.NewCompLogger(compName) }

// GetRootLogger returns the package-wide root logger, typed as any so
// callers don't need to import the internal package; it satisfies
// schedtest.CollectableLog.
func GetRootLogger() any { return core.RootLogger }
