// Configuration loading for embedders that want to ship scheduler settings
// (feature flags, logging) alongside their own application config, as a
// named section of a larger YAML document rather than a dedicated file.

package scheduler

import (
	"fmt"
	"io"
	"os"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

// SchedulerConfig is the top-level, YAML-loadable configuration for a
// Scheduler: which engine features are active and how the scheduler logs.
type SchedulerConfig struct {
	Features *FeatureConfig `yaml:"features"`
	Logger   *LoggerConfig  `yaml:"log_config"`
}

var defaultSchedulerConfig = &SchedulerConfig{
	Features: NewFeatureConfig(),
	Logger:   DefaultLoggerConfig(),
}

// DefaultSchedulerConfig returns an independent deep copy of the package's
// default configuration, so callers can freely mutate it without corrupting
// the shared template.
func DefaultSchedulerConfig() *SchedulerConfig {
	return clone.Clone(defaultSchedulerConfig).(*SchedulerConfig)
}

// LoadConfig loads a SchedulerConfig from the "scheduler_config" section of
// a YAML document, either from cfgFile or, for testing, directly from buf.
// Fields absent from the document retain their default values.
func LoadConfig(cfgFile string, buf []byte) (*SchedulerConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("cannot open config file: %w", err)
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	}

	doc := struct {
		SchedulerConfig *SchedulerConfig `yaml:"scheduler_config"`
	}{
		SchedulerConfig: DefaultSchedulerConfig(),
	}
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	// NewScheduler re-applies the microsecond/idle-sleep gate when this
	// config's Features are handed to it, so it is not repeated here.
	return doc.SchedulerConfig, nil
}
