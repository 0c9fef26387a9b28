package core

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	loggerConfigUseJSONDefault  = false
	loggerConfigLevelDefault    = "info"
	loggerConfigLogFileDefault  = "" // i.e. stderr
	loggerTimestampFormat       = time.RFC3339
	loggerComponentFieldName    = "comp"
	loggerDefaultLogFileSizeMB  = 10
	loggerDefaultLogFileBackups = 1
)

// CollectableLogger is a logrus.Logger that also caches whether it is
// enabled for Debug, so hot-path code can skip formatting diagnostic
// strings when nobody is listening.
type CollectableLogger struct {
	logrus.Logger
	IsEnabledForDebug bool
}

func (log *CollectableLogger) GetOutput() io.Writer {
	return log.Out
}

func (log *CollectableLogger) GetLevel() any { return log.Logger.GetLevel() }

func (log *CollectableLogger) SetLevel(level any) {
	if lvl, ok := level.(logrus.Level); ok {
		log.Logger.SetLevel(lvl)
		log.IsEnabledForDebug = log.IsLevelEnabled(logrus.DebugLevel)
	}
}

// LoggerConfig configures the package-wide root logger. It is YAML-loadable
// (see config.go) so an embedder can ship scheduler logging settings
// alongside its own application config.
type LoggerConfig struct {
	// Whether to structure logged records as JSON (vs. plain text).
	UseJSON bool `yaml:"use_json"`
	// Log level name: "debug", "info", "warn", ...
	Level string `yaml:"level"`
	// Log file path, or "" / "stderr" / "stdout" for the corresponding
	// stream.
	LogFile string `yaml:"log_file"`
	// Log file max size, in MB, before rotation; 0 selects lumberjack's
	// default of 100 MB.
	LogFileMaxSizeMB int `yaml:"log_file_max_size_mb"`
	// How many rotated log files to retain.
	LogFileMaxBackupNum int `yaml:"log_file_max_backup_num"`
}

// DefaultLoggerConfig returns the library's default logging configuration:
// text formatter, info level, stderr output.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		UseJSON:             loggerConfigUseJSONDefault,
		Level:               loggerConfigLevelDefault,
		LogFile:             loggerConfigLogFileDefault,
		LogFileMaxSizeMB:    loggerDefaultLogFileSizeMB,
		LogFileMaxBackupNum: loggerDefaultLogFileBackups,
	}
}

var logTextFormatter = &logrus.TextFormatter{
	DisableColors:   true,
	FullTimestamp:   true,
	TimestampFormat: loggerTimestampFormat,
}

var logJSONFormatter = &logrus.JSONFormatter{
	TimestampFormat: loggerTimestampFormat,
}

// RootLogger is the package-wide logger every component logger derives
// from. Exposed for tests (see schedtest.NewTestLogCollect).
var RootLogger = &CollectableLogger{
	Logger: logrus.Logger{
		Out:       os.Stderr,
		Formatter: logTextFormatter,
		Level:     logrus.InfoLevel,
	},
}

// SetLogger applies cfg (or the defaults, if cfg is nil) to RootLogger.
func SetLogger(cfg *LoggerConfig) error {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		RootLogger.SetLevel(level)
	}

	if cfg.UseJSON {
		RootLogger.SetFormatter(logJSONFormatter)
	} else {
		RootLogger.SetFormatter(logTextFormatter)
	}

	switch cfg.LogFile {
	case "", "stderr":
		RootLogger.SetOutput(os.Stderr)
	case "stdout":
		RootLogger.SetOutput(os.Stdout)
	default:
		logDir := path.Dir(cfg.LogFile)
		if _, err := os.Stat(logDir); err != nil {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				return err
			}
		}
		RootLogger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileMaxSizeMB,
			MaxBackups: cfg.LogFileMaxBackupNum,
		})
	}

	return nil
}

// NewCompLogger returns a logger entry tagged with comp=compName, the unit
// every component in this package logs through.
func NewCompLogger(compName string) *logrus.Entry {
	return RootLogger.WithField(loggerComponentFieldName, compName)
}
