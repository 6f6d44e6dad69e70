package conf

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig contains the configuration for the process logger.
type LogConfig struct {
	Format string `help:"Format to write log lines in" enum:"text,json" default:"text"`
	Level  string `help:"Lowest log level that will be emitted" enum:"debug,info,warn,error" default:"info"`
	File   string `help:"File to direct logs to. If left blank, or '-', logs will go to stderr" default:"-"`
}

// Build creates a logger from the configuration.
func (cfg *LogConfig) Build() (*zap.Logger, error) {
	var zcfg zap.Config
	switch cfg.Format {
	case "", "text":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Development = false
	case "json":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, NewInvalidLogConfigurationError("log format must be either text or json")
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, NewInvalidLogConfigurationError(err.Error())
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	if cfg.File != "" && cfg.File != "-" {
		zcfg.OutputPaths = []string{cfg.File}
	} else {
		zcfg.OutputPaths = []string{"stderr"}
	}
	return zcfg.Build()
}
