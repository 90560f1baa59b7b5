// Package logger builds the zap logger of the dbpool binary.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents logger configuration
type Config struct {
	Level       string            `mapstructure:"level"`
	Development bool              `mapstructure:"development"`
	Encoding    string            `mapstructure:"encoding"` // json or console
	OutputPaths []string          `mapstructure:"output_paths"`
	Name        string            `mapstructure:"name"`
	Fields      map[string]string `mapstructure:"fields"` // added to every entry, e.g. host or env
}

// New builds the process logger. Development mode switches to zap's
// development defaults (console friendly levels, stack traces from warn on)
// and keeps the json field names used in production.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	zapCfg.EncoderConfig = encoderConfig(cfg.Development)
	// Every database logs the same messages, sampling would drop them.
	zapCfg.Sampling = nil
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	if len(cfg.OutputPaths) != 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	if len(cfg.Fields) != 0 {
		zapCfg.InitialFields = make(map[string]interface{}, len(cfg.Fields))
		for key, value := range cfg.Fields {
			zapCfg.InitialFields[key] = value
		}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	if development {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return enc
}
