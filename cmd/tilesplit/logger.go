package main

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a zap logger writing to stderr and exposes it through slog.
// level is one of debug, info, warn(ing), error, critical; format is console or json.
func newLogger(level, format string) (*slog.Logger, func(), error) {
	var lvl zapcore.Level
	switch l := strings.ToLower(level); l {
	case "warning":
		lvl = zapcore.WarnLevel
	case "critical", "fatal":
		lvl = zapcore.ErrorLevel
	default:
		var err error
		if lvl, err = zapcore.ParseLevel(l); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q", level)
		}
	}

	var config zap.Config
	if lvl == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	switch format {
	case "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.DisableStacktrace = true
	case "json":
		config.Encoding = "json"
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", format)
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"

	logger, err := config.Build()
	if err != nil {
		return nil, nil, err
	}
	sync := func() { _ = logger.Sync() }
	return slog.New(zapslog.NewHandler(logger.Core())), sync, nil
}
