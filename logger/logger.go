/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package logger builds the zap loggers used across the stores from the
// configured LogLevel.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/suparena/cloudstore/errors"
)

// Level names understood by ParseLevel besides zap's own names.
const (
	LevelCritical    = "Critical"
	LevelError       = "Error"
	LevelWarning     = "Warning"
	LevelInformation = "Information"
	LevelVerbose     = "Verbose"
	LevelOff         = "Off"
)

// ParseLevel maps a configured level to zap. off is true for "Off", in which case
// nothing should be logged at all.
func ParseLevel(name string) (level zapcore.Level, off bool, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical", "fatal", "dpanic", "panic":
		return zapcore.DPanicLevel, false, nil
	case "error":
		return zapcore.ErrorLevel, false, nil
	case "warning", "warn":
		return zapcore.WarnLevel, false, nil
	case "", "information", "info":
		return zapcore.InfoLevel, false, nil
	case "verbose", "debug":
		return zapcore.DebugLevel, false, nil
	case "off", "none":
		return zapcore.InvalidLevel, true, nil
	}
	return zapcore.InfoLevel, false, errors.NewNotConfiguredError("LogLevel", fmt.Errorf("unknown level %q", name))
}

// New returns a production JSON logger at the given level, or a no-op logger for "Off".
func New(level string) (*zap.Logger, error) {
	lvl, off, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if off {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl == zapcore.DebugLevel {
		cfg.Development = true
	}
	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
