// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the contract every core component is constructed with. It is
// deliberately an interface, not *zap.Logger, so tests can supply a fake
// instead of a real zap logger (the fake still names zapcore.Level).
type Logger interface {
	Level() zapcore.Level

	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	Benchmark(functionName string, duration time.Duration)
	Sync() error
}

type zapLogger struct {
	*zap.SugaredLogger
	level zapcore.Level
}

func (z *zapLogger) Level() zapcore.Level {
	return z.level
}

func (z *zapLogger) Benchmark(functionName string, duration time.Duration) {
	z.Debugf("benchmark: %s took %s", functionName, duration)
}

// NewApplicationLogger builds the default production logger: JSON
// encoding, ISO8601 timestamps, info level. Callers that already know the
// configured log level should use NewApplicationLoggerAt instead.
func NewApplicationLogger() (Logger, error) {
	return NewApplicationLoggerAt(zapcore.InfoLevel)
}

// NewApplicationLoggerAt builds the default logger at an explicit level,
// used by cmd/langtrack once the configured log level is known.
func NewApplicationLoggerAt(level zapcore.Level) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(level)

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{SugaredLogger: base.Sugar(), level: level}, nil
}
