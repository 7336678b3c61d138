// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package corelog is the structured logging interface used throughout
// this module, backed by go.uber.org/zap.
package corelog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface every package depends on. It never
// exposes the backing zap types directly so call sites stay decoupled
// from the logging implementation.
type Logger interface {
	With(fields ...Field) Logger
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Crit(msg string, fields ...Field)
	Enabled(level Level) bool
}

// Field is a structured logging key/value pair.
type Field = zap.Field

// String, Int, etc. re-export zap's field constructors so callers never
// import zap directly.
var (
	String = zap.String
	Int    = zap.Int
	Uint64 = zap.Uint64
	Bool   = zap.Bool
	Err    = zap.Error
	Stringer = zap.Stringer
)

// Level mirrors zapcore.Level so callers can check Enabled without an
// import on zapcore.
type Level = zapcore.Level

const (
	TraceLevel = zapcore.DebugLevel - 1
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	CritLevel  = zapcore.DPanicLevel
)

type zapLogger struct {
	z *zap.Logger
}

// New returns a production-configured Logger (JSON encoding, info
// level and above).
func New() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails to build its own encoder config,
		// which never happens with the stock config — fall back to a
		// no-op core rather than panic in a logging constructor.
		return Noop()
	}
	return &zapLogger{z: z}
}

// Development returns a human-readable, debug-level Logger for local
// runs and tests.
func Development() Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return Noop()
	}
	return &zapLogger{z: z}
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Crit(msg string, fields ...Field)  { l.z.DPanic(msg, fields...) }

func (l *zapLogger) Enabled(level Level) bool {
	return l.z.Core().Enabled(level)
}

type noopLogger struct{}

// Noop returns a Logger that discards everything, for tests that don't
// care about log output.
func Noop() Logger { return noopLogger{} }

func (noopLogger) With(fields ...Field) Logger          { return noopLogger{} }
func (noopLogger) Trace(msg string, fields ...Field)    {}
func (noopLogger) Debug(msg string, fields ...Field)    {}
func (noopLogger) Info(msg string, fields ...Field)     {}
func (noopLogger) Warn(msg string, fields ...Field)     {}
func (noopLogger) Error(msg string, fields ...Field)    {}
func (noopLogger) Crit(msg string, fields ...Field)     {}
func (noopLogger) Enabled(level Level) bool             { return false }
