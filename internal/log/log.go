// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package log wraps go.uber.org/zap in a module-scoped, key/value-pair call
// shape: `var logger = log.NewModuleLogger(ModuleExecutor)`, then
// `logger.Error("message", "key", value, ...)`, with `logger.NewWith(...)`
// producing a child logger carrying fixed extra fields (e.g. "contract",
// contractKey).
package log

import (
	"sync"

	"github.com/fatih/color"
	gostack "github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names every package that pulls its own logger, mirroring the
// teacher's ConsensusIstanbulBackend-style constants.
type Module string

const (
	ModuleAssembly    Module = "assembly"
	ModuleTask        Module = "task"
	ModuleCoordinator Module = "coordinator"
	ModulePoEx        Module = "poex"
	ModuleOpinion     Module = "opinion"
	ModuleLocalstore  Module = "localstore"
	ModuleDedup       Module = "dedup"
	ModuleExecutor    Module = "executor"
	ModuleCollab      Module = "collaborator"
	ModuleCmd         Module = "cmd"
)

// Logger is the interface every package depends on; it never imports zap
// directly.
type Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})

	// NewWith returns a child logger that always attaches ctx in addition to
	// whatever fields the call site provides.
	NewWith(ctx ...interface{}) Logger
}

var (
	baseOnce sync.Once
	base     *zap.Logger
)

func rootLogger() *zap.Logger {
	baseOnce.Do(func() {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		if !color.NoColor {
			encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.AddSync(colorable.NewColorableStdout()),
			zapcore.DebugLevel,
		)
		base = zap.New(core, zap.AddCallerSkip(2))
	})
	return base
}

type moduleLogger struct {
	module Module
	fields []zap.Field
}

// NewModuleLogger constructs the package-level logger a package keeps in a
// `var logger = log.NewModuleLogger(ModuleX)` declaration.
func NewModuleLogger(module Module) Logger {
	return &moduleLogger{module: module}
}

func (l *moduleLogger) NewWith(ctx ...interface{}) Logger {
	return &moduleLogger{module: l.module, fields: append(append([]zap.Field(nil), l.fields...), toFields(ctx)...)}
}

func toFields(ctx []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2+1)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}

func (l *moduleLogger) log(level zapcore.Level, msg string, ctx []interface{}) {
	fields := append(append([]zap.Field{zap.String("module", string(l.module)), callerField()}, l.fields...), toFields(ctx)...)
	zl := rootLogger()
	switch level {
	case zapcore.DebugLevel:
		zl.Debug(msg, fields...)
	case zapcore.InfoLevel:
		zl.Info(msg, fields...)
	case zapcore.WarnLevel:
		zl.Warn(msg, fields...)
	default:
		zl.Error(msg, fields...)
	}
}

// callerField records the immediate caller's file:line using go-stack,
// since zap's own caller annotation would otherwise point inside this
// package rather than the log.Error call site's call site.
func callerField() zap.Field {
	call := gostack.Caller(3)
	return zap.String("caller", call.String())
}

func (l *moduleLogger) Debug(msg string, ctx ...interface{}) { l.log(zapcore.DebugLevel, msg, ctx) }
func (l *moduleLogger) Info(msg string, ctx ...interface{})  { l.log(zapcore.InfoLevel, msg, ctx) }
func (l *moduleLogger) Warn(msg string, ctx ...interface{})  { l.log(zapcore.WarnLevel, msg, ctx) }
func (l *moduleLogger) Error(msg string, ctx ...interface{}) { l.log(zapcore.ErrorLevel, msg, ctx) }

// Sync flushes the root logger, if it has been created.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
