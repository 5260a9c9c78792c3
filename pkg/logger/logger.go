// Package logger provides component-tagged structured logging for rally.
//
// All packages log through the package-level helpers (InfoCF, ErrorCF, ...)
// which route to a shared zap core. The component tag groups log lines by
// subsystem ("realtime", "chat", "api") so a single run is greppable.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int8

const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = newBase()
)

func newBase() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// SetLevel adjusts the minimum level for all subsequent log calls.
func SetLevel(l Level) {
	level.SetLevel(zapcore.Level(l))
}

// SetOutput replaces the log sink.
func SetOutput(ws zapcore.WriteSyncer) {
	mu.Lock()
	defer mu.Unlock()
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	base = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level))
}

func fields(component string, kv map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(kv)+1)
	out = append(out, zap.String("component", component))
	for k, v := range kv {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// DebugCF logs a debug message for a component with structured fields.
func DebugCF(component, msg string, kv map[string]any) {
	logger().Debug(msg, fields(component, kv)...)
}

// InfoCF logs an info message for a component with structured fields.
func InfoCF(component, msg string, kv map[string]any) {
	logger().Info(msg, fields(component, kv)...)
}

// WarnCF logs a warning for a component with structured fields.
func WarnCF(component, msg string, kv map[string]any) {
	logger().Warn(msg, fields(component, kv)...)
}

// ErrorCF logs an error for a component with structured fields.
func ErrorCF(component, msg string, kv map[string]any) {
	logger().Error(msg, fields(component, kv)...)
}
