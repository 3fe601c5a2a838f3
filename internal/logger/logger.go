// Package logger holds the process-wide zap logger. Command output owns
// stdout, so log lines are JSON on stderr.
package logger

import (
	"errors"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samvad-hq/overlod-admin/internal/config"
)

// S is the package-level logger; nil until Init.
var S *zap.SugaredLogger

// Logger is the object-logging surface handed to components so they can be
// tested without a global logger.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Init installs a logger at cfg.LogLevel writing to stderr.
func Init(cfg *config.Config) (*zap.SugaredLogger, error) {
	return initWith(cfg, zapcore.Lock(os.Stderr))
}

func initWith(cfg *config.Config, sink zapcore.WriteSyncer) (*zap.SugaredLogger, error) {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AppName != "" {
		opts = append(opts, zap.Fields(zap.String("app", cfg.AppName)))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, ParseLevel(cfg.LogLevel))
	S = zap.New(core, opts...).Sugar()
	return S, nil
}

// ParseLevel maps a config string onto a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes the logger. Sync on a terminal fails with EINVAL or ENOTTY
// on some platforms; those are ignored.
func Close() error {
	if S == nil {
		return nil
	}
	err := S.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// logObj writes obj as a single structured field named key.
func logObj(level zapcore.Level, msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	if ce := S.Desugar().Check(level, msg); ce != nil {
		ce.Write(zap.Any(key, obj))
	}
}

func InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

type global struct{}

func (global) InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func (global) DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func (global) WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func (global) ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

// Default returns a Logger backed by whatever Init installed, resolved at
// call time.
func Default() Logger { return global{} }

type nop struct{}

func (nop) InfoObj(string, string, interface{})  {}
func (nop) DebugObj(string, string, interface{}) {}
func (nop) WarnObj(string, string, interface{})  {}
func (nop) ErrorObj(string, string, interface{}) {}

// NopLogger discards everything.
func NopLogger() Logger { return nop{} }
