// Package log provides the contextual, key/value structured logger used
// throughout this module. The API shape (NewModuleLogger, Logger.NewWith,
// leveled methods taking alternating key/value pairs) mirrors the
// log15-style logger the teacher codebase wraps; the implementation here is
// backed by go.uber.org/zap's SugaredLogger instead, since the original
// logger package was not part of the retrieved source.
package log

import (
	"os"
	"sync"

	"github.com/go-stack/stack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names, mirroring the teacher's log.Common / log.StorageDatabase
// constants used to tag loggers by subsystem.
const (
	ModuleChain      = "chain"
	ModuleDataReq    = "datarequest"
	ModuleStorage    = "storage"
	ModuleSync       = "sync"
	ModuleCommon     = "common"
	ModuleMetrics    = "metrics"
	ModuleConfig     = "config"
)

var (
	baseOnce sync.Once
	base     *zap.SugaredLogger
)

func rootLogger() *zap.SugaredLogger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if os.Getenv("POENODE_LOG_DEV") != "" {
			cfg = zap.NewDevelopmentConfig()
		}
		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			l = zap.NewNop()
		}
		base = l.Sugar()
	})
	return base
}

// Logger is a contextual logger: every entry carries the key/value pairs
// accumulated through NewWith calls plus whatever is passed at the call
// site.
type Logger struct {
	s *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with the given subsystem module.
func NewModuleLogger(module string) Logger {
	return Logger{s: rootLogger().With("module", module)}
}

// NewWith returns a derived Logger with additional persistent context.
func (l Logger) NewWith(ctx ...interface{}) Logger {
	return Logger{s: l.s.With(ctx...)}
}

func (l Logger) Trace(msg string, ctx ...interface{}) { l.s.Debugw(msg, ctx...) }
func (l Logger) Debug(msg string, ctx ...interface{}) { l.s.Debugw(msg, ctx...) }
func (l Logger) Info(msg string, ctx ...interface{})  { l.s.Infow(msg, ctx...) }
func (l Logger) Warn(msg string, ctx ...interface{})  { l.s.Warnw(msg, ctx...) }
func (l Logger) Error(msg string, ctx ...interface{}) { l.s.Errorw(msg, ctx...) }

// Caller returns the immediate caller's frame, used when a log line needs to
// report where an otherwise-swallowed error originated (see §7's
// log-and-swallow storage failure policy).
func Caller() string {
	c := stack.Caller(1)
	return c.String()
}
