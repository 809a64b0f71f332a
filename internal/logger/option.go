package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// coreWithLevel overrides the level of a wrapped core.
type coreWithLevel struct {
	zapcore.Core

	// level is the minimum level this core lets through.
	level zapcore.Level
}

// Enabled reports whether l passes both the overridden and the wrapped level.
func (c *coreWithLevel) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

// Check adds the core to the entry only when the entry level is enabled.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *coreWithLevel) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With keeps the level override on derived cores.
//
//nolint:ireturn // Returning zapcore.Core is intended for zap integration.
func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{c.Core.With(fields), c.level}
}

// WithLevel derives a logger that drops entries below lvl, even when the
// shared level is lower. Entries below the shared level stay dropped too. Used to keep third-party library chatter quiet.
//
//nolint:ireturn // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &coreWithLevel{core, lvl}
	})
}
