package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters log entries based on the logger name, so that
// `deploy=debug` enables debug output for "deploy" and every "deploy.*" logger. The most specific
// configured name wins; "" configures the root.
type EntryLeveller struct {
	zapcore.Core

	levels *sync.Map // map[string]zapcore.Level, shared with clones
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{Core: core, levels: &sync.Map{}}
	for k, v := range levels {
		el.levels.Store(k, v)
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{
		Core:   el.Core.With(f),
		levels: el.levels,
	}
}

// levelFor resolves the configured level for a logger name, caching the result under the full name.
func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	if level, ok := el.levels.Load(name); ok {
		return level.(zapcore.Level), true
	}
	for module := name; module != ""; {
		idx := strings.LastIndexByte(module, '.')
		if idx < 0 {
			module = ""
		} else {
			module = module[:idx]
		}
		if level, ok := el.levels.Load(module); ok {
			el.levels.Store(name, level)
			return level.(zapcore.Level), true
		}
	}
	return 0, false
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	level, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < level {
		return ce
	}
	return ce.AddCore(e, el)
}
