package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// StackLogWriter is a zapcore.Core that writes each entry to a file named after the first segment
// of its logger name. Deploy loggers are named after the stack, so every stack gets its own log.
type StackLogWriter struct {
	Encoder     zapcore.Encoder
	LogRootPath string
	files       *sync.Map // map[string]*os.File
}

func NewCategoryWriter(enc zapcore.Encoder, logRootPath string) *StackLogWriter {
	return &StackLogWriter{
		Encoder:     enc,
		LogRootPath: logRootPath,
		files:       &sync.Map{},
	}
}

func (c *StackLogWriter) Enabled(lvl zapcore.Level) bool {
	return true
}

func (c *StackLogWriter) With(fields []zapcore.Field) zapcore.Core {
	clone := &StackLogWriter{
		Encoder:     c.Encoder.Clone(),
		LogRootPath: c.LogRootPath,
		files:       c.files,
	}
	for i := range fields {
		fields[i].AddTo(clone.Encoder)
	}
	return clone
}

func (c *StackLogWriter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *StackLogWriter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	stack, rest, _ := strings.Cut(ent.LoggerName, ".")
	stack = strings.ReplaceAll(strings.TrimSpace(stack), string(os.PathSeparator), "_")
	if stack == "" {
		return nil
	}
	ent.LoggerName = rest

	w, err := c.fileFor(stack)
	if err != nil {
		return err
	}
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		return w.Sync()
	}
	return nil
}

func (c *StackLogWriter) fileFor(stack string) (*os.File, error) {
	if f, ok := c.files.Load(stack); ok {
		return f.(*os.File), nil
	}
	if err := os.MkdirAll(c.LogRootPath, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(c.LogRootPath, stack+".log"), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	existing, loaded := c.files.LoadOrStore(stack, f)
	if loaded {
		f.Close()
		return existing.(*os.File), nil
	}
	// Truncate only once this file is known to be the one in the map, in case two goroutines
	// opened it at the same time.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, f.Truncate(0)
}

func (c *StackLogWriter) Sync() error {
	var errs error
	c.files.Range(func(key, value interface{}) bool {
		errs = errors.Join(errs, value.(*os.File).Sync())
		return true
	})
	return errs
}
