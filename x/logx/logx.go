// Package logx is the logging surface shared by drivers-side services and
// the command binaries. Output is formatted through x/fmtx so the same code
// runs on TinyGo targets.
package logx

import (
	"io"
	"sync"

	"icmd-go/x/fmtx"
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func Nop() Logger { return nopLogger{} }

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO]  ",
	LevelWarn:  "[WARN]  ",
	LevelError: "[ERROR] ",
}

// ParseLevel accepts debug, info, warn and error; anything else is info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Console writes one line per call to w. Safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	min    Level
	buf    []byte
}

// NewConsole logs to w at LevelInfo and above. prefix is written after the
// level tag, e.g. "[counter] ".
func NewConsole(w io.Writer, prefix string) *Console {
	return &Console{w: w, prefix: prefix, min: LevelInfo, buf: make([]byte, 0, 128)}
}

func (c *Console) SetLevel(l Level) {
	c.mu.Lock()
	c.min = l
	c.mu.Unlock()
}

// With returns a Console on the same writer with prefix appended.
func (c *Console) With(prefix string) *Console {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Console{w: c.w, prefix: c.prefix + prefix, min: c.min, buf: make([]byte, 0, 128)}
}

func (c *Console) Debugf(format string, args ...any) { c.emit(LevelDebug, format, args) }
func (c *Console) Infof(format string, args ...any)  { c.emit(LevelInfo, format, args) }
func (c *Console) Warnf(format string, args ...any)  { c.emit(LevelWarn, format, args) }
func (c *Console) Errorf(format string, args ...any) { c.emit(LevelError, format, args) }

func (c *Console) emit(l Level, format string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l < c.min {
		return
	}
	b := append(c.buf[:0], levelTags[l]...)
	b = append(b, c.prefix...)
	b = fmtx.Appendf(b, format, args...)
	b = append(b, '\n')
	_, _ = c.w.Write(b)
	c.buf = b
}
