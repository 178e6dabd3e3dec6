// Package logging provides a small leveled logger whose minimum level is
// configured per instance rather than through a process-wide singleton,
// since a host application may run more than one Session concurrently.
package logging

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Level enumerates severity tiers.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// Logger is a concurrency-safe leveled logger.
type Logger struct {
	mu    sync.Mutex
	level Level
	inner *log.Logger
}

// New creates a Logger writing to w, filtering out anything below
// minLevel. Passing a nil w discards all output.
func New(w io.Writer, minLevel Level) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{level: minLevel, inner: log.New(w, "", 0)}
}

// SetLevel adjusts the minimum level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(lvl Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	l.inner.Printf("[%s] %s  %s", lvl, ts, msg)
}

func (l *Logger) Debug(f string, a ...any) { l.log(Debug, f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.log(Info, f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.log(Warn, f, a...) }
func (l *Logger) Error(f string, a ...any) { l.log(Error, f, a...) }
