// Package logging is a small leveled logger with colored level tags.
//
// Only the command line tool and the WASM bridge log. The library packages
// under pkg/ return errors and never print.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

// Level is a log verbosity. Higher levels print more.
type Level int32

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
)

var levelNames = []string{"off", "error", "warn", "info", "debug"}

var levelTags = []func(a ...any) string{
	func(a ...any) string { return "" },
	color.New(color.FgHiRed).Sprint,
	color.New(color.FgHiYellow).Sprint,
	color.New(color.FgHiGreen).Sprint,
	color.New(color.FgHiBlue).Sprint,
}

var tagText = []string{"", "ERR", "WRN", "INF", "DBG"}

func (l Level) String() string {
	if l < Off || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel returns the level named s, or Info when s is unknown.
func ParseLevel(s string) Level {
	for i, n := range levelNames {
		if n == s {
			return Level(i)
		}
	}
	return Info
}

// ValidLevel reports whether s names a level.
func ValidLevel(s string) bool {
	for _, n := range levelNames {
		if n == s {
			return true
		}
	}
	return false
}

// Logger writes timestamped lines at or below its level.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	level atomic.Int32
	now   func() time.Time
}

// New returns a logger writing to w at level.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{w: w, now: time.Now}
	l.level.Store(int32(level))
	return l
}

// Std logs to stderr at Info.
var Std = New(os.Stderr, Info)

// SetLevel changes the verbosity.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

// Level returns the current verbosity.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// Enabled reports whether messages at level are printed.
func (l *Logger) Enabled(level Level) bool {
	return level > Off && level <= l.Level()
}

func (l *Logger) Errorf(format string, a ...any) { l.logf(Error, format, a...) }
func (l *Logger) Warnf(format string, a ...any)  { l.logf(Warn, format, a...) }
func (l *Logger) Infof(format string, a ...any)  { l.logf(Info, format, a...) }
func (l *Logger) Debugf(format string, a ...any) { l.logf(Debug, format, a...) }

// Dump prints a spew dump of v at Debug level.
func (l *Logger) Dump(label string, v any) {
	if !l.Enabled(Debug) {
		return
	}
	l.logf(Debug, "%s\n%s", label, spew.Sdump(v))
}

func (l *Logger) logf(level Level, format string, a ...any) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, a...)
	ts := l.now().Format("15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s %s\n", ts, levelTags[level](tagText[level]), msg)
}
