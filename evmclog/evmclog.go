// Package evmclog is a small structured logger modeled on go-ethereum's
// log package: leveled, key-value, colored when the output is a terminal.
package evmclog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = map[Level]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
}

var levelColors = map[Level]int{
	LevelError: 31,
	LevelWarn:  33,
	LevelInfo:  36,
	LevelDebug: 90,
}

// Logger writes leveled, key-value log lines to an output stream.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  Level
	prefix string
}

var root = New(os.Stderr, LevelInfo)

// New constructs a Logger writing to w, colorizing output only if w is a
// terminal (matching go-ethereum's log handler auto-detection).
func New(w io.Writer, level Level) *Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if color {
		w = colorable.NewColorable(w.(*os.File))
	}
	return &Logger{out: w, color: color, level: level}
}

// Root returns the process-wide default logger.
func Root() *Logger { return root }

// NewRotatingFile builds a Logger that writes to a size- and age-rotated log
// file, for long-running analyzer sweeps that would otherwise grow an
// artifact-store or gas-guzzler log without bound.
func NewRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int, level Level) *Logger {
	return &Logger{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		},
		level: level,
	}
}

// With returns a derived logger that prefixes every line with name.
func (l *Logger) With(name string) *Logger {
	return &Logger{out: l.out, color: l.color, level: l.level, prefix: name}
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if level > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02T15:04:05.000")
	name := levelNames[level]
	var line string
	if l.color {
		line = fmt.Sprintf("\x1b[%dm%-5s\x1b[0m[%s] ", levelColors[level], name, ts)
	} else {
		line = fmt.Sprintf("%-5s[%s] ", name, ts)
	}
	if l.prefix != "" {
		line += l.prefix + ": "
	}
	line += msg
	for i := 0; i+1 < len(kv); i += 2 {
		line += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(LevelWarn, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(LevelInfo, msg, kv...) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv...) }

func Error(msg string, kv ...interface{}) { root.Error(msg, kv...) }
func Warn(msg string, kv ...interface{})  { root.Warn(msg, kv...) }
func Info(msg string, kv ...interface{})  { root.Info(msg, kv...) }
func Debug(msg string, kv ...interface{}) { root.Debug(msg, kv...) }
