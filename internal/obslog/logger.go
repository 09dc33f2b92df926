// Package obslog provides structured, leveled logging for the engine's
// internal components (GC, VM, compiler, realm). Each component holds its
// own component-tagged logger rather than passing one down as a parameter.
package obslog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

// Log is a component-tagged structured logger.
type Log struct {
	mu        sync.Mutex
	level     Level
	component string
	output    io.Writer
}

// Config configures a new Log.
type Config struct {
	Level     Level
	Component string
	Output    io.Writer
}

// New creates a logger from Config, defaulting Output to os.Stderr.
func New(cfg Config) *Log {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return &Log{level: cfg.Level, component: cfg.Component, output: cfg.Output}
}

// Component creates a logger for a named subsystem at Info level.
func Component(name string) *Log {
	return New(Config{Level: Info, Component: name})
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

func String(key, v string) Field  { return Field{key, v} }
func Int(key string, v int) Field { return Field{key, v} }
func Uint64(key string, v uint64) Field {
	return Field{key, v}
}
func Err(err error) Field { return Field{"error", err} }
func Any(key string, v any) Field { return Field{key, v} }

func (l *Log) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *Log) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *Log) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *Log) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

func (l *Log) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format("15:04:05.000"))
	b.WriteString("] [")
	b.WriteString(fmt.Sprintf("%-5s", levelNames[level]))
	b.WriteString("] ")
	if l.component != "" {
		b.WriteString("[")
		b.WriteString(l.component)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteString("\n")
	l.output.Write([]byte(b.String()))
}

var defaultLogger = Component("engine")

// Default returns the package-level default logger.
func Default() *Log { return defaultLogger }
