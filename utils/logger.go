/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

// registry holds the named loggers and the settings applied to loggers
// created later.
type registry struct {
	mu      sync.RWMutex
	level   logrus.Level
	json    bool
	loggers map[string]*logrus.Logger
}

var loggers = &registry{
	level:   ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info")),
	json:    isJSONFormat(EnvDefaultString("CONSOLE_LOG_FORMAT", "text")),
	loggers: map[string]*logrus.Logger{},
}

// consoleWriter is the Out of every named logger.
type consoleWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (c *consoleWriter) Write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.w.Write(p)
}

var console = &consoleWriter{w: os.Stdout}

// SetConsoleOutput redirects every logger to w. A nil w discards output.
func SetConsoleOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	console.mu.Lock()
	console.w = w
	console.mu.Unlock()
}

// ConfigureConsoleLogFormat switches loggers created afterwards between
// "text" and "json" output.
func ConfigureConsoleLogFormat(format string) {
	loggers.mu.Lock()
	loggers.json = isJSONFormat(format)
	loggers.mu.Unlock()
}

func isJSONFormat(format string) bool {
	return strings.EqualFold(strings.TrimSpace(format), "json")
}

// ParseLogLevel parses a logrus level name; anything unknown is info.
func ParseLogLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SetLoggerLevel changes the level of a named logger. It reports false when
// no logger is registered under name.
func SetLoggerLevel(name string, level string) bool {
	loggers.mu.RLock()
	l, ok := loggers.loggers[name]
	loggers.mu.RUnlock()
	if ok {
		l.SetLevel(ParseLogLevel(level))
	}
	return ok
}

// ConfigureLogLevel sets the level of every named logger, of the loggers
// created afterwards and of the logrus standard logger.
func ConfigureLogLevel(level string) {
	lvl := ParseLogLevel(level)
	loggers.mu.Lock()
	loggers.level = lvl
	for _, l := range loggers.loggers {
		l.SetLevel(lvl)
	}
	loggers.mu.Unlock()
	logrus.SetLevel(lvl)
}

// NewLogger returns the logger registered under name, creating it on first
// use with the current level and console format.
func NewLogger(name string) *logrus.Logger {
	loggers.mu.Lock()
	defer loggers.mu.Unlock()
	if l, ok := loggers.loggers[name]; ok {
		return l
	}

	l := logrus.New()
	l.SetOutput(console)
	l.SetLevel(loggers.level)
	l.SetReportCaller(true)
	if loggers.json {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", shortCaller(f.File, f.Line)
			},
			FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
	} else {
		l.SetFormatter(&consoleFormatter{name: name})
	}
	loggers.loggers[name] = l
	return l
}

var (
	pidColor    = color.New(color.FgMagenta)
	callerColor = color.New(color.FgCyan)
	levelColors = map[logrus.Level]*color.Color{
		logrus.PanicLevel: color.New(color.FgRed, color.Bold),
		logrus.FatalLevel: color.New(color.FgRed, color.Bold),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.TraceLevel: color.New(color.FgMagenta),
	}
)

// consoleFormatter renders
// "time LEVEL pid --- [    name] dir/file.go:line : message k=v".
type consoleFormatter struct {
	name string
}

func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format(timestampFormat))
	b.WriteByte(' ')
	levelColors[e.Level].Fprintf(&b, "%7s", strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	pidColor.Fprintf(&b, "%-6d", os.Getpid())
	fmt.Fprintf(&b, "--- [%10s] ", f.name)
	if e.HasCaller() {
		callerColor.Fprint(&b, shortCaller(e.Caller.File, e.Caller.Line))
		b.WriteByte(' ')
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Data)) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// shortCaller keeps the last directory of file, e.g. "utils/logger.go:42".
func shortCaller(file string, line int) string {
	dir, name := path.Split(strings.ReplaceAll(file, "\\", "/"))
	return path.Join(path.Base(dir), name) + ":" + strconv.Itoa(line)
}

// EnvDefaultString returns the environment variable key, or def when unset.
func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
