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
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const (
	defaultTimestampFormat = "2006-01-02 15:04:05.000"
	loggerNameWidth        = 10
	levelWidth             = 7
)

var (
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	loggerOutput     io.Writer = os.Stdout
	defaultLevel               = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat           = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
)

// ConfigureConsoleLogFormat switches loggers created afterwards between
// "text" and "json" output.
func ConfigureConsoleLogFormat(format string) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// ConfigureOutput redirects every registered logger and the ones created later.
func ConfigureOutput(w io.Writer) {
	if w == nil {
		return
	}
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerOutput = w
	for _, lg := range loggerRegistry {
		lg.SetOutput(w)
	}
}

// ParseLogLevel accepts the logrus level names in any case and falls back to
// info.
func ParseLogLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.Lock()
	defaultLevel = lvl
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.Unlock()
	logrus.SetLevel(lvl)
}

// SetLoggerLevel reports false when no logger is registered under name.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		lg.SetLevel(ParseLogLevel(lvlStr))
	}
	return ok
}

func ConfigureLogLevel(levelStr string) {
	SetAllLoggersLevel(ParseLogLevel(levelStr))
}

// NewLogger returns the logger registered under name, creating it on first use.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}

	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}
	l = logrus.New()
	l.SetOutput(loggerOutput)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(name, consoleLogFormat))
	loggerRegistry[name] = l
	return l
}

func newFormatter(name, format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			TimestampFormat: defaultTimestampFormat,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		}
	}
	return &Log4jFormatter{LoggerName: name, NameWidth: loggerNameWidth}
}

// Log4jFormatter renders "ts LEVEL pid --- [name] file:line : msg k=v" with
// fields sorted by key.
type Log4jFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
}

func (f *Log4jFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	caller := ""
	if entry.HasCaller() {
		caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %*s %-6d --- [%*s] %s : %s",
		entry.Time.Format(tsFormat),
		levelWidth, strings.ToUpper(entry.Level.String()),
		os.Getpid(),
		max(f.NameWidth, 0), f.LoggerName,
		caller,
		entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
