// Package logging provides component-scoped logrus loggers.
//
// WP-CLI progress output goes to stdout; logs always go to stderr (or the
// configured writer) so the two never interleave on the same stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config controls level and format for every logger.
type Config struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	// WPGH_LOG_LEVEL takes precedence.
	Level string `yaml:"level" toml:"level"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format" toml:"format"`
}

var (
	mu      sync.Mutex
	base    = newBase(Config{}, os.Stderr)
	loggers = make(map[string]*logrus.Entry)
)

// Configure replaces the shared logger settings. Loggers handed out before
// the call pick up the new settings.
func Configure(cfg Config, out io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if out == nil {
		out = os.Stderr
	}
	l := newBase(cfg, out)
	base.SetLevel(l.GetLevel())
	base.SetFormatter(l.Formatter)
	base.SetOutput(out)
}

// SetVerbose forces debug level.
func SetVerbose() {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(logrus.DebugLevel)
}

// NewLogger returns the logger for component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := base.WithField("component", component)
	loggers[component] = l
	return l
}

func newBase(cfg Config, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	levelStr := "info"
	if env := os.Getenv("WPGH_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&TextFormatter{})
	}
	return l
}

// TextFormatter renders "[LEVEL] [component] message key=value".
type TextFormatter struct{}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	b.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(levelStr)))

	if component, ok := entry.Data["component"]; ok {
		b.WriteString(fmt.Sprintf(" [%v]", component))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	for _, key := range sortedKeys(entry.Data) {
		if key == "component" {
			continue
		}
		b.WriteString(fmt.Sprintf(" %s=%v", key, entry.Data[key]))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
