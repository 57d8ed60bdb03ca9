// Package config loads GoStego settings from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go-simpler.org/env"

	"github.com/xob0t/GoStego/internal/logging"
	"github.com/xob0t/GoStego/pkg/imageio"
)

// C is the configuration shared by the CLI commands.
type C struct {
	LogLevel    string `env:"GOSTEGO_LOG_LEVEL" default:"info" usage:"log level: off, error, warn, info, debug"`
	MaxFileSize int64  `env:"GOSTEGO_MAX_FILE_SIZE" default:"5242880" usage:"largest input image in bytes"`
	Workers     int    `env:"GOSTEGO_WORKERS" default:"4" usage:"concurrent files processed by scan"`
	FontPath    string `env:"GOSTEGO_FONT" usage:"TTF used for cover captions, empty for the embedded font"`
}

// Source looks up a variable by name.
type Source = env.Source

// Map is a Source backed by a map, mostly for tests.
type Map map[string]string

// LookupEnv implements Source.
func (m Map) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type lookupFunc func(string) (string, bool)

func (f lookupFunc) LookupEnv(key string) (string, bool) { return f(key) }

// New loads the configuration from the process environment.
func New() (*C, error) {
	return Load(nil)
}

// Load reads the configuration from src, or from the process environment when
// src is nil, and validates it.
func Load(src Source) (*C, error) {
	if src == nil {
		src = lookupFunc(os.LookupEnv)
	}
	c := &C{}
	if err := env.Load(c, &env.Options{Source: src}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *C) validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("GOSTEGO_LOG_LEVEL: unknown level %q", c.LogLevel)
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = imageio.DefaultMaxFileSize
	}
	if c.Workers < 1 {
		return fmt.Errorf("GOSTEGO_WORKERS: must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Usage writes the list of variables with their defaults and descriptions.
func Usage(w io.Writer) {
	env.Usage(&C{}, w, nil)
}

// PrintEnv writes c as shell assignments that can be edited and sourced.
func PrintEnv(c *C, w io.Writer) {
	fmt.Fprintf(w, "GOSTEGO_LOG_LEVEL=%s\n", c.LogLevel)
	fmt.Fprintf(w, "GOSTEGO_MAX_FILE_SIZE=%d\n", c.MaxFileSize)
	fmt.Fprintf(w, "GOSTEGO_WORKERS=%d\n", c.Workers)
	fmt.Fprintf(w, "GOSTEGO_FONT=%s\n", c.FontPath)
}
