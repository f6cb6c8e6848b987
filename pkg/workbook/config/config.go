// Package config loads workbook tool settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-"`
}

// ClientConfig describes the persistence service a client talks to.
type ClientConfig struct {
	// Endpoint is the service root, e.g. "http://localhost:8080/data".
	Endpoint  string        `yaml:"endpoint"`
	ProjectID int           `yaml:"project_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ServerConfig represents the reference persistence server.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:  "http://localhost:8080/data",
			ProjectID: 1,
			Timeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			DataDir: "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// CandidatePaths lists the files Load tries when no path is given.
func CandidatePaths() []string {
	paths := []string{
		"workbook.yaml",
		"configs/workbook.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "workbook", "config.yaml"))
	}
	return paths
}

// Load reads the file at path, or the first readable candidate when path is
// empty. Settings absent from the file keep their defaults. When no
// candidate exists the result wraps fs.ErrNotExist.
func Load(path string) (*Config, error) {
	paths := CandidatePaths()
	if path != "" {
		paths = []string{path}
	}

	var data []byte
	var err error
	var loadedPath string

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", loadedPath, err)
	}

	cfg.ConfigPath = loadedPath
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when no file exists.
// Parse errors are still returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == "" {
		return Default(), nil
	}
	return cfg, err
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Addr returns the server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
