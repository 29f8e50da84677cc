// Package config loads and saves the framerec YAML configuration.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/framerec/pkg/export"
	"github.com/ssargent/framerec/pkg/recorder"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the framerec configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Recorder Recorder `yaml:"recorder"`
	Export   Export   `yaml:"export"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Recorder controls live capture. An empty Dir records into
// <data_dir>/recordings.
type Recorder struct {
	Dir            string        `yaml:"dir"`
	FileNameFormat string        `yaml:"file_name_format"`
	SaveInterval   time.Duration `yaml:"save_interval"`
}

// Export holds the default CSV export settings
type Export struct {
	Window      int64 `yaml:"window"`
	Quote       bool  `yaml:"quote"`
	Metadata    bool  `yaml:"metadata"`
	FillForward bool  `yaml:"fill_forward"`
	SortColumns bool  `yaml:"sort_columns"`
}

// Server configures the HTTP API. An empty APIKey leaves the API open.
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Recorder: Recorder{
			FileNameFormat: recorder.DefaultFileNameFormat,
			SaveInterval:   recorder.DefaultSaveInterval,
		},
		Export: Export{
			FillForward: true,
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the values a zero or hand edited file could get wrong
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Recorder.SaveInterval < 0 {
		errs = append(errs, fmt.Errorf("recorder.save_interval must not be negative, got %s", c.Recorder.SaveInterval))
	}
	if c.Export.Window < 0 {
		errs = append(errs, fmt.Errorf("export.window must not be negative, got %d", c.Export.Window))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RecorderConfig returns the recorder settings with the directory resolved
func (c *Config) RecorderConfig() recorder.Config {
	dir := c.Recorder.Dir
	if dir == "" {
		dir = filepath.Join(c.DataDir, "recordings")
	}
	return recorder.Config{
		Dir:            dir,
		FileNameFormat: c.Recorder.FileNameFormat,
		SaveInterval:   c.Recorder.SaveInterval,
	}
}

// ArchiveDir is where the recording archive lives
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "archive")
}

// Settings converts the export section to exporter settings
func (e Export) Settings(logger *slog.Logger) export.Settings {
	return export.Settings{
		Window:          e.Window,
		ConvertMetadata: e.Metadata,
		NoFillForward:   !e.FillForward,
		Quote:           e.Quote,
		SortColumns:     e.SortColumns,
		Logger:          logger,
	}
}

// Addr returns the listen address
func (s Server) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600, the file may hold an API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration to configPath. With
// withAPIKey set the server section gets a generated key.
func BootstrapConfig(configPath string, dataDir string, withAPIKey bool) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	if withAPIKey {
		key, err := GenerateSecureKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate api key: %w", err)
		}
		config.Server.APIKey = key
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./framerec.yaml"
	}
	return filepath.Join(homeDir, ".config", "framerec", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// NewLogger builds a slog logger writing to w at the configured level
func NewLogger(logging Logging, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(logging.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(logging.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", logging.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
