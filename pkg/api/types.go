package api

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/framerec/pkg/export"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DefaultMaxUploadSize bounds POSTed recordings
const DefaultMaxUploadSize = 64 << 20

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr string
	// APIKey protects /api/v1 when set
	APIKey        string
	MaxUploadSize int64
	// Export holds the CSV settings that query parameters override
	Export export.Settings

	// Registerer and Gatherer back the handler metrics and /metrics. Nil
	// uses the Prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
