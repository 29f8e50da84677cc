// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ssargent/framerec/pkg/adapter" //nolint:depguard
	"github.com/ssargent/framerec/pkg/api"
	"github.com/ssargent/framerec/pkg/archive"
	"github.com/ssargent/framerec/pkg/config"
	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recorder"
	"github.com/ssargent/framerec/pkg/types"
)

// Container holds all the dependencies for the application
type Container struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	types      *types.Registry
	adapters   *adapter.Registry
	frcMetrics *frc.Metrics

	serverFactory api.ServerFactory
}

// NewContainer creates a container for cfg. Each container owns its type
// and adapter registries and its own Prometheus registry.
func NewContainer(cfg *config.Config, logger *slog.Logger) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tr := types.NewDefaultRegistry()
	return &Container{
		config:        cfg,
		logger:        logger,
		registry:      registry,
		types:         tr,
		adapters:      adapter.NewDefaultRegistry(tr),
		frcMetrics:    frc.NewMetrics(registry),
		serverFactory: api.NewServerFactory(),
	}
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Registry returns the Prometheus registry every component reports to
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Types returns the type registry
func (c *Container) Types() *types.Registry {
	return c.types
}

// Adapters returns the adapter registry
func (c *Container) Adapters() *adapter.Registry {
	return c.adapters
}

// Options returns the codec options wired to the container's registries
func (c *Container) Options() frc.Options {
	return frc.Options{
		Types:    c.types,
		Adapters: c.adapters,
		Metrics:  c.frcMetrics,
	}
}

// OpenArchive opens the archive under the configured data directory. The
// caller closes it.
func (c *Container) OpenArchive() (*archive.Archive, error) {
	return archive.Open(c.config.ArchiveDir(), c.Options())
}

// NewRecorder creates a stopped recorder from the recorder section
func (c *Container) NewRecorder() *recorder.Recorder {
	return recorder.New(c.config.RecorderConfig(), c.Options(), recorder.RealClock{}, c.logger)
}

// ServerConfig returns the API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Addr:       c.config.Server.Addr(),
		APIKey:     c.config.Server.APIKey,
		Export:     c.config.Export.Settings(c.logger),
		Registerer: c.registry,
		Gatherer:   c.registry,
		Logger:     c.logger,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
