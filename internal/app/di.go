// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/keyring/internal/config"
	"github.com/allisson/keyring/internal/descriptor/service"
	"github.com/allisson/keyring/internal/keyring"
	"github.com/allisson/keyring/internal/metrics"
	"github.com/allisson/keyring/internal/secret"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	protector       *secret.KeeperProtector

	// Domain components
	registry *service.Registry
	keyRing  keyring.KeyRing

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	metricsProviderInit sync.Once
	protectorInit       sync.Once
	registryInit        sync.Once
	keyRingInit         sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the metrics provider instance.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// Protector returns the key protector backed by the configured KMS key URI.
func (c *Container) Protector(ctx context.Context) (secret.Protector, error) {
	var err error
	c.protectorInit.Do(func() {
		c.protector, err = secret.OpenKeeperProtector(ctx, c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["protector"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["protector"]; exists {
		return nil, storedErr
	}
	return c.protector, nil
}

// Registry returns the descriptor deserializer registry.
func (c *Container) Registry(ctx context.Context) (*service.Registry, error) {
	var err error
	c.registryInit.Do(func() {
		c.registry, err = c.initRegistry(ctx)
		if err != nil {
			c.initErrors["registry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registry"]; exists {
		return nil, storedErr
	}
	return c.registry, nil
}

// KeyRing returns the key ring instance, decorated with metrics when enabled.
func (c *Container) KeyRing(ctx context.Context) (keyring.KeyRing, error) {
	var err error
	c.keyRingInit.Do(func() {
		c.keyRing, err = c.initKeyRing(ctx)
		if err != nil {
			c.initErrors["keyRing"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRing"]; exists {
		return nil, storedErr
	}
	return c.keyRing, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Close the KMS keeper if initialized
	if c.protector != nil {
		if err := c.protector.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("protector close: %w", err))
		}
	}

	// Shutdown the metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initRegistry creates the deserializer registry on the configured protector.
func (c *Container) initRegistry(ctx context.Context) (*service.Registry, error) {
	protector, err := c.Protector(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get protector for registry: %w", err)
	}
	return service.NewRegistry(protector), nil
}

// initKeyRing creates the key ring with all its dependencies.
func (c *Container) initKeyRing(ctx context.Context) (keyring.KeyRing, error) {
	registry, err := c.Registry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry for key ring: %w", err)
	}

	ring := keyring.New(registry, c.Logger())

	if !c.config.MetricsEnabled {
		return ring, nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for key ring: %w", err)
	}
	operationMetrics, err := metrics.NewOperationMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation metrics for key ring: %w", err)
	}

	return keyring.NewKeyRingWithMetrics(ring, operationMetrics), nil
}
