// Package api provides the public API for the legisflow library.
// This file provides configuration-related exports.
package api

import (
	"context"

	domainconfig "github.com/legisflow/legisflow/domain/config"
	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
)

// Re-export domain configuration types.
type (
	// Config represents the complete engine configuration.
	Config = domainconfig.Config
	// EngineSettings contains transition engine settings.
	EngineSettings = domainconfig.EngineSettings
	// StorageConfig selects and configures the persistence backend.
	StorageConfig = domainconfig.StorageConfig
	// LockConfig configures cross-process serialization of transitions.
	LockConfig = domainconfig.LockConfig
	// NotificationConfigSpec contains notification settings.
	NotificationConfigSpec = domainconfig.NotificationConfig
	// EndpointConfigSpec configures a webhook endpoint.
	EndpointConfigSpec = domainconfig.EndpointConfig
	// TracingConfig configures OpenTelemetry span export.
	TracingConfig = domainconfig.TracingConfig
	// ArchiveConfig configures where exported snapshots are kept.
	ArchiveConfig = domainconfig.ArchiveConfig
	// RuleConfig declares a routing rule with its steps.
	RuleConfig = domainconfig.RuleConfig
	// ConfigDuration is a time.Duration that supports JSON/YAML string representation.
	ConfigDuration = domainconfig.Duration

	// ValidationError represents a configuration validation error.
	ValidationError = domainconfig.ValidationError
	// ValidationErrors is a collection of validation errors.
	ValidationErrors = domainconfig.ValidationErrors
)

// Re-export infrastructure configuration types.
type (
	// ConfigLoader loads configuration from files.
	ConfigLoader = infraconfig.Loader
	// ConfigLoaderOption configures a ConfigLoader.
	ConfigLoaderOption = infraconfig.LoaderOption
	// ConfigFormat is a configuration file format.
	ConfigFormat = infraconfig.Format
	// ConfigBuilder builds a runtime from configuration.
	ConfigBuilder = infraconfig.Builder
	// ConfigBuilderOption configures a ConfigBuilder.
	ConfigBuilderOption = infraconfig.BuilderOption
	// Runtime holds the components built from a configuration.
	Runtime = infraconfig.Runtime
	// ConfigWatcher reloads a configuration file when it changes.
	ConfigWatcher = infraconfig.Watcher
)

// Configuration formats.
const (
	ConfigFormatYAML = infraconfig.FormatYAML
	ConfigFormatJSON = infraconfig.FormatJSON
)

// Configuration errors.
var (
	ErrConfigNotFound    = domainconfig.ErrConfigNotFound
	ErrInvalidFormat     = domainconfig.ErrInvalidFormat
	ErrValidationFailed  = domainconfig.ErrValidationFailed
	ErrBuildFailed       = domainconfig.ErrBuildFailed
	ErrUnsupportedFormat = domainconfig.ErrUnsupportedFormat
)

// NewConfigLoader creates a loader with environment expansion and validation.
func NewConfigLoader() *ConfigLoader {
	return infraconfig.NewLoader()
}

// NewConfigLoaderWithOptions creates a loader with custom options.
func NewConfigLoaderWithOptions(opts ...ConfigLoaderOption) *ConfigLoader {
	return infraconfig.NewLoaderWithOptions(opts...)
}

// Loader options.
var (
	ConfigWithEnvExpansion = infraconfig.WithEnvExpansion
	ConfigWithStrictEnv    = infraconfig.WithStrictEnv
	ConfigWithValidation   = infraconfig.WithValidation
)

// NewConfigBuilder creates a runtime builder for a configuration.
func NewConfigBuilder(config *Config, opts ...ConfigBuilderOption) *ConfigBuilder {
	return infraconfig.NewBuilder(config, opts...)
}

// Builder options.
var (
	BuilderWithMetrics          = infraconfig.WithMetrics
	BuilderWithClock            = infraconfig.WithClock
	BuilderWithDispatchNotifier = infraconfig.WithDispatchNotifier
)

// Open loads the configuration file at path and builds its runtime. The
// caller closes the returned runtime.
func Open(ctx context.Context, path string, opts ...ConfigBuilderOption) (*Runtime, error) {
	config, err := infraconfig.NewLoader().LoadFile(path)
	if err != nil {
		return nil, err
	}
	return infraconfig.NewBuilder(config, opts...).Build(ctx)
}

// ConfigSchemaJSON returns the configuration JSON Schema.
func ConfigSchemaJSON() (string, error) {
	return infraconfig.SchemaJSON()
}
