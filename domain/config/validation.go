package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/legisflow/legisflow/domain/routing"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates engine configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateEngine(config)
	v.validateStorage(config)
	v.validateLock(config)
	v.validateLogging(config)
	v.validateTracing(config)
	v.validateNotification(config)
	v.validateArchive(config)
	v.validateSettings(config)
	units, stageTypes := v.validateCatalog(config)
	v.validateRules(config, units, stageTypes)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *Config) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateEngine(config *Config) {
	if config.Engine.Timezone != "" {
		if _, err := time.LoadLocation(config.Engine.Timezone); err != nil {
			v.addError("engine.timezone", fmt.Sprintf("unknown timezone: %s", config.Engine.Timezone))
		}
	}
}

func (v *Validator) validateStorage(config *Config) {
	switch config.Storage.Backend {
	case "", BackendMemory:
	case BackendSQLite:
		if config.Storage.SQLite.Path == "" {
			v.addError("storage.sqlite.path", "path is required for sqlite backend")
		}
	case BackendPostgres:
		if config.Storage.Postgres.DSN == "" {
			v.addError("storage.postgres.dsn", "dsn is required for postgres backend")
		}
		if config.Storage.Postgres.MaxConns < 0 {
			v.addError("storage.postgres.max_conns", "max_conns must be non-negative")
		}
	case BackendBadger:
		if config.Storage.Badger.Dir == "" && !config.Storage.Badger.InMemory {
			v.addError("storage.badger.dir", "dir is required for badger backend")
		}
	default:
		v.addError("storage.backend", fmt.Sprintf("unknown backend: %s", config.Storage.Backend))
	}

	switch config.Storage.SettingsStore.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if config.Storage.SettingsStore.Redis.Addr == "" {
			v.addError("storage.settings_store.redis.addr", "addr is required for redis settings store")
		}
	default:
		v.addError("storage.settings_store.backend", fmt.Sprintf("unknown backend: %s", config.Storage.SettingsStore.Backend))
	}
}

func (v *Validator) validateArchive(config *Config) {
	a := config.Archive
	switch a.Backend {
	case "":
	case ArchiveFile:
		if a.Dir == "" {
			v.addError("archive.dir", "dir is required for file archive")
		}
	case ArchiveS3, ArchiveGCS:
		if a.Bucket == "" {
			v.addError("archive.bucket", "bucket is required")
		}
	case ArchiveAzure:
		if a.Bucket == "" {
			v.addError("archive.bucket", "container is required")
		}
		if a.Azure.AccountName == "" && a.Azure.ConnectionString == "" {
			v.addError("archive.azure", "account_name or connection_string is required")
		}
	default:
		v.addError("archive.backend", fmt.Sprintf("unknown backend: %s", a.Backend))
	}
}

func (v *Validator) validateLock(config *Config) {
	switch config.Lock.Backend {
	case "", BackendNone, BackendMemory:
	case BackendRedis:
		if config.Lock.Redis.Addr == "" {
			v.addError("lock.redis.addr", "addr is required for redis lock")
		}
	default:
		v.addError("lock.backend", fmt.Sprintf("unknown backend: %s", config.Lock.Backend))
	}
	if config.Lock.TTL < 0 {
		v.addError("lock.ttl", "ttl must be non-negative")
	}
}

func (v *Validator) validateLogging(config *Config) {
	switch strings.ToLower(config.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateTracing(config *Config) {
	t := config.Tracing
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case "", ExporterNoop, ExporterStdout:
	case ExporterOTLP:
		if t.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateNotification(config *Config) {
	if !config.Notification.Enabled {
		return
	}

	channels := make(map[string]bool)
	for i, ep := range config.Notification.Endpoints {
		path := fmt.Sprintf("notification.endpoints[%d]", i)
		if ep.URL == "" {
			v.addError(path+".url", "URL is required")
		}
		if ep.Channel == "" {
			v.addError(path+".channel", "channel is required")
		} else if channels[ep.Channel] {
			v.addError(path+".channel", fmt.Sprintf("duplicate channel: %s", ep.Channel))
		}
		channels[ep.Channel] = true
	}

	if config.Notification.BatchSize < 0 {
		v.addError("notification.batch_size", "batch_size must be non-negative")
	}
	if config.Notification.Retry.MaxAttempts < 0 {
		v.addError("notification.retry.max_attempts", "max_attempts must be non-negative")
	}
	if config.Notification.CircuitBreaker.Threshold < 0 {
		v.addError("notification.circuit_breaker.threshold", "threshold must be non-negative")
	}
}

func (v *Validator) validateSettings(config *Config) {
	if raw, ok := config.Settings[routing.SettingAlertLeadDays]; ok {
		if n, err := strconv.Atoi(raw); err != nil || n < 0 {
			v.addError("settings."+routing.SettingAlertLeadDays, "must be a non-negative integer")
		}
	}
}

func (v *Validator) validateCatalog(config *Config) (units, stageTypes map[string]bool) {
	seen := make(map[string]bool)
	for i := range config.Catalog.ProposalTypes {
		p := &config.Catalog.ProposalTypes[i]
		path := fmt.Sprintf("catalog.proposal_types[%d]", i)
		if err := p.Validate(); err != nil {
			v.addError(path, err.Error())
		}
		if seen[p.ID] {
			v.addError(path+".id", fmt.Sprintf("duplicate id: %s", p.ID))
		}
		seen[p.ID] = true
	}

	units = make(map[string]bool)
	for i := range config.Catalog.Units {
		u := &config.Catalog.Units[i]
		path := fmt.Sprintf("catalog.units[%d]", i)
		if err := u.Validate(); err != nil {
			v.addError(path, err.Error())
		}
		if units[u.ID] {
			v.addError(path+".id", fmt.Sprintf("duplicate id: %s", u.ID))
		}
		units[u.ID] = true
	}

	stageTypes = make(map[string]bool)
	for i := range config.Catalog.StageTypes {
		s := &config.Catalog.StageTypes[i]
		path := fmt.Sprintf("catalog.stage_types[%d]", i)
		if err := s.Validate(); err != nil {
			v.addError(path, err.Error())
		}
		if stageTypes[s.ID] {
			v.addError(path+".id", fmt.Sprintf("duplicate id: %s", s.ID))
		}
		stageTypes[s.ID] = true
		if unit := s.ResponsibleUnit(); unit != "" && !units[unit] {
			v.addError(path+".unit_id", fmt.Sprintf("unknown unit: %s", unit))
		}
	}

	if config.Engine.FallbackUnitID != "" && !units[config.Engine.FallbackUnitID] {
		v.addError("engine.fallback_unit_id", fmt.Sprintf("unknown unit: %s", config.Engine.FallbackUnitID))
	}
	return units, stageTypes
}

func (v *Validator) validateRules(config *Config, units, stageTypes map[string]bool) {
	ruleIDs := make(map[string]bool)
	stepIDs := make(map[string]bool)
	for i, rc := range config.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if rc.ID == "" {
			v.addError(path+".id", "rule id is required")
		} else if ruleIDs[rc.ID] {
			v.addError(path+".id", fmt.Sprintf("duplicate id: %s", rc.ID))
		}
		ruleIDs[rc.ID] = true
		if rc.Name == "" {
			v.addError(path+".name", "rule name is required")
		}
		for key, cond := range rc.Conditions {
			if err := cond.Validate(); err != nil {
				v.addError(fmt.Sprintf("%s.conditions.%s", path, key), fmt.Sprintf("invalid operator: %s", cond.Op))
			}
		}

		for j, s := range rc.RuleSteps() {
			stepPath := fmt.Sprintf("%s.steps[%d]", path, j)
			if s.ID == "" {
				v.addError(stepPath+".id", "step id is required")
			} else if stepIDs[s.ID] {
				v.addError(stepPath+".id", fmt.Sprintf("duplicate id: %s", s.ID))
			}
			stepIDs[s.ID] = true
			if s.Name == "" {
				v.addError(stepPath+".name", "step name is required")
			}
			if s.Order < 1 {
				v.addError(stepPath+".order", "order must be positive")
			}
			if s.DeadlineDays < 0 {
				v.addError(stepPath+".deadline_days", "deadline_days must be non-negative")
			}
			if s.StageTypeID != "" && !stageTypes[s.StageTypeID] {
				v.addError(stepPath+".stage_type_id", fmt.Sprintf("unknown stage type: %s", s.StageTypeID))
			}
			if s.UnitID != "" && !units[s.UnitID] {
				v.addError(stepPath+".unit_id", fmt.Sprintf("unknown unit: %s", s.UnitID))
			}
		}
	}
}
