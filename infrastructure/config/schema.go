package config

import (
	"encoding/json"

	"github.com/legisflow/legisflow/domain/catalog"
	domainconfig "github.com/legisflow/legisflow/domain/config"
	"github.com/legisflow/legisflow/domain/routing"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
}

// GenerateSchema generates a JSON Schema for the engine configuration file.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/legisflow/legisflow/legisflow-config.schema.json",
		Title:       "Legisflow Configuration",
		Description: "Configuration schema for the legisflow stage engine",
		Type:        "object",
		Required:    []string{"name", "version"},
		Definitions: map[string]*JSONSchema{
			"duration": {
				Type:        "string",
				Format:      "duration",
				Description: "Go duration string such as 30s or 5m",
			},
			"redis": generateRedisSchema(),
		},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1",
			},
			"engine":       generateEngineSchema(),
			"storage":      generateStorageSchema(),
			"lock":         generateLockSchema(),
			"logging":      generateLoggingSchema(),
			"tracing":      generateTracingSchema(),
			"notification": generateNotificationSchema(),
			"archive":      generateArchiveSchema(),
			"settings": {
				Type:        "object",
				Description: "Flat routing settings such as alert_lead_days and default_recipient",
				AdditionalProperties: &JSONSchema{
					Type: "string",
				},
			},
			"catalog": generateCatalogSchema(),
			"rules": {
				Type:        "array",
				Description: "Routing rules seeded at startup",
				Items:       generateRuleSchema(),
			},
		},
	}
}

func ref(name string) *JSONSchema {
	return &JSONSchema{Ref: "#/$defs/" + name}
}

func generateEngineSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Transition engine settings",
		Properties: map[string]*JSONSchema{
			"lenient": {
				Type:        "boolean",
				Description: "Skip state machine enforcement of transitions",
				Default:     false,
			},
			"fallback_unit_id": {
				Type:        "string",
				Description: "Unit used when a destination step resolves none",
			},
			"timezone": {
				Type:        "string",
				Description: "IANA location deadlines are computed in",
				Default:     "UTC",
			},
		},
	}
}

func generateStorageSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Persistence backend for stages, history and notifications",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type: "string",
				Enum: []string{
					domainconfig.BackendMemory,
					domainconfig.BackendSQLite,
					domainconfig.BackendPostgres,
					domainconfig.BackendBadger,
				},
				Default: domainconfig.BackendMemory,
			},
			"sqlite": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"path":         {Type: "string", Description: "Database file path"},
					"busy_timeout": ref("duration"),
				},
			},
			"postgres": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"dsn":       {Type: "string", Description: "Connection string"},
					"schema":    {Type: "string", Default: "public"},
					"max_conns": {Type: "integer", Minimum: floatPtr(1)},
				},
			},
			"badger": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"dir":         {Type: "string", Description: "Data directory"},
					"in_memory":   {Type: "boolean", Default: false},
					"sync_writes": {Type: "boolean", Default: false},
				},
			},
			"settings_store": {
				Type:        "object",
				Description: "Where routing settings live",
				Properties: map[string]*JSONSchema{
					"backend": {
						Type:    "string",
						Enum:    []string{domainconfig.BackendMemory, domainconfig.BackendRedis},
						Default: domainconfig.BackendMemory,
					},
					"redis": ref("redis"),
				},
			},
		},
	}
}

func generateRedisSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"addr":       {Type: "string", Description: "host:port"},
			"password":   {Type: "string"},
			"db":         {Type: "integer", Minimum: floatPtr(0)},
			"key_prefix": {Type: "string"},
		},
	}
}

func generateLockSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Cross-process serialization of transitions per proposal",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:    "string",
				Enum:    []string{domainconfig.BackendNone, domainconfig.BackendMemory, domainconfig.BackendRedis},
				Default: domainconfig.BackendNone,
			},
			"ttl":   ref("duration"),
			"redis": ref("redis"),
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"debug", "info", "warn", "error"},
				Default: "info",
			},
			"format": {
				Type:    "string",
				Enum:    []string{"json", "console"},
				Default: "json",
			},
		},
	}
}

func generateTracingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "OpenTelemetry span export for stage transitions",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:    "boolean",
				Default: false,
			},
			"exporter": {
				Type:    "string",
				Enum:    []string{domainconfig.ExporterOTLP, domainconfig.ExporterStdout, domainconfig.ExporterNoop},
				Default: domainconfig.ExporterNoop,
			},
			"endpoint": {
				Type:        "string",
				Description: "OTLP gRPC collector address",
			},
			"insecure":    {Type: "boolean"},
			"sample_rate": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
			"environment": {Type: "string"},
		},
	}
}

func generateNotificationSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Webhook dispatch of pending notifications",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:    "boolean",
				Default: false,
			},
			"endpoints": {
				Type:        "array",
				Description: "Webhook endpoints, one per channel; channel \"*\" is the fallback",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"channel", "url"},
					Properties: map[string]*JSONSchema{
						"name":    {Type: "string"},
						"channel": {Type: "string"},
						"url":     {Type: "string", Format: "uri"},
						"enabled": {Type: "boolean"},
						"secret":  {Type: "string", Description: "HMAC signing secret"},
						"headers": {
							Type:                 "object",
							AdditionalProperties: &JSONSchema{Type: "string"},
						},
					},
				},
			},
			"timeout":    ref("duration"),
			"batch_size": {Type: "integer", Minimum: floatPtr(1)},
			"retry": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: 3},
					"initial_delay": ref("duration"),
				},
			},
			"circuit_breaker": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"threshold": {Type: "integer", Minimum: floatPtr(1), Default: 5},
					"timeout":   ref("duration"),
				},
			},
		},
	}
}

func generateArchiveSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Where exported snapshots are kept",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type: "string",
				Enum: []string{
					domainconfig.ArchiveFile,
					domainconfig.ArchiveS3,
					domainconfig.ArchiveGCS,
					domainconfig.ArchiveAzure,
				},
			},
			"prefix": {Type: "string"},
			"dir":    {Type: "string"},
			"bucket": {Type: "string", Description: "Bucket or container name"},
			"s3": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"region":            {Type: "string"},
					"endpoint":          {Type: "string", Format: "uri"},
					"access_key_id":     {Type: "string"},
					"secret_access_key": {Type: "string"},
					"session_token":     {Type: "string"},
				},
			},
			"gcs": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"credentials_file": {Type: "string"},
				},
			},
			"azure": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"account_name":      {Type: "string"},
					"account_key":       {Type: "string"},
					"connection_string": {Type: "string"},
				},
			},
		},
	}
}

func generateCatalogSchema() *JSONSchema {
	categories := []string{
		string(catalog.UnitCategoryCommittee),
		string(catalog.UnitCategoryPresidingBoard),
		string(catalog.UnitCategoryPlenary),
		string(catalog.UnitCategoryExecutive),
		string(catalog.UnitCategoryOther),
	}

	return &JSONSchema{
		Type:        "object",
		Description: "Reference registries seeded at startup",
		Properties: map[string]*JSONSchema{
			"proposal_types": {
				Type: "array",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"id", "name"},
					Properties: map[string]*JSONSchema{
						"id":                    {Type: "string"},
						"code":                  {Type: "string"},
						"name":                  {Type: "string"},
						"short_code":            {Type: "string"},
						"active":                {Type: "boolean"},
						"requires_vote":         {Type: "boolean"},
						"requires_ratification": {Type: "boolean"},
						"order":                 {Type: "integer"},
					},
				},
			},
			"units": {
				Type: "array",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"id", "name", "category"},
					Properties: map[string]*JSONSchema{
						"id":         {Type: "string"},
						"name":       {Type: "string"},
						"short_code": {Type: "string"},
						"category":   {Type: "string", Enum: categories},
						"active":     {Type: "boolean"},
						"order":      {Type: "integer"},
					},
				},
			},
			"stage_types": {
				Type: "array",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"id", "name"},
					Properties: map[string]*JSONSchema{
						"id":                  {Type: "string"},
						"name":                {Type: "string"},
						"regimental_deadline": {Type: "integer", Minimum: floatPtr(0), Description: "Business days"},
						"legal_deadline":      {Type: "integer", Minimum: floatPtr(0)},
						"unit_id":             {Type: "string"},
						"unit":                {Type: "string"},
						"requires_opinion":    {Type: "boolean"},
						"allows_return":       {Type: "boolean"},
						"outcome_label":       {Type: "string"},
						"order":               {Type: "integer"},
					},
				},
			},
		},
	}
}

func generateRuleSchema() *JSONSchema {
	payload := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"channel":   {Type: "string"},
			"recipient": {Type: "string"},
			"extra": {
				Type:                 "object",
				AdditionalProperties: &JSONSchema{Type: "string"},
			},
		},
	}

	return &JSONSchema{
		Type:     "object",
		Required: []string{"id", "name"},
		Properties: map[string]*JSONSchema{
			"id":          {Type: "string"},
			"name":        {Type: "string"},
			"description": {Type: "string"},
			"inactive":    {Type: "boolean", Default: false},
			"order":       {Type: "integer"},
			"conditions": {
				Type:        "object",
				Description: "Predicates keyed by context key; absent conditions match everything",
				AdditionalProperties: &JSONSchema{
					Type:     "object",
					Required: []string{"op"},
					Properties: map[string]*JSONSchema{
						"op": {
							Type: "string",
							Enum: []string{
								string(routing.OpAny),
								string(routing.OpEquals),
								string(routing.OpNotEquals),
								string(routing.OpOneOf),
							},
						},
						"value":  {Type: "string"},
						"values": {Type: "array", Items: &JSONSchema{Type: "string"}},
					},
				},
			},
			"steps": {
				Type:        "array",
				Description: "Ordered steps; order defaults to declaration position",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"id", "name"},
					Properties: map[string]*JSONSchema{
						"id":            {Type: "string"},
						"name":          {Type: "string"},
						"description":   {Type: "string"},
						"order":         {Type: "integer", Minimum: floatPtr(1)},
						"stage_type_id": {Type: "string"},
						"unit_id":       {Type: "string"},
						"deadline_days": {Type: "integer", Minimum: floatPtr(0)},
						"notifications": {Type: "array", Items: payload},
						"alerts":        {Type: "array", Items: payload},
					},
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
