package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft/2020-12", schema.Schema)
	}
	if schema.Type != "object" {
		t.Errorf("Type = %s, want object", schema.Type)
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}
	if !requiredSet["name"] || !requiredSet["version"] {
		t.Errorf("Required = %v, want name and version", schema.Required)
	}

	expectedProps := []string{"name", "version", "engine", "storage", "lock", "logging", "notification", "archive", "settings", "catalog", "rules"}
	for _, prop := range expectedProps {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_Enums(t *testing.T) {
	schema := GenerateSchema()

	tests := []struct {
		name string
		enum []string
		want int
	}{
		{"storage backend", schema.Properties["storage"].Properties["backend"].Enum, 4},
		{"lock backend", schema.Properties["lock"].Properties["backend"].Enum, 3},
		{"archive backend", schema.Properties["archive"].Properties["backend"].Enum, 4},
		{"unit category", schema.Properties["catalog"].Properties["units"].Items.Properties["category"].Enum, 5},
		{"condition op", schema.Properties["rules"].Items.Properties["conditions"].AdditionalProperties.Properties["op"].Enum, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.enum) != tt.want {
				t.Errorf("enum = %v, want %d values", tt.enum, tt.want)
			}
		})
	}
}

func TestGenerateSchema_RefsResolve(t *testing.T) {
	schema := GenerateSchema()

	var walk func(path string, s *JSONSchema)
	walk = func(path string, s *JSONSchema) {
		if s == nil {
			return
		}
		if s.Ref != "" {
			name := s.Ref[len("#/$defs/"):]
			if _, ok := schema.Definitions[name]; !ok {
				t.Errorf("%s: unresolved $ref %s", path, s.Ref)
			}
		}
		for k, p := range s.Properties {
			walk(path+"."+k, p)
		}
		walk(path+"[]", s.Items)
		walk(path+"{}", s.AdditionalProperties)
	}
	walk("$", schema)
}

func TestSchemaJSON(t *testing.T) {
	out, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("SchemaJSON() produced invalid JSON: %v", err)
	}
	if parsed["title"] != "Legisflow Configuration" {
		t.Errorf("title = %v", parsed["title"])
	}
	if _, ok := parsed["$defs"]; !ok {
		t.Error("missing $defs")
	}
}
