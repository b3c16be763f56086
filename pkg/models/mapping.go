package models

import (
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// MappingSchema represents the root of a mapping file: one record shape
// declared field by field, with its table and batch size overrides.
type MappingSchema struct {
	Entity    string        `json:"entity" yaml:"entity"`
	Table     string        `json:"table,omitempty" yaml:"table,omitempty"`
	BatchSize int           `json:"batchSize" yaml:"batchSize"`
	Fields    []FieldConfig `json:"fields" yaml:"fields"`
}

// FieldConfig declares one field. Order in Fields is the column ordinal.
type FieldConfig struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Type   string `json:"type" yaml:"type"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Field types understood by the transformer.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBool     = "bool"
	TypeDateTime = "datetime"
	TypeUUID     = "uuid"
	TypeRaw      = "raw"
)

// Row is a dynamically shaped record keyed by field name.
type Row map[string]any

// LoadMapping parses a JSON mapping document.
func LoadMapping(data []byte) (*MappingSchema, error) {
	var m MappingSchema
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMappingYAML parses a YAML mapping document.
func LoadMappingYAML(data []byte) (*MappingSchema, error) {
	var m MappingSchema
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &m, nil
}
