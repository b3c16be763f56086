package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// LoadMapping reads and parses a mapping file. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func LoadMapping(filePath string) (*models.MappingSchema, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	var schema *models.MappingSchema
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		schema, err = models.LoadMappingYAML(data)
	default:
		schema, err = models.LoadMapping(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}
	return schema, nil
}
