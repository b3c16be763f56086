package etl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/models"
)

type Validator struct {
	Config *models.MappingSchema
}

func NewValidator(config *models.MappingSchema) *Validator {
	return &Validator{Config: config}
}

var knownTypes = map[string]bool{
	models.TypeString:   true,
	models.TypeInt:      true,
	models.TypeFloat:    true,
	models.TypeBool:     true,
	models.TypeDateTime: true,
	models.TypeUUID:     true,
	models.TypeRaw:      true,
	"":                  true,
}

// ValidateSchema checks what the bulk compiler cannot see: field names and
// types as written in the mapping file. Table, column and batch size rules
// are enforced when the shape is compiled. Every problem found is reported,
// wrapped in bulk.ErrInvalidConfiguration.
func (v *Validator) ValidateSchema() error {
	if v.Config == nil {
		return fmt.Errorf("%w: mapping is empty", bulk.ErrInvalidConfiguration)
	}
	var errs []error
	if strings.TrimSpace(v.Config.Entity) == "" && strings.TrimSpace(v.Config.Table) == "" {
		errs = append(errs, errors.New("mapping needs an entity or a table"))
	}
	if len(v.Config.Fields) == 0 {
		errs = append(errs, errors.New("mapping declares no fields"))
	}
	seen := make(map[string]bool, len(v.Config.Fields))
	for i, f := range v.Config.Fields {
		switch {
		case strings.TrimSpace(f.Name) == "":
			errs = append(errs, fmt.Errorf("field %d has no name", i))
		case seen[f.Name]:
			errs = append(errs, fmt.Errorf("field %q declared twice", f.Name))
		}
		seen[f.Name] = true
		if !knownTypes[f.Type] {
			errs = append(errs, fmt.Errorf("field %q has unknown type %q", f.Name, f.Type))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", bulk.ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}
