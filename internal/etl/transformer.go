package etl

import (
	"fmt"

	"github.com/BartekS5/fastinsert/pkg/models"
	"github.com/BartekS5/fastinsert/pkg/utils"
)

// Transformer converts decoded documents into rows of the declared shape.
type Transformer struct {
	Config *models.MappingSchema
}

func NewTransformer(config *models.MappingSchema) *Transformer {
	return &Transformer{Config: config}
}

// Transform keeps the declared fields of doc, converted to their declared
// types. Missing fields become nil; undeclared keys are dropped.
func (t *Transformer) Transform(doc map[string]any) (models.Row, error) {
	row := make(models.Row, len(t.Config.Fields))
	for _, fieldCfg := range t.Config.Fields {
		converted, err := utils.ConvertValue(doc[fieldCfg.Name], fieldCfg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldCfg.Name, err)
		}
		row[fieldCfg.Name] = converted
	}
	return row, nil
}
