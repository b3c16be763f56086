package etl

import (
	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/models"
)

// ShapeFromSchema registers the fields of a mapping file, in file order, as
// a record shape over models.Row.
func ShapeFromSchema(schema *models.MappingSchema) bulk.Shape[models.Row] {
	shape := bulk.Shape[models.Row]{Name: schema.Entity}
	for _, f := range schema.Fields {
		name := f.Name
		shape.Fields = append(shape.Fields, bulk.ShapeField[models.Row]{
			Name:   name,
			Column: f.Column,
			Value:  func(r models.Row) any { return r[name] },
		})
	}
	return shape
}

// OverridesFromSchema returns the table and batch size declared by the
// mapping file. batchSize, when positive, replaces the file's value.
func OverridesFromSchema(schema *models.MappingSchema, batchSize int) bulk.Overrides {
	ov := bulk.Overrides{Table: schema.Table, BatchSize: schema.BatchSize}
	if batchSize > 0 {
		ov.BatchSize = batchSize
	}
	return ov
}

// CompileSchema validates schema and compiles it into a write configuration.
func CompileSchema(schema *models.MappingSchema, batchSize int) (*bulk.WriteConfig[models.Row], error) {
	if err := NewValidator(schema).ValidateSchema(); err != nil {
		return nil, err
	}
	return bulk.Compile(ShapeFromSchema(schema), OverridesFromSchema(schema, batchSize))
}
