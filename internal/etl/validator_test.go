package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/models"
)

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, NewValidator(orderSchema()).ValidateSchema())
	assert.Error(t, NewValidator(nil).ValidateSchema())

	cases := map[string]func(*models.MappingSchema){
		"no entity or table": func(m *models.MappingSchema) { m.Entity, m.Table = "", "" },
		"no fields":          func(m *models.MappingSchema) { m.Fields = nil },
		"unnamed field":      func(m *models.MappingSchema) { m.Fields[1].Name = " " },
		"duplicate field":    func(m *models.MappingSchema) { m.Fields[1].Name = "id" },
		"unknown type":       func(m *models.MappingSchema) { m.Fields[2].Type = "decimal(10,2)" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := orderSchema()
			mutate(m)
			assert.ErrorIs(t, NewValidator(m).ValidateSchema(), bulk.ErrInvalidConfiguration)
		})
	}
}

func TestValidateSchemaJoinsProblems(t *testing.T) {
	m := orderSchema()
	m.Fields[0].Type = "money"
	m.Fields[3].Name = "customer"

	err := NewValidator(m).ValidateSchema()
	assert.ErrorContains(t, err, `field "id" has unknown type "money"`)
	assert.ErrorContains(t, err, `field "customer" declared twice`)
}

func TestValidateSchemaAcceptsTableWithoutEntity(t *testing.T) {
	m := orderSchema()
	m.Entity = ""
	assert.NoError(t, NewValidator(m).ValidateSchema())
}
