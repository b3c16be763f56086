package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMapping(t *testing.T) {
	m, err := LoadMapping([]byte(`{
		"entity": "Order",
		"table": "dbo.orders",
		"batchSize": 500,
		"fields": [
			{"name": "id", "column": "order_id", "type": "uuid"},
			{"name": "total", "type": "float"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Order", m.Entity)
	assert.Equal(t, "dbo.orders", m.Table)
	assert.Equal(t, 500, m.BatchSize)
	assert.Equal(t, []FieldConfig{
		{Name: "id", Column: "order_id", Type: TypeUUID},
		{Name: "total", Type: TypeFloat},
	}, m.Fields)

	_, err = LoadMapping([]byte(`{"entity": `))
	assert.Error(t, err)
}

func TestLoadMappingYAML(t *testing.T) {
	m, err := LoadMappingYAML([]byte(`
entity: Order
batchSize: 100
fields:
  - name: id
    type: int
  - name: createdAt
    column: created_at
    type: datetime
    format: "2006-01-02"
`))
	require.NoError(t, err)

	assert.Equal(t, "Order", m.Entity)
	assert.Empty(t, m.Table)
	assert.Equal(t, 100, m.BatchSize)
	require.Len(t, m.Fields, 2)
	assert.Equal(t, FieldConfig{Name: "createdAt", Column: "created_at", Type: TypeDateTime, Format: "2006-01-02"}, m.Fields[1])

	_, err = LoadMappingYAML([]byte("fields: [unclosed"))
	assert.Error(t, err)
}
