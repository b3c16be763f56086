package etl

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/fastinsert/pkg/models"
)

func TestTransformKeepsDeclaredFields(t *testing.T) {
	tr := NewTransformer(orderSchema())

	row, err := tr.Transform(map[string]any{
		"id":       json.Number("7"),
		"customer": "Ann",
		"total":    json.Number("19.99"),
		"extra":    "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Row{"id": int64(7), "customer": "Ann", "total": 19.99, "paid": nil}, row)
}

func TestTransformReportsField(t *testing.T) {
	tr := NewTransformer(orderSchema())

	_, err := tr.Transform(map[string]any{"id": "seven"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field id")
}
