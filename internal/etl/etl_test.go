package etl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BartekS5/fastinsert/pkg/logger"
	"github.com/BartekS5/fastinsert/pkg/models"
)

func orderSchema() *models.MappingSchema {
	return &models.MappingSchema{
		Entity:    "Order",
		Table:     "dbo.orders",
		BatchSize: 2,
		Fields: []models.FieldConfig{
			{Name: "id", Column: "order_id", Type: models.TypeInt},
			{Name: "customer", Type: models.TypeString},
			{Name: "total", Type: models.TypeFloat},
			{Name: "paid", Type: models.TypeBool},
		},
	}
}

func useTestLogger(t *testing.T) {
	t.Helper()
	logger.Set(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.Set(nil) })
}

func collect(t *testing.T, src Source) []models.Row {
	t.Helper()
	var rows []models.Row
	for row := range src.Records(context.Background()) {
		rows = append(rows, row)
	}
	return rows
}

func requireNoSourceError(t *testing.T, src Source) {
	t.Helper()
	require.NoError(t, src.Err())
}
