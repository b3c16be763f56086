package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsWrites(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	done := c.StartWrite("orders")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight.WithLabelValues("orders")))
	done(120, 250*time.Millisecond, nil)

	c.StartWrite("orders")(3, time.Second, errors.New("boom"))

	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight.WithLabelValues("orders")))
	assert.Equal(t, 123.0, testutil.ToFloat64(c.rowsWritten.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.writes.WithLabelValues("orders", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.writes.WithLabelValues("orders", "failure")))

	count, err := testutil.GatherAndCount(reg, "fastinsert_write_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP fastinsert_rows_written_total Rows reported as written by the bulk transport.
# TYPE fastinsert_rows_written_total counter
fastinsert_rows_written_total{table="orders"} 123
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fastinsert_rows_written_total"))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.StartWrite("orders")(1, time.Millisecond, nil)
	})
}

func TestCollectorsAreRegisteredPerRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) }, "duplicate registration on one registry")
}
