package utils

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/fastinsert/pkg/models"
)

func TestConvertValueByType(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	cases := []struct {
		name string
		cfg  models.FieldConfig
		in   any
		want any
	}{
		{"nil stays nil", models.FieldConfig{Type: models.TypeInt}, nil, nil},
		{"string from number", models.FieldConfig{Type: models.TypeString}, json.Number("12345678901234567890"), "12345678901234567890"},
		{"string from float", models.FieldConfig{Type: models.TypeString}, 1e21, "1000000000000000000000"},
		{"int from number", models.FieldConfig{Type: models.TypeInt}, json.Number("42"), int64(42)},
		{"int from string", models.FieldConfig{Type: models.TypeInt}, " 7 ", int64(7)},
		{"int from whole float", models.FieldConfig{Type: models.TypeInt}, 3.0, int64(3)},
		{"float from number", models.FieldConfig{Type: models.TypeFloat}, json.Number("2.5"), 2.5},
		{"bool from string", models.FieldConfig{Type: models.TypeBool}, "true", true},
		{"bool from 0", models.FieldConfig{Type: models.TypeBool}, json.Number("0"), false},
		{"int from int32", models.FieldConfig{Type: models.TypeInt}, int32(-9), int64(-9)},
		{"int from int16", models.FieldConfig{Type: models.TypeInt}, int16(12), int64(12)},
		{"float from int32", models.FieldConfig{Type: models.TypeFloat}, int32(5), 5.0},
		{"float from int16", models.FieldConfig{Type: models.TypeFloat}, int16(3), 3.0},
		{"bool from int32", models.FieldConfig{Type: models.TypeBool}, int32(1), true},
		{"bool from float32", models.FieldConfig{Type: models.TypeBool}, float32(0), false},
		{"datetime from int32", models.FieldConfig{Type: models.TypeDateTime}, int32(1700000000), time.Unix(1700000000, 0).UTC()},
		{"uuid", models.FieldConfig{Type: models.TypeUUID}, id.String(), id},
		{"uuid from raw bytes", models.FieldConfig{Type: models.TypeUUID}, id[:], id},
		{"raw", models.FieldConfig{Type: models.TypeRaw}, []any{1, 2}, []any{1, 2}},
		{"untyped is raw", models.FieldConfig{}, "x", "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConvertValue(tc.in, tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConvertValueErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  models.FieldConfig
		in   any
	}{
		{"unknown type", models.FieldConfig{Type: "money"}, "1"},
		{"fractional int", models.FieldConfig{Type: models.TypeInt}, 1.5},
		{"int from text", models.FieldConfig{Type: models.TypeInt}, "seven"},
		{"bool from 2", models.FieldConfig{Type: models.TypeBool}, json.Number("2")},
		{"bad uuid", models.FieldConfig{Type: models.TypeUUID}, "not-a-uuid"},
		{"bad datetime", models.FieldConfig{Type: models.TypeDateTime}, "yesterday"},
		{"float from bool", models.FieldConfig{Type: models.TypeFloat}, true},
		{"bool from int32 2", models.FieldConfig{Type: models.TypeBool}, int32(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ConvertValue(tc.in, tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConvertDateTime(t *testing.T) {
	want := time.Date(2024, 2, 29, 13, 45, 0, 0, time.UTC)

	for _, in := range []any{
		"2024-02-29T13:45:00Z",
		"2024-02-29T13:45:00",
		"2024-02-29 13:45:00",
		[]byte("2024-02-29T13:45:00Z"),
		json.Number("1709214300"),
		want,
	} {
		got, err := ConvertDateTime(in, "ISO8601")
		require.NoError(t, err, "%v", in)
		assert.True(t, want.Equal(got), "%v parsed as %v", in, got)
	}

	got, err := ConvertDateTime("29/02/2024", "02/01/2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)
}
