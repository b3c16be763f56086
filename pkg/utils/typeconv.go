package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// ConvertValue converts a decoded JSON value to the Go type declared by cfg.
// nil stays nil for every type.
func ConvertValue(val any, cfg models.FieldConfig) (any, error) {
	if val == nil {
		return nil, nil
	}
	switch cfg.Type {
	case models.TypeString:
		return ConvertToString(val), nil
	case models.TypeInt:
		return ConvertToInt(val)
	case models.TypeFloat:
		return ConvertToFloat(val)
	case models.TypeBool:
		return ConvertToBool(val)
	case models.TypeDateTime:
		return ConvertDateTime(val, cfg.Format)
	case models.TypeUUID:
		return ConvertToUUID(val)
	case models.TypeRaw, "":
		return val, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", cfg.Type)
	}
}

// ConvertToString formats scalars without exponent noise.
func ConvertToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ConvertDateTime parses val using format (a Go layout) first, then the
// common ISO forms.
func ConvertDateTime(val any, format string) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case string:
		formats := []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		if format != "" && format != "ISO8601" {
			formats = append([]string{format}, formats...)
		}
		for _, f := range formats {
			if t, err := time.Parse(f, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse datetime: %s", v)
	case []byte:
		return ConvertDateTime(string(v), format)
	case json.Number, float64, float32, int64, int32, int16, int:
		secs, err := ConvertToInt(v)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(secs, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", val)
	}
}

// ConvertToInt converts integral values; fractional floats are rejected.
func ConvertToInt(val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return ConvertToInt(float64(v))
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("cannot convert %v to int", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// ConvertToFloat converts numeric values and numeric strings.
func ConvertToFloat(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
}

// ConvertToBool accepts booleans, 0/1 and strconv.ParseBool spellings.
func ConvertToBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case float64, float32, int, int16, int32, int64, json.Number:
		n, err := ConvertToInt(v)
		if err != nil {
			return false, err
		}
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("cannot convert %d to bool", n)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", val)
	}
}

// ConvertToUUID parses canonical and braced UUID strings and accepts raw
// 16-byte values.
func ConvertToUUID(val any) (uuid.UUID, error) {
	switch v := val.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case [16]byte:
		return uuid.UUID(v), nil
	default:
		return uuid.Nil, fmt.Errorf("cannot convert %T to uuid", val)
	}
}
