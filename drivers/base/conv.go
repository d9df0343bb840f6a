package base

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zoosky/prisma-engine/connector"
	"github.com/zoosky/prisma-engine/datamodel"
)

// DecodeValue converts a raw driver value into the Go representation for a
// type identifier. Drivers disagree on how they hand back scalars (MySQL
// returns []byte for nearly everything), so decoding is by identifier, not
// by the value's dynamic type alone.
func DecodeValue(v any, ident datamodel.TypeIdentifier) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch ident {
	case datamodel.IdentInt:
		return toInt64(v)
	case datamodel.IdentFloat:
		return toFloat64(v)
	case datamodel.IdentBoolean:
		return toBool(v)
	case datamodel.IdentString:
		return toString(v)
	case datamodel.IdentDateTime:
		return toTime(v)
	case datamodel.IdentGraphQLID:
		return ToRecordID(v)
	default:
		return nil, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: ident.String()}
	}
}

// ToRecordID coerces a raw value into a record id: an int64 or a string.
func ToRecordID(v any) (connector.RecordID, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case string:
		return val, nil
	case []byte:
		s := string(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		return s, nil
	default:
		return nil, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "record id"}
	}
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "Int"}
	}
}

func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case []byte:
		return strconv.ParseFloat(string(val), 64)
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "Float"}
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case []byte:
		return toBoolString(string(val))
	case string:
		return toBoolString(val)
	default:
		return false, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "Boolean"}
	}
}

func toBoolString(s string) (bool, error) {
	switch s {
	case "true", "TRUE", "1":
		return true, nil
	case "false", "FALSE", "0":
		return false, nil
	default:
		return false, &connector.ConversionError{From: "string", To: "Boolean"}
	}
}

func toString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	default:
		return "", &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "String"}
	}
}

// MySQL loses sub-second precision on timestamps read back; callers
// comparing round-tripped values account for that at a higher layer.
func toTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case []byte:
		return parseTimeString(string(val))
	case string:
		return parseTimeString(val)
	default:
		return time.Time{}, &connector.ConversionError{From: fmt.Sprintf("%T", v), To: "DateTime"}
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &connector.ConversionError{From: "string", To: "DateTime"}
}
