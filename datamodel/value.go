package datamodel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScalarType is a base scalar type of the datamodel.
type ScalarType int

const (
	TypeInt ScalarType = iota
	TypeFloat
	TypeString
	TypeBoolean
	TypeDateTime
	TypeDecimal
)

func (t ScalarType) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeString:
		return "String"
	case TypeBoolean:
		return "Boolean"
	case TypeDateTime:
		return "DateTime"
	case TypeDecimal:
		return "Decimal"
	default:
		return fmt.Sprintf("ScalarType(%d)", int(t))
	}
}

// ScalarTypeFromName maps a surface-syntax type name to a scalar type.
func ScalarTypeFromName(name string) (ScalarType, bool) {
	switch name {
	case "Int":
		return TypeInt, true
	case "Float":
		return TypeFloat, true
	case "String":
		return TypeString, true
	case "Boolean":
		return TypeBoolean, true
	case "DateTime":
		return TypeDateTime, true
	case "Decimal":
		return TypeDecimal, true
	default:
		return 0, false
	}
}

// ScalarValue is a tagged literal or expression value, used for defaults.
// The concrete types below form a closed set.
type ScalarValue interface {
	isScalarValue()
}

// IntValue is an integer literal.
type IntValue int64

// FloatValue is a floating-point literal.
type FloatValue float64

// StringValue is a string literal.
type StringValue string

// BooleanValue is a boolean literal.
type BooleanValue bool

// DateTimeValue is a timestamp literal.
type DateTimeValue time.Time

// DecimalValue is an arbitrary-precision decimal literal.
type DecimalValue struct {
	Value decimal.Decimal
}

// ConstantLiteral names an enum value.
type ConstantLiteral string

// Expression is a function-call default such as cuid(), uuid() or now().
type Expression struct {
	Name       string
	ReturnType ScalarType
	Args       []ScalarValue
}

func (IntValue) isScalarValue()        {}
func (FloatValue) isScalarValue()      {}
func (StringValue) isScalarValue()     {}
func (BooleanValue) isScalarValue()    {}
func (DateTimeValue) isScalarValue()   {}
func (DecimalValue) isScalarValue()    {}
func (ConstantLiteral) isScalarValue() {}
func (Expression) isScalarValue()      {}

// Render returns the literal form of a value for SQL default emission.
// Expressions have no literal form and render empty.
func Render(v ScalarValue) string {
	switch val := v.(type) {
	case IntValue:
		return strconv.FormatInt(int64(val), 10)
	case FloatValue:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case StringValue:
		return string(val)
	case BooleanValue:
		if val {
			return "true"
		}
		return "false"
	case DateTimeValue:
		// 1970-01-01 00:00:00, timezone suffix stripped
		return time.Time(val).UTC().Format("2006-01-02 15:04:05")
	case DecimalValue:
		return val.Value.String()
	case ConstantLiteral:
		return string(val)
	case Expression:
		return ""
	default:
		return ""
	}
}

// ZeroValue returns the zero literal for a scalar type, used when an
// expression default has to be replaced for migration purposes.
func ZeroValue(t ScalarType) ScalarValue {
	switch t {
	case TypeInt:
		return IntValue(0)
	case TypeFloat:
		return FloatValue(0)
	case TypeString:
		return StringValue("")
	case TypeBoolean:
		return BooleanValue(false)
	case TypeDateTime:
		return DateTimeValue(time.Unix(0, 0).UTC())
	case TypeDecimal:
		return DecimalValue{Value: decimal.Zero}
	default:
		return nil
	}
}

// ParseNumber converts a raw number literal into an Int or Float value.
func ParseNumber(raw string) (ScalarValue, error) {
	if !strings.ContainsAny(raw, ".eE") {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q: %w", raw, err)
		}
		return IntValue(n), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float literal %q: %w", raw, err)
	}
	return FloatValue(f), nil
}

// TypeIdentifier classifies values coming back from the database so rows can
// be decoded into the right Go representation.
type TypeIdentifier int

const (
	IdentInt TypeIdentifier = iota
	IdentFloat
	IdentBoolean
	IdentString
	IdentDateTime
	IdentGraphQLID
)

func (t TypeIdentifier) String() string {
	switch t {
	case IdentInt:
		return "Int"
	case IdentFloat:
		return "Float"
	case IdentBoolean:
		return "Boolean"
	case IdentString:
		return "String"
	case IdentDateTime:
		return "DateTime"
	case IdentGraphQLID:
		return "GraphQLID"
	default:
		return fmt.Sprintf("TypeIdentifier(%d)", int(t))
	}
}

// TypeIdentifier returns the decoding class of a field's values.
func (f *Field) TypeIdentifier() TypeIdentifier {
	if f.IsID() {
		return IdentGraphQLID
	}
	switch t := f.Type.(type) {
	case BaseType:
		switch t.Scalar {
		case TypeInt:
			return IdentInt
		case TypeFloat, TypeDecimal:
			return IdentFloat
		case TypeBoolean:
			return IdentBoolean
		case TypeDateTime:
			return IdentDateTime
		default:
			return IdentString
		}
	case EnumType:
		return IdentString
	case RelationType:
		return IdentGraphQLID
	default:
		return IdentString
	}
}
