package ber

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType identifies which field of a Value is populated.
type ValueType uint8

const (
	ValueNone ValueType = iota
	ValueInteger
	ValueReal
	ValueString
	ValueBoolean
	ValueOctets
	ValueRelativeOID
)

func (t ValueType) String() string {
	switch t {
	case ValueInteger:
		return "integer"
	case ValueReal:
		return "real"
	case ValueString:
		return "string"
	case ValueBoolean:
		return "boolean"
	case ValueOctets:
		return "octets"
	case ValueRelativeOID:
		return "relative-oid"
	default:
		return "none"
	}
}

// Value is one untyped wire value.
type Value struct {
	Type    ValueType
	Integer int64
	Real    float64
	String  string
	Boolean bool
	Octets  []byte
	OID     []int32
}

func IntegerValue(v int64) Value       { return Value{Type: ValueInteger, Integer: v} }
func RealValue(v float64) Value        { return Value{Type: ValueReal, Real: v} }
func StringValue(v string) Value       { return Value{Type: ValueString, String: v} }
func BooleanValue(v bool) Value        { return Value{Type: ValueBoolean, Boolean: v} }
func OctetsValue(v []byte) Value       { return Value{Type: ValueOctets, Octets: v} }
func RelativeOIDValue(v []int32) Value { return Value{Type: ValueRelativeOID, OID: v} }

// IsSet reports whether the value carries data.
func (v Value) IsSet() bool {
	return v.Type != ValueNone
}

// Equal compares type and payload. NaN reals compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValueNone:
		return true
	case ValueInteger:
		return v.Integer == o.Integer
	case ValueReal:
		if math.IsNaN(v.Real) && math.IsNaN(o.Real) {
			return true
		}
		return math.Float64bits(v.Real) == math.Float64bits(o.Real)
	case ValueString:
		return v.String == o.String
	case ValueBoolean:
		return v.Boolean == o.Boolean
	case ValueOctets:
		return bytes.Equal(v.Octets, o.Octets)
	case ValueRelativeOID:
		if len(v.OID) != len(o.OID) {
			return false
		}
		for i := range v.OID {
			if v.OID[i] != o.OID[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.Type {
	case ValueInteger:
		return v.Integer
	case ValueReal:
		return v.Real
	case ValueString:
		return v.String
	case ValueBoolean:
		return v.Boolean
	case ValueOctets:
		return v.Octets
	case ValueRelativeOID:
		return v.OID
	default:
		return nil
	}
}

func (v Value) Format() string {
	switch v.Type {
	case ValueInteger:
		return strconv.FormatInt(v.Integer, 10)
	case ValueReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case ValueString:
		return strconv.Quote(v.String)
	case ValueBoolean:
		return strconv.FormatBool(v.Boolean)
	case ValueOctets:
		return fmt.Sprintf("%x", v.Octets)
	case ValueRelativeOID:
		parts := make([]string, len(v.OID))
		for i, n := range v.OID {
			parts[i] = strconv.Itoa(int(n))
		}
		return strings.Join(parts, ".")
	default:
		return "<none>"
	}
}

// ValueOf infers the wire type from the runtime shape of x.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case int:
		return IntegerValue(int64(t)), nil
	case int8:
		return IntegerValue(int64(t)), nil
	case int16:
		return IntegerValue(int64(t)), nil
	case int32:
		return IntegerValue(int64(t)), nil
	case int64:
		return IntegerValue(t), nil
	case uint8:
		return IntegerValue(int64(t)), nil
	case uint16:
		return IntegerValue(int64(t)), nil
	case uint32:
		return IntegerValue(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, ErrIntegerOverflow
		}
		return IntegerValue(int64(t)), nil
	case bool:
		return BooleanValue(t), nil
	case float32:
		return RealValue(float64(t)), nil
	case float64:
		return RealValue(t), nil
	case []byte:
		return OctetsValue(t), nil
	case string:
		return StringValue(t), nil
	case []int32:
		return RelativeOIDValue(t), nil
	default:
		return Value{}, fmt.Errorf("%w: go type %T", ErrUnimplementedType, x)
	}
}
