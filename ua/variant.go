// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// VariantType is the kind of value stored in the Variant.
type VariantType byte

// VariantTypes
const (
	VariantTypeNull VariantType = iota
	VariantTypeBoolean
	VariantTypeSByte
	VariantTypeByte
	VariantTypeInt16
	VariantTypeUInt16
	VariantTypeInt32
	VariantTypeUInt32
	VariantTypeInt64
	VariantTypeUInt64
	VariantTypeFloat
	VariantTypeDouble
	VariantTypeString
	VariantTypeDateTime
)

// String returns the name of the type.
func (t VariantType) String() string {
	switch t {
	case VariantTypeNull:
		return "Null"
	case VariantTypeBoolean:
		return "Boolean"
	case VariantTypeSByte:
		return "SByte"
	case VariantTypeByte:
		return "Byte"
	case VariantTypeInt16:
		return "Int16"
	case VariantTypeUInt16:
		return "UInt16"
	case VariantTypeInt32:
		return "Int32"
	case VariantTypeUInt32:
		return "UInt32"
	case VariantTypeInt64:
		return "Int64"
	case VariantTypeUInt64:
		return "UInt64"
	case VariantTypeFloat:
		return "Float"
	case VariantTypeDouble:
		return "Double"
	case VariantTypeString:
		return "String"
	case VariantTypeDateTime:
		return "DateTime"
	default:
		return fmt.Sprintf("VariantType(%d)", byte(t))
	}
}

// ParseVariantType returns the VariantType with the given name.
func ParseVariantType(name string) (VariantType, error) {
	for t := VariantTypeBoolean; t <= VariantTypeDateTime; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return VariantTypeNull, BadTypeMismatch
}

// ParseVariant returns a Variant of type t holding the value parsed from text.
// DateTime text is RFC 3339.
func ParseVariant(t VariantType, text string) (Variant, error) {
	var (
		v   interface{}
		err error
	)
	switch t {
	case VariantTypeBoolean:
		v, err = strconv.ParseBool(text)
	case VariantTypeSByte:
		var i int64
		i, err = strconv.ParseInt(text, 10, 8)
		v = int8(i)
	case VariantTypeByte:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 8)
		v = byte(u)
	case VariantTypeInt16:
		var i int64
		i, err = strconv.ParseInt(text, 10, 16)
		v = int16(i)
	case VariantTypeUInt16:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 16)
		v = uint16(u)
	case VariantTypeInt32:
		var i int64
		i, err = strconv.ParseInt(text, 10, 32)
		v = int32(i)
	case VariantTypeUInt32:
		var u uint64
		u, err = strconv.ParseUint(text, 10, 32)
		v = uint32(u)
	case VariantTypeInt64:
		v, err = strconv.ParseInt(text, 10, 64)
	case VariantTypeUInt64:
		v, err = strconv.ParseUint(text, 10, 64)
	case VariantTypeFloat:
		var f float64
		f, err = strconv.ParseFloat(text, 32)
		v = float32(f)
	case VariantTypeDouble:
		v, err = strconv.ParseFloat(text, 64)
	case VariantTypeString:
		v = text
	case VariantTypeDateTime:
		v, err = time.Parse(time.RFC3339Nano, text)
	default:
		return NilVariant, errors.Wrapf(BadTypeMismatch, "parse %s", t)
	}
	if err != nil {
		return NilVariant, errors.Wrapf(BadTypeMismatch, "parse %s from '%s'", t, text)
	}
	return NewVariant(v)
}

// Variant is a tagged union of the built-in scalar types.
type Variant struct {
	value       interface{}
	variantType VariantType
}

// NilVariant is the nil value.
var NilVariant = Variant{}

// NewVariant returns a Variant holding v, with the type inferred from the Go type of v.
func NewVariant(v interface{}) (Variant, error) {
	switch x := v.(type) {
	case nil:
		return NilVariant, nil
	case Variant:
		return x, nil
	case bool:
		return NewVariantBoolean(x), nil
	case int8:
		return NewVariantSByte(x), nil
	case byte:
		return NewVariantByte(x), nil
	case int16:
		return NewVariantInt16(x), nil
	case uint16:
		return NewVariantUInt16(x), nil
	case int32:
		return NewVariantInt32(x), nil
	case uint32:
		return NewVariantUInt32(x), nil
	case int64:
		return NewVariantInt64(x), nil
	case uint64:
		return NewVariantUInt64(x), nil
	case float32:
		return NewVariantFloat(x), nil
	case float64:
		return NewVariantDouble(x), nil
	case string:
		return NewVariantString(x), nil
	case time.Time:
		return NewVariantDateTime(x), nil
	default:
		return NilVariant, BadTypeMismatch
	}
}

// NewVariantBoolean returns a new Variant.
func NewVariantBoolean(value bool) Variant {
	return Variant{value, VariantTypeBoolean}
}

// NewVariantSByte returns a new Variant.
func NewVariantSByte(value int8) Variant {
	return Variant{value, VariantTypeSByte}
}

// NewVariantByte returns a new Variant.
func NewVariantByte(value byte) Variant {
	return Variant{value, VariantTypeByte}
}

// NewVariantInt16 returns a new Variant.
func NewVariantInt16(value int16) Variant {
	return Variant{value, VariantTypeInt16}
}

// NewVariantUInt16 returns a new Variant.
func NewVariantUInt16(value uint16) Variant {
	return Variant{value, VariantTypeUInt16}
}

// NewVariantInt32 returns a new Variant.
func NewVariantInt32(value int32) Variant {
	return Variant{value, VariantTypeInt32}
}

// NewVariantUInt32 returns a new Variant.
func NewVariantUInt32(value uint32) Variant {
	return Variant{value, VariantTypeUInt32}
}

// NewVariantInt64 returns a new Variant.
func NewVariantInt64(value int64) Variant {
	return Variant{value, VariantTypeInt64}
}

// NewVariantUInt64 returns a new Variant.
func NewVariantUInt64(value uint64) Variant {
	return Variant{value, VariantTypeUInt64}
}

// NewVariantFloat returns a new Variant.
func NewVariantFloat(value float32) Variant {
	return Variant{value, VariantTypeFloat}
}

// NewVariantDouble returns a new Variant.
func NewVariantDouble(value float64) Variant {
	return Variant{value, VariantTypeDouble}
}

// NewVariantString returns a new Variant.
func NewVariantString(value string) Variant {
	return Variant{value, VariantTypeString}
}

// NewVariantDateTime returns a new Variant.
func NewVariantDateTime(value time.Time) Variant {
	return Variant{value.UTC(), VariantTypeDateTime}
}

// Value returns the value.
func (v Variant) Value() interface{} {
	return v.value
}

// Type returns the VariantType enumeration.
func (v Variant) Type() VariantType {
	return v.variantType
}

// IsNil checks if Variant is nil
func (v Variant) IsNil() bool {
	return v.variantType == VariantTypeNull
}

// Equal checks if the type and value are equal.
func (v Variant) Equal(b Variant) bool {
	if v.variantType != b.variantType {
		return false
	}
	if v.variantType == VariantTypeDateTime {
		return v.value.(time.Time).Equal(b.value.(time.Time))
	}
	return v.value == b.value
}

// Float64 returns the value converted to float64, if the value is numeric.
func (v Variant) Float64() (float64, bool) {
	switch x := v.value.(type) {
	case int8:
		return float64(x), true
	case byte:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint16:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// String returns the value formatted with fmt.
func (v Variant) String() string {
	if v.IsNil() {
		return "<nil>"
	}
	if t, ok := v.value.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v.value)
}

// MarshalJSON returns the value as json.
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.value)
}
