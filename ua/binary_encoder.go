// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"time"
)

// BinaryEncoder encodes the UA binary protocol.
type BinaryEncoder struct {
	w  io.Writer
	bs [8]byte
}

// NewBinaryEncoder returns a new encoder that writes to an io.Writer.
func NewBinaryEncoder(w io.Writer) *BinaryEncoder {
	return &BinaryEncoder{w, [8]byte{}}
}

// Encode encodes the value using the UA Binary protocol.
func (enc *BinaryEncoder) Encode(value interface{}) error {
	switch val := value.(type) {
	case bool:
		return enc.WriteBoolean(val)
	case int8:
		return enc.WriteSByte(val)
	case byte:
		return enc.WriteByte(val)
	case int16:
		return enc.WriteInt16(val)
	case uint16:
		return enc.WriteUInt16(val)
	case int32:
		return enc.WriteInt32(val)
	case uint32:
		return enc.WriteUInt32(val)
	case int64:
		return enc.WriteInt64(val)
	case uint64:
		return enc.WriteUInt64(val)
	case float32:
		return enc.WriteFloat(val)
	case float64:
		return enc.WriteDouble(val)
	case string:
		return enc.WriteString(val)
	case time.Time:
		return enc.WriteDateTime(val)
	case NodeID:
		return enc.WriteNodeID(val)
	case StatusCode:
		return enc.WriteUInt32(uint32(val))
	case QualifiedName:
		return enc.WriteQualifiedName(val)
	case LocalizedText:
		return enc.WriteLocalizedText(val)
	case Variant:
		return enc.WriteVariant(val)
	case DataValue:
		return enc.WriteDataValue(val)
	case []byte:
		return enc.WriteByteArray(val)
	default:
		return enc.encodeValue(reflect.ValueOf(value))
	}
}

func (enc *BinaryEncoder) encodeValue(rv reflect.Value) error {
	switch rv.Kind() {

	case reflect.Ptr: // *struct, e.g. *ReadRequest
		if rv.IsNil() {
			return enc.encodeValue(reflect.New(rv.Type().Elem()).Elem())
		}
		return enc.Encode(rv.Elem().Interface())

	case reflect.Struct: // e.g. ReadValueID
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			if !field.CanInterface() {
				return BadEncodingError
			}
			if err := enc.Encode(field.Interface()); err != nil {
				return BadEncodingError
			}
		}
		return nil

	case reflect.Slice: // e.g. []ReadValueID, []Variant
		if rv.IsNil() {
			return enc.WriteInt32(-1)
		}
		n := rv.Len()
		if err := enc.WriteInt32(int32(n)); err != nil {
			return BadEncodingError
		}
		for i := 0; i < n; i++ {
			if err := enc.Encode(rv.Index(i).Interface()); err != nil {
				return BadEncodingError
			}
		}
		return nil

	// enums
	case reflect.Bool:
		return enc.WriteBoolean(rv.Bool())
	case reflect.Uint8:
		return enc.WriteByte(byte(rv.Uint()))
	case reflect.Int32:
		return enc.WriteInt32(int32(rv.Int()))
	case reflect.Uint32:
		return enc.WriteUInt32(uint32(rv.Uint()))

	default:
		return BadEncodingError
	}
}

// WriteBoolean writes a boolean.
func (enc *BinaryEncoder) WriteBoolean(value bool) error {
	if value {
		enc.bs[0] = 1
	} else {
		enc.bs[0] = 0
	}
	if _, err := enc.w.Write(enc.bs[:1]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteSByte writes a sbyte.
func (enc *BinaryEncoder) WriteSByte(value int8) error {
	enc.bs[0] = byte(value)
	if _, err := enc.w.Write(enc.bs[:1]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteByte writes a byte.
func (enc *BinaryEncoder) WriteByte(value byte) error {
	enc.bs[0] = value
	if _, err := enc.w.Write(enc.bs[:1]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteInt16 writes a int16.
func (enc *BinaryEncoder) WriteInt16(value int16) error {
	binary.LittleEndian.PutUint16(enc.bs[:2], uint16(value))
	if _, err := enc.w.Write(enc.bs[:2]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteUInt16 writes a uint16.
func (enc *BinaryEncoder) WriteUInt16(value uint16) error {
	binary.LittleEndian.PutUint16(enc.bs[:2], value)
	if _, err := enc.w.Write(enc.bs[:2]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteInt32 writes an int32.
func (enc *BinaryEncoder) WriteInt32(value int32) error {
	binary.LittleEndian.PutUint32(enc.bs[:4], uint32(value))
	if _, err := enc.w.Write(enc.bs[:4]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteUInt32 writes an uint32.
func (enc *BinaryEncoder) WriteUInt32(value uint32) error {
	binary.LittleEndian.PutUint32(enc.bs[:4], value)
	if _, err := enc.w.Write(enc.bs[:4]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteInt64 writes an int64.
func (enc *BinaryEncoder) WriteInt64(value int64) error {
	binary.LittleEndian.PutUint64(enc.bs[:8], uint64(value))
	if _, err := enc.w.Write(enc.bs[:8]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteUInt64 writes an uint64.
func (enc *BinaryEncoder) WriteUInt64(value uint64) error {
	binary.LittleEndian.PutUint64(enc.bs[:8], value)
	if _, err := enc.w.Write(enc.bs[:8]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteFloat writes a float.
func (enc *BinaryEncoder) WriteFloat(value float32) error {
	binary.LittleEndian.PutUint32(enc.bs[:4], math.Float32bits(value))
	if _, err := enc.w.Write(enc.bs[:4]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteDouble writes a double.
func (enc *BinaryEncoder) WriteDouble(value float64) error {
	binary.LittleEndian.PutUint64(enc.bs[:8], math.Float64bits(value))
	if _, err := enc.w.Write(enc.bs[:8]); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteString writes a string. The empty string is written as null.
func (enc *BinaryEncoder) WriteString(value string) error {
	if len(value) == 0 {
		return enc.WriteInt32(-1)
	}
	if err := enc.WriteInt32(int32(len(value))); err != nil {
		return BadEncodingError
	}
	if _, err := io.WriteString(enc.w, value); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteByteArray writes a byte array.
func (enc *BinaryEncoder) WriteByteArray(value []byte) error {
	if value == nil {
		return enc.WriteInt32(-1)
	}
	if err := enc.WriteInt32(int32(len(value))); err != nil {
		return BadEncodingError
	}
	if _, err := enc.w.Write(value); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteDateTime writes a date/time.
func (enc *BinaryEncoder) WriteDateTime(value time.Time) error {
	if value.IsZero() {
		return enc.WriteInt64(0)
	}
	// ticks are 100 nanosecond intervals since January 1, 1601
	ticks := (value.Unix()+11644473600)*10000000 + int64(value.Nanosecond())/100
	if ticks < 0 {
		ticks = 0
	}
	if ticks >= 2650467743990000000 {
		ticks = 0x7FFFFFFFFFFFFFFF
	}
	if err := enc.WriteInt64(ticks); err != nil {
		return BadEncodingError
	}
	return nil
}

// WriteNodeID writes a NodeID, choosing the most compact encoding.
func (enc *BinaryEncoder) WriteNodeID(value NodeID) error {
	switch value.idType {
	case IDTypeNumeric:
		switch {
		case value.nid <= 255 && value.namespaceIndex == 0:
			if err := enc.WriteByte(0x00); err != nil {
				return BadEncodingError
			}
			return enc.WriteByte(byte(value.nid))
		case value.nid <= 65535 && value.namespaceIndex <= 255:
			if err := enc.WriteByte(0x01); err != nil {
				return BadEncodingError
			}
			if err := enc.WriteByte(byte(value.namespaceIndex)); err != nil {
				return BadEncodingError
			}
			return enc.WriteUInt16(uint16(value.nid))
		default:
			if err := enc.WriteByte(0x02); err != nil {
				return BadEncodingError
			}
			if err := enc.WriteUInt16(value.namespaceIndex); err != nil {
				return BadEncodingError
			}
			return enc.WriteUInt32(value.nid)
		}
	case IDTypeString:
		if err := enc.WriteByte(0x03); err != nil {
			return BadEncodingError
		}
		if err := enc.WriteUInt16(value.namespaceIndex); err != nil {
			return BadEncodingError
		}
		return enc.WriteString(value.sid)
	default:
		return BadEncodingError
	}
}

// WriteQualifiedName writes a QualifiedName.
func (enc *BinaryEncoder) WriteQualifiedName(value QualifiedName) error {
	if err := enc.WriteUInt16(value.NamespaceIndex); err != nil {
		return BadEncodingError
	}
	return enc.WriteString(value.Name)
}

// WriteLocalizedText writes a LocalizedText.
func (enc *BinaryEncoder) WriteLocalizedText(value LocalizedText) error {
	var b byte
	if value.Locale != "" {
		b |= 1
	}
	if value.Text != "" {
		b |= 2
	}
	if err := enc.WriteByte(b); err != nil {
		return BadEncodingError
	}
	if (b & 1) != 0 {
		if err := enc.WriteString(value.Locale); err != nil {
			return BadEncodingError
		}
	}
	if (b & 2) != 0 {
		if err := enc.WriteString(value.Text); err != nil {
			return BadEncodingError
		}
	}
	return nil
}

// WriteVariant writes a Variant: a type byte followed by the scalar value.
func (enc *BinaryEncoder) WriteVariant(value Variant) error {
	if err := enc.WriteByte(byte(value.variantType)); err != nil {
		return BadEncodingError
	}
	switch v := value.value.(type) {
	case nil:
		return nil
	case bool:
		return enc.WriteBoolean(v)
	case int8:
		return enc.WriteSByte(v)
	case byte:
		return enc.WriteByte(v)
	case int16:
		return enc.WriteInt16(v)
	case uint16:
		return enc.WriteUInt16(v)
	case int32:
		return enc.WriteInt32(v)
	case uint32:
		return enc.WriteUInt32(v)
	case int64:
		return enc.WriteInt64(v)
	case uint64:
		return enc.WriteUInt64(v)
	case float32:
		return enc.WriteFloat(v)
	case float64:
		return enc.WriteDouble(v)
	case string:
		return enc.WriteString(v)
	case time.Time:
		return enc.WriteDateTime(v)
	default:
		return BadEncodingError
	}
}

// WriteDataValue writes a DataValue. A leading mask byte flags the fields present.
func (enc *BinaryEncoder) WriteDataValue(value DataValue) error {
	var b byte
	if !value.Value.IsNil() {
		b |= 1
	}
	if value.StatusCode != 0 {
		b |= 2
	}
	if !value.SourceTimestamp.IsZero() {
		b |= 4
	}
	if !value.ServerTimestamp.IsZero() {
		b |= 8
	}
	if err := enc.WriteByte(b); err != nil {
		return err
	}
	if (b & 1) != 0 {
		if err := enc.WriteVariant(value.Value); err != nil {
			return BadEncodingError
		}
	}
	if (b & 2) != 0 {
		if err := enc.WriteUInt32(uint32(value.StatusCode)); err != nil {
			return BadEncodingError
		}
	}
	if (b & 4) != 0 {
		if err := enc.WriteDateTime(value.SourceTimestamp); err != nil {
			return BadEncodingError
		}
	}
	if (b & 8) != 0 {
		if err := enc.WriteDateTime(value.ServerTimestamp); err != nil {
			return BadEncodingError
		}
	}
	return nil
}
