// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"time"
)

const (
	// the maximum length of strings, byte arrays and arrays accepted by the decoder.
	maxArrayLength = 1 << 20
)

// BinaryDecoder decodes the UA binary protocol.
type BinaryDecoder struct {
	r  io.Reader
	bs [8]byte
}

// NewBinaryDecoder returns a new decoder that reads from an io.Reader.
func NewBinaryDecoder(r io.Reader) *BinaryDecoder {
	return &BinaryDecoder{r, [8]byte{}}
}

// Decode decodes the value using the UA Binary protocol. v must be a non-nil pointer.
func (dec *BinaryDecoder) Decode(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return BadDecodingError
	}
	return dec.decodeValue(rv.Elem())
}

func (dec *BinaryDecoder) decodeValue(rv reflect.Value) error {
	switch p := rv.Addr().Interface().(type) {
	case *bool:
		return dec.ReadBoolean(p)
	case *int8:
		return dec.ReadSByte(p)
	case *byte:
		return dec.ReadByte(p)
	case *int16:
		return dec.ReadInt16(p)
	case *uint16:
		return dec.ReadUInt16(p)
	case *int32:
		return dec.ReadInt32(p)
	case *uint32:
		return dec.ReadUInt32(p)
	case *int64:
		return dec.ReadInt64(p)
	case *uint64:
		return dec.ReadUInt64(p)
	case *float32:
		return dec.ReadFloat(p)
	case *float64:
		return dec.ReadDouble(p)
	case *string:
		return dec.ReadString(p)
	case *time.Time:
		return dec.ReadDateTime(p)
	case *NodeID:
		return dec.ReadNodeID(p)
	case *StatusCode:
		return dec.ReadStatusCode(p)
	case *QualifiedName:
		return dec.ReadQualifiedName(p)
	case *LocalizedText:
		return dec.ReadLocalizedText(p)
	case *Variant:
		return dec.ReadVariant(p)
	case *DataValue:
		return dec.ReadDataValue(p)
	case *[]byte:
		return dec.ReadByteArray(p)
	}

	switch rv.Kind() {

	case reflect.Ptr: // *struct
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return dec.decodeValue(rv.Elem())

	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			if !field.CanSet() {
				return BadDecodingError
			}
			if err := dec.decodeValue(field); err != nil {
				return BadDecodingError
			}
		}
		return nil

	case reflect.Slice:
		var n int32
		if err := dec.ReadInt32(&n); err != nil {
			return BadDecodingError
		}
		if n < 0 {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if n > maxArrayLength {
			return BadEncodingLimitsExceeded
		}
		s := reflect.MakeSlice(rv.Type(), int(n), int(n))
		for i := 0; i < int(n); i++ {
			if err := dec.decodeValue(s.Index(i)); err != nil {
				return BadDecodingError
			}
		}
		rv.Set(s)
		return nil

	// enums
	case reflect.Bool:
		var v bool
		if err := dec.ReadBoolean(&v); err != nil {
			return BadDecodingError
		}
		rv.SetBool(v)
		return nil
	case reflect.Uint8:
		var v byte
		if err := dec.ReadByte(&v); err != nil {
			return BadDecodingError
		}
		rv.SetUint(uint64(v))
		return nil
	case reflect.Int32:
		var v int32
		if err := dec.ReadInt32(&v); err != nil {
			return BadDecodingError
		}
		rv.SetInt(int64(v))
		return nil
	case reflect.Uint32:
		var v uint32
		if err := dec.ReadUInt32(&v); err != nil {
			return BadDecodingError
		}
		rv.SetUint(uint64(v))
		return nil

	default:
		return BadDecodingError
	}
}

// ReadBoolean reads a bool.
func (dec *BinaryDecoder) ReadBoolean(value *bool) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:1]); err != nil {
		return BadDecodingError
	}
	*value = dec.bs[0] != 0
	return nil
}

// ReadSByte reads a sbyte.
func (dec *BinaryDecoder) ReadSByte(value *int8) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:1]); err != nil {
		return BadDecodingError
	}
	*value = int8(dec.bs[0])
	return nil
}

// ReadByte reads a byte.
func (dec *BinaryDecoder) ReadByte(value *byte) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:1]); err != nil {
		return BadDecodingError
	}
	*value = dec.bs[0]
	return nil
}

// ReadInt16 reads a int16.
func (dec *BinaryDecoder) ReadInt16(value *int16) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:2]); err != nil {
		return BadDecodingError
	}
	*value = int16(binary.LittleEndian.Uint16(dec.bs[:2]))
	return nil
}

// ReadUInt16 reads a uint16.
func (dec *BinaryDecoder) ReadUInt16(value *uint16) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:2]); err != nil {
		return BadDecodingError
	}
	*value = binary.LittleEndian.Uint16(dec.bs[:2])
	return nil
}

// ReadInt32 reads a int32.
func (dec *BinaryDecoder) ReadInt32(value *int32) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:4]); err != nil {
		return BadDecodingError
	}
	*value = int32(binary.LittleEndian.Uint32(dec.bs[:4]))
	return nil
}

// ReadUInt32 reads a uint32.
func (dec *BinaryDecoder) ReadUInt32(value *uint32) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:4]); err != nil {
		return BadDecodingError
	}
	*value = binary.LittleEndian.Uint32(dec.bs[:4])
	return nil
}

// ReadInt64 reads a int64.
func (dec *BinaryDecoder) ReadInt64(value *int64) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:8]); err != nil {
		return BadDecodingError
	}
	*value = int64(binary.LittleEndian.Uint64(dec.bs[:8]))
	return nil
}

// ReadUInt64 reads a uint64.
func (dec *BinaryDecoder) ReadUInt64(value *uint64) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:8]); err != nil {
		return BadDecodingError
	}
	*value = binary.LittleEndian.Uint64(dec.bs[:8])
	return nil
}

// ReadFloat reads a float32.
func (dec *BinaryDecoder) ReadFloat(value *float32) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:4]); err != nil {
		return BadDecodingError
	}
	*value = math.Float32frombits(binary.LittleEndian.Uint32(dec.bs[:4]))
	return nil
}

// ReadDouble reads a float64.
func (dec *BinaryDecoder) ReadDouble(value *float64) error {
	if _, err := io.ReadFull(dec.r, dec.bs[:8]); err != nil {
		return BadDecodingError
	}
	*value = math.Float64frombits(binary.LittleEndian.Uint64(dec.bs[:8]))
	return nil
}

// ReadString reads a string.
func (dec *BinaryDecoder) ReadString(value *string) error {
	var n int32
	if err := dec.ReadInt32(&n); err != nil {
		return BadDecodingError
	}
	if n < 0 {
		*value = ""
		return nil
	}
	if n > maxArrayLength {
		return BadEncodingLimitsExceeded
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(dec.r, bs); err != nil {
		return BadDecodingError
	}
	*value = string(bs)
	return nil
}

// ReadByteArray reads a byte array.
func (dec *BinaryDecoder) ReadByteArray(value *[]byte) error {
	var n int32
	if err := dec.ReadInt32(&n); err != nil {
		return BadDecodingError
	}
	if n < 0 {
		*value = nil
		return nil
	}
	if n > maxArrayLength {
		return BadEncodingLimitsExceeded
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(dec.r, bs); err != nil {
		return BadDecodingError
	}
	*value = bs
	return nil
}

// ReadDateTime reads a time.Time.
func (dec *BinaryDecoder) ReadDateTime(value *time.Time) error {
	// ticks are 100 nanosecond intervals since January 1, 1601
	var ticks int64
	if err := dec.ReadInt64(&ticks); err != nil {
		return BadDecodingError
	}
	if ticks <= 0 {
		*value = time.Time{}
		return nil
	}
	if ticks == 0x7FFFFFFFFFFFFFFF {
		ticks = 2650467743990000000
	}
	*value = time.Unix(ticks/10000000-11644473600, (ticks%10000000)*100).UTC()
	return nil
}

// ReadNodeID reads a NodeID.
func (dec *BinaryDecoder) ReadNodeID(value *NodeID) error {
	var b byte
	if err := dec.ReadByte(&b); err != nil {
		return BadDecodingError
	}
	switch b {
	case 0x00:
		var id byte
		if err := dec.ReadByte(&id); err != nil {
			return BadDecodingError
		}
		*value = NewNodeIDNumeric(0, uint32(id))
		return nil

	case 0x01:
		var ns byte
		var id uint16
		if err := dec.ReadByte(&ns); err != nil {
			return BadDecodingError
		}
		if err := dec.ReadUInt16(&id); err != nil {
			return BadDecodingError
		}
		*value = NewNodeIDNumeric(uint16(ns), uint32(id))
		return nil

	case 0x02:
		var ns uint16
		var id uint32
		if err := dec.ReadUInt16(&ns); err != nil {
			return BadDecodingError
		}
		if err := dec.ReadUInt32(&id); err != nil {
			return BadDecodingError
		}
		*value = NewNodeIDNumeric(ns, id)
		return nil

	case 0x03:
		var ns uint16
		var id string
		if err := dec.ReadUInt16(&ns); err != nil {
			return BadDecodingError
		}
		if err := dec.ReadString(&id); err != nil {
			return BadDecodingError
		}
		*value = NewNodeIDString(ns, id)
		return nil

	default:
		return BadDecodingError
	}
}

// ReadStatusCode reads a StatusCode.
func (dec *BinaryDecoder) ReadStatusCode(value *StatusCode) error {
	var v uint32
	if err := dec.ReadUInt32(&v); err != nil {
		return BadDecodingError
	}
	*value = StatusCode(v)
	return nil
}

// ReadQualifiedName reads a QualifiedName.
func (dec *BinaryDecoder) ReadQualifiedName(value *QualifiedName) error {
	var ns uint16
	var name string
	if err := dec.ReadUInt16(&ns); err != nil {
		return BadDecodingError
	}
	if err := dec.ReadString(&name); err != nil {
		return BadDecodingError
	}
	*value = QualifiedName{ns, name}
	return nil
}

// ReadLocalizedText reads a LocalizedText.
func (dec *BinaryDecoder) ReadLocalizedText(value *LocalizedText) error {
	var text, locale string
	var b byte
	if err := dec.ReadByte(&b); err != nil {
		return BadDecodingError
	}
	if (b & 1) != 0 {
		if err := dec.ReadString(&locale); err != nil {
			return BadDecodingError
		}
	}
	if (b & 2) != 0 {
		if err := dec.ReadString(&text); err != nil {
			return BadDecodingError
		}
	}
	*value = LocalizedText{text, locale}
	return nil
}

// ReadVariant reads a Variant.
func (dec *BinaryDecoder) ReadVariant(value *Variant) error {
	var b byte
	if err := dec.ReadByte(&b); err != nil {
		return BadDecodingError
	}
	switch VariantType(b) {
	case VariantTypeNull:
		*value = NilVariant
		return nil

	case VariantTypeBoolean:
		var v bool
		if err := dec.ReadBoolean(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantBoolean(v)
		return nil

	case VariantTypeSByte:
		var v int8
		if err := dec.ReadSByte(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantSByte(v)
		return nil

	case VariantTypeByte:
		var v byte
		if err := dec.ReadByte(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantByte(v)
		return nil

	case VariantTypeInt16:
		var v int16
		if err := dec.ReadInt16(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantInt16(v)
		return nil

	case VariantTypeUInt16:
		var v uint16
		if err := dec.ReadUInt16(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantUInt16(v)
		return nil

	case VariantTypeInt32:
		var v int32
		if err := dec.ReadInt32(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantInt32(v)
		return nil

	case VariantTypeUInt32:
		var v uint32
		if err := dec.ReadUInt32(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantUInt32(v)
		return nil

	case VariantTypeInt64:
		var v int64
		if err := dec.ReadInt64(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantInt64(v)
		return nil

	case VariantTypeUInt64:
		var v uint64
		if err := dec.ReadUInt64(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantUInt64(v)
		return nil

	case VariantTypeFloat:
		var v float32
		if err := dec.ReadFloat(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantFloat(v)
		return nil

	case VariantTypeDouble:
		var v float64
		if err := dec.ReadDouble(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantDouble(v)
		return nil

	case VariantTypeString:
		var v string
		if err := dec.ReadString(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantString(v)
		return nil

	case VariantTypeDateTime:
		var v time.Time
		if err := dec.ReadDateTime(&v); err != nil {
			return BadDecodingError
		}
		*value = NewVariantDateTime(v)
		return nil

	default:
		return BadDecodingError
	}
}

// ReadDataValue reads a DataValue.
func (dec *BinaryDecoder) ReadDataValue(value *DataValue) error {
	var dv DataValue
	var b byte
	if err := dec.ReadByte(&b); err != nil {
		return BadDecodingError
	}
	if (b & 1) != 0 {
		if err := dec.ReadVariant(&dv.Value); err != nil {
			return BadDecodingError
		}
	}
	if (b & 2) != 0 {
		if err := dec.ReadStatusCode(&dv.StatusCode); err != nil {
			return BadDecodingError
		}
	}
	if (b & 4) != 0 {
		if err := dec.ReadDateTime(&dv.SourceTimestamp); err != nil {
			return BadDecodingError
		}
	}
	if (b & 8) != 0 {
		if err := dec.ReadDateTime(&dv.ServerTimestamp); err != nil {
			return BadDecodingError
		}
	}
	*value = dv
	return nil
}
