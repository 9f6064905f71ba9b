// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func TestParseVariant(t *testing.T) {
	cases := []struct {
		t    ua.VariantType
		text string
		want interface{}
	}{
		{ua.VariantTypeBoolean, "true", true},
		{ua.VariantTypeSByte, "-8", int8(-8)},
		{ua.VariantTypeByte, "200", byte(200)},
		{ua.VariantTypeInt16, "-300", int16(-300)},
		{ua.VariantTypeUInt16, "65535", uint16(65535)},
		{ua.VariantTypeInt32, "-70000", int32(-70000)},
		{ua.VariantTypeUInt32, "7", uint32(7)},
		{ua.VariantTypeInt64, "-1", int64(-1)},
		{ua.VariantTypeUInt64, "18446744073709551615", uint64(18446744073709551615)},
		{ua.VariantTypeFloat, "1.5", float32(1.5)},
		{ua.VariantTypeDouble, "23.5", 23.5},
		{ua.VariantTypeString, "hello", "hello"},
		{ua.VariantTypeDateTime, "2021-06-01T12:00:00Z", time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		v, err := ua.ParseVariant(c.t, c.text)
		assert.NilError(t, err, c.t.String())
		assert.Equal(t, v.Type(), c.t)
		assert.Equal(t, v.Value(), c.want, c.t.String())
	}
}

func TestParseVariantErrors(t *testing.T) {
	_, err := ua.ParseVariant(ua.VariantTypeByte, "256")
	assert.Equal(t, ua.KindOf(err), ua.KindTypeMismatch)
	assert.ErrorContains(t, err, "parse Byte from '256'")

	_, err = ua.ParseVariant(ua.VariantTypeBoolean, "maybe")
	assert.Equal(t, ua.KindOf(err), ua.KindTypeMismatch)

	_, err = ua.ParseVariant(ua.VariantTypeNull, "")
	assert.Equal(t, ua.KindOf(err), ua.KindTypeMismatch)
}

func TestParseVariantType(t *testing.T) {
	vt, err := ua.ParseVariantType("Double")
	assert.NilError(t, err)
	assert.Equal(t, vt, ua.VariantTypeDouble)

	_, err = ua.ParseVariantType("Decimal")
	assert.Equal(t, err, ua.BadTypeMismatch)
}
