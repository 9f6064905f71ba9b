// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func TestBoolean(t *testing.T) {
	cases := []struct {
		in    bool
		bytes []byte
	}{
		{
			true,
			[]byte{
				0x01,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteBoolean(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out bool
		if err := dec.ReadBoolean(&out); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, out, c.in)
	}
}

func TestInt32(t *testing.T) {
	cases := []struct {
		in    int32
		bytes []byte
	}{
		{
			1_000_000_000,
			[]byte{
				0x00, 0xCA, 0x9A, 0x3B,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteInt32(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out int32
		if err := dec.ReadInt32(&out); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, out, c.in)
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in    string
		bytes []byte
	}{
		{
			"水Boy",
			[]byte{
				0x06, 0x00, 0x00, 0x00, 0xE6, 0xB0, 0xB4, 0x42, 0x6F, 0x79,
			},
		},
		{
			"",
			[]byte{
				0xFF, 0xFF, 0xFF, 0xFF,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteString(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out string
		if err := dec.ReadString(&out); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, out, c.in)
	}
}

func TestDateTime(t *testing.T) {
	cases := []struct {
		in    time.Time
		bytes []byte
	}{
		{
			time.Date(1601, time.January, 1, 12, 0, 0, 0, time.UTC),
			[]byte{
				0x00, 0xE0, 0x34, 0x95, 0x64, 0x00, 0x00, 0x00,
			},
		},
		{
			time.Time{},
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteDateTime(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out time.Time
		if err := dec.ReadDateTime(&out); err != nil {
			t.Fatal(err)
		}
		assert.Assert(t, out.Equal(c.in))
	}
}

func TestNodeID(t *testing.T) {
	cases := []struct {
		in    ua.NodeID
		bytes []byte
	}{
		{
			ua.NewNodeIDNumeric(0, 85),
			[]byte{
				0x00, 0x55,
			},
		},
		{
			ua.NewNodeIDNumeric(2, 1025),
			[]byte{
				0x01, 0x02, 0x01, 0x04,
			},
		},
		{
			ua.NewNodeIDNumeric(2, 1_000_000),
			[]byte{
				0x02, 0x02, 0x00, 0x40, 0x42, 0x0F, 0x00,
			},
		},
		{
			ua.NewNodeIDString(2, "Temp0"),
			[]byte{
				0x03, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x54, 0x65, 0x6D, 0x70, 0x30,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteNodeID(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out ua.NodeID
		if err := dec.ReadNodeID(&out); err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, out, c.in)
	}
}

func TestVariant(t *testing.T) {
	cases := []struct {
		in    ua.Variant
		bytes []byte
	}{
		{
			ua.NewVariantDouble(23.5),
			[]byte{
				0x0B, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x37, 0x40,
			},
		},
		{
			ua.NewVariantBoolean(true),
			[]byte{
				0x01, 0x01,
			},
		},
		{
			ua.NewVariantUInt32(7),
			[]byte{
				0x07, 0x07, 0x00, 0x00, 0x00,
			},
		},
		{
			ua.NilVariant,
			[]byte{
				0x00,
			},
		},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		enc := ua.NewBinaryEncoder(buf)
		if err := enc.WriteVariant(c.in); err != nil {
			t.Fatal(err)
		}
		assert.DeepEqual(t, buf.Bytes(), c.bytes)

		dec := ua.NewBinaryDecoder(buf)
		var out ua.Variant
		if err := dec.ReadVariant(&out); err != nil {
			t.Fatal(err)
		}
		assert.Assert(t, out.Equal(c.in))
	}
}

func TestDataValue(t *testing.T) {
	ts := time.Date(2021, time.March, 4, 5, 6, 7, 800, time.UTC)
	in := ua.NewDataValue(ua.NewVariantString("PLC restarted successfully"), ua.Good, ts, ts)
	buf := &bytes.Buffer{}
	enc := ua.NewBinaryEncoder(buf)
	if err := enc.WriteDataValue(in); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, buf.Bytes()[0], byte(0x0D))

	dec := ua.NewBinaryDecoder(buf)
	var out ua.DataValue
	if err := dec.ReadDataValue(&out); err != nil {
		t.Fatal(err)
	}
	assert.Assert(t, out.Value.Equal(in.Value))
	assert.Equal(t, out.StatusCode, in.StatusCode)
	assert.Assert(t, out.SourceTimestamp.Equal(ts))
	assert.Assert(t, out.ServerTimestamp.Equal(ts))
}

// TestStructure tests a service request survives the reflection encoder together with its encoding id.
func TestStructure(t *testing.T) {
	in := &ua.CallRequest{
		RequestHeader: ua.RequestHeader{
			AuthenticationToken: ua.NewNodeIDString(0, "token"),
			RequestHandle:       42,
			TimeoutHint:         1500,
		},
		MethodsToCall: []ua.CallMethodRequest{
			{
				ObjectID:       ua.ParseNodeID("ns=2;s=PLC_System"),
				MethodID:       ua.ParseNodeID("ns=2;s=PLC_System.RestartPLC"),
				InputArguments: []ua.Variant{ua.NewVariantBoolean(true)},
			},
		},
	}
	buf := &bytes.Buffer{}
	enc := ua.NewBinaryEncoder(buf)
	if err := enc.WriteStructure(in); err != nil {
		t.Fatal(err)
	}

	dec := ua.NewBinaryDecoder(buf)
	v, err := dec.ReadStructure()
	if err != nil {
		t.Fatal(err)
	}
	out, ok := v.(*ua.CallRequest)
	assert.Assert(t, ok)
	assert.Equal(t, out.RequestHandle, uint32(42))
	assert.Equal(t, out.TimeoutHint, uint32(1500))
	assert.Equal(t, out.AuthenticationToken, in.AuthenticationToken)
	assert.Equal(t, len(out.MethodsToCall), 1)
	assert.Equal(t, out.MethodsToCall[0].MethodID, in.MethodsToCall[0].MethodID)
	assert.Assert(t, out.MethodsToCall[0].InputArguments[0].Equal(ua.NewVariantBoolean(true)))
}

func TestReadStructureUnknownID(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	dec := ua.NewBinaryDecoder(buf)
	_, err := dec.ReadStructure()
	assert.Equal(t, err, ua.BadServiceUnsupported)
}
