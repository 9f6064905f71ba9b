// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"testing"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func TestParseNodeID(t *testing.T) {
	cases := []struct {
		in  string
		out ua.NodeID
	}{
		{"i=85", ua.NewNodeIDNumeric(0, 85)},
		{"ns=2;i=5", ua.NewNodeIDNumeric(2, 5)},
		{"ns=2;s=Temp0", ua.NewNodeIDString(2, "Temp0")},
		{"ns=2;s=PLC_System.Temperature_Sensors", ua.NewNodeIDString(2, "PLC_System.Temperature_Sensors")},
		{"ns=x;i=5", ua.NilNodeID},
		{"ns=2", ua.NilNodeID},
		{"q=5", ua.NilNodeID},
		{"s=", ua.NilNodeID},
	}
	for _, c := range cases {
		assert.Equal(t, ua.ParseNodeID(c.in), c.out, c.in)
	}
}

func TestNodeIDString(t *testing.T) {
	assert.Equal(t, ua.NewNodeIDNumeric(0, 85).String(), "i=85")
	assert.Equal(t, ua.NewNodeIDString(2, "Temp0").String(), "ns=2;s=Temp0")
	assert.Equal(t, ua.ParseNodeID(ua.NewNodeIDNumeric(3, 1001).String()), ua.NewNodeIDNumeric(3, 1001))
}

func TestNodeIDAsMapKey(t *testing.T) {
	m := map[ua.NodeID]int{
		ua.NewNodeIDString(2, "Temp0"): 1,
	}
	_, ok := m[ua.ParseNodeID("ns=2;s=Temp0")]
	assert.Assert(t, ok)
}

func TestNodeIDText(t *testing.T) {
	var id ua.NodeID
	assert.NilError(t, id.UnmarshalText([]byte("ns=2;s=Temp0")))
	assert.Equal(t, id, ua.NewNodeIDString(2, "Temp0"))
	assert.Equal(t, id.UnmarshalText([]byte("bogus")), ua.BadNodeIDInvalid)
}
