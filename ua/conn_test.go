// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func TestConnRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	ca := ua.NewConn(a, 0)
	cb := ua.NewConn(b, 0)
	defer ca.Close()
	defer cb.Close()

	req := &ua.ReadRequest{
		RequestHeader: ua.RequestHeader{RequestHandle: 7},
		NodesToRead: []ua.ReadValueID{
			{NodeID: ua.ParseNodeID("ns=2;s=Temp0"), AttributeID: ua.AttributeIDValue},
		},
	}
	go func() {
		ca.WriteMessage(ua.MessageTypeHello, 0, &ua.Hello{ProtocolVersion: ua.ProtocolVersion, EndpointURL: "opc.tcp://127.0.0.1:4840"})
		ca.WriteMessage(ua.MessageTypeFinal, 7, req)
		ca.WriteMessage(ua.MessageTypeCloseFinal, 0, nil)
	}()

	msgType, _, body, err := cb.ReadMessage()
	assert.NilError(t, err)
	assert.Equal(t, msgType, ua.MessageTypeHello)
	assert.Equal(t, body.(*ua.Hello).EndpointURL, "opc.tcp://127.0.0.1:4840")

	msgType, handle, body, err := cb.ReadMessage()
	assert.NilError(t, err)
	assert.Equal(t, msgType, ua.MessageTypeFinal)
	assert.Equal(t, handle, uint32(7))
	out, ok := body.(*ua.ReadRequest)
	assert.Assert(t, ok)
	assert.Equal(t, out.NodesToRead[0].NodeID, ua.NewNodeIDString(2, "Temp0"))

	msgType, _, body, err = cb.ReadMessage()
	assert.NilError(t, err)
	assert.Equal(t, msgType, ua.MessageTypeCloseFinal)
	assert.Assert(t, body == nil)
}

// TestConnLargeMessage tests a body larger than one pooled buffer is framed correctly.
func TestConnLargeMessage(t *testing.T) {
	a, b := net.Pipe()
	ca := ua.NewConn(a, 0)
	cb := ua.NewConn(b, 0)
	defer ca.Close()
	defer cb.Close()

	reason := strings.Repeat("x", 3*ua.DefaultBufferSize)
	go ca.WriteMessage(ua.MessageTypeError, 0, &ua.ErrorMessage{Error: ua.BadTcpMessageTooLarge, Reason: reason})

	msgType, _, body, err := cb.ReadMessage()
	assert.NilError(t, err)
	assert.Equal(t, msgType, ua.MessageTypeError)
	assert.Equal(t, body.(*ua.ErrorMessage).Error, ua.BadTcpMessageTooLarge)
	assert.Equal(t, len(body.(*ua.ErrorMessage).Reason), len(reason))
}

func TestConnMessageTooLarge(t *testing.T) {
	a, b := net.Pipe()
	ca := ua.NewConn(a, 64)
	defer ca.Close()
	defer b.Close()
	err := ca.WriteMessage(ua.MessageTypeError, 0, &ua.ErrorMessage{Error: ua.BadTimeout, Reason: strings.Repeat("x", 128)})
	assert.Equal(t, err, ua.BadEncodingLimitsExceeded)
}

func TestConnWriteTimeout(t *testing.T) {
	a, b := net.Pipe()
	ca := ua.NewConn(a, 0)
	defer ca.Close()
	defer b.Close()
	ca.SetWriteTimeout(50 * time.Millisecond)

	start := time.Now()
	err := ca.WriteMessage(ua.MessageTypeError, 0, &ua.ErrorMessage{Error: ua.BadTimeout, Reason: "nobody reads"})
	assert.Equal(t, err, ua.BadTimeout)
	assert.Assert(t, time.Since(start) < 2*time.Second)
}
