// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
)

// reply is the response of the fake server to one request. A nil Response is never sent.
type reply struct {
	Response ua.ServiceResponse
	Delay    time.Duration
}

// fakeServer speaks the wire protocol with scripted replies, to test the client against a
// server that is slow, silent or unwilling.
type fakeServer struct {
	l      net.Listener
	ack    *ua.Acknowledge
	reject *ua.ErrorMessage
	handle func(req ua.ServiceRequest) reply

	mu    sync.Mutex
	conns []*ua.Conn
}

func newFakeServer(t *testing.T, handle func(req ua.ServiceRequest) reply) *fakeServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{
		l:      l,
		ack:    &ua.Acknowledge{ProtocolVersion: ua.ProtocolVersion, MaxMessageSize: ua.DefaultMaxMessageSize},
		handle: handle,
	}
	t.Cleanup(s.Close)
	return s
}

// EndpointURL returns the url of the listener.
func (s *fakeServer) EndpointURL() string {
	return "opc.tcp://" + s.l.Addr().String()
}

// Start accepts connections until Close.
func (s *fakeServer) Start() {
	go func() {
		for {
			conn, err := s.l.Accept()
			if err != nil {
				return
			}
			go s.serve(ua.NewConn(conn, 0))
		}
	}()
}

// Close closes the listener and every connection.
func (s *fakeServer) Close() {
	s.l.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
}

func (s *fakeServer) serve(c *ua.Conn) {
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	if _, _, _, err := c.ReadMessage(); err != nil {
		c.Close()
		return
	}
	if s.reject != nil {
		c.WriteMessage(ua.MessageTypeError, 0, s.reject)
		c.Close()
		return
	}
	if err := c.WriteMessage(ua.MessageTypeAck, 0, s.ack); err != nil {
		c.Close()
		return
	}
	for {
		msgType, handle, body, err := c.ReadMessage()
		if err != nil || msgType == ua.MessageTypeCloseFinal {
			c.Close()
			return
		}
		req, ok := body.(ua.ServiceRequest)
		if !ok {
			continue
		}
		r := s.reply(req)
		if r.Response == nil {
			continue
		}
		go func(r reply) {
			time.Sleep(r.Delay)
			h := r.Response.Header()
			h.Timestamp = time.Now()
			h.RequestHandle = handle
			c.WriteMessage(ua.MessageTypeFinal, handle, r.Response)
		}(r)
	}
}

// Notify writes the notification to every connection.
func (s *fakeServer) Notify(msg *ua.NotificationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.WriteMessage(ua.MessageTypeNotification, 0, msg)
	}
}

// reply answers the session requests, and passes the rest to the handle func.
func (s *fakeServer) reply(req ua.ServiceRequest) reply {
	switch req.(type) {
	case *ua.CreateSessionRequest:
		return reply{Response: &ua.CreateSessionResponse{
			SessionID:             ua.NewNodeIDNumeric(1, 1),
			AuthenticationToken:   ua.NewNodeIDString(1, "token"),
			RevisedSessionTimeout: 120000,
		}}
	case *ua.ActivateSessionRequest:
		return reply{Response: &ua.ActivateSessionResponse{}}
	case *ua.CloseSessionRequest:
		return reply{Response: &ua.CloseSessionResponse{}}
	}
	if s.handle == nil {
		return reply{}
	}
	return s.handle(req)
}

// readResponse returns a response carrying the values.
func readResponse(values ...ua.Variant) *ua.ReadResponse {
	res := &ua.ReadResponse{Results: make([]ua.DataValue, len(values))}
	now := time.Now()
	for i, v := range values {
		res.Results[i] = ua.NewDataValue(v, ua.Good, now, now)
	}
	return res
}
