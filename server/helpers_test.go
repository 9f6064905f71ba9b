// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"net"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func newTestServer(t *testing.T, options ...Option) *Server {
	t.Helper()
	srv, err := New("opc.tcp://127.0.0.1:0", options...)
	assert.NilError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// newTestChannel returns a channel whose remote end decodes notifications into the returned chan.
func newTestChannel(t *testing.T, srv *Server) (*serverChannel, <-chan *ua.NotificationMessage) {
	t.Helper()
	local, remote := net.Pipe()
	ch := newServerChannel(srv, local)
	out := make(chan *ua.NotificationMessage, 64)
	go func() {
		defer close(out)
		conn := ua.NewConn(remote, 0)
		for {
			msgType, _, body, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msg, ok := body.(*ua.NotificationMessage); ok && msgType == ua.MessageTypeNotification {
				out <- msg
			}
		}
	}()
	t.Cleanup(func() {
		ch.Close()
		remote.Close()
	})
	return ch, out
}

// newTestSession returns an activated session and the notifications delivered to it.
func newTestSession(t *testing.T, srv *Server) (*Session, <-chan *ua.NotificationMessage) {
	t.Helper()
	ch, out := newTestChannel(t, srv)
	s := NewSession("test", time.Minute, ch, srv.logger)
	assert.NilError(t, srv.sessionManager.Add(s))
	s.activate(ch, "")
	return s, out
}

func receive(t *testing.T, out <-chan *ua.NotificationMessage) *ua.NotificationMessage {
	t.Helper()
	select {
	case msg, ok := <-out:
		assert.Assert(t, ok, "channel closed")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification")
		return nil
	}
}

func expectNone(t *testing.T, out <-chan *ua.NotificationMessage) {
	t.Helper()
	select {
	case msg := <-out:
		t.Fatalf("unexpected notification: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func addTestVariable(t *testing.T, nm *NamespaceManager, parent ua.NodeID, name string, value ua.Variant) *VariableNode {
	t.Helper()
	now := time.Now()
	n := NewVariableNode(
		ua.NewNodeIDString(1, name),
		ua.NewQualifiedName(1, name),
		ua.NewLocalizedText(name, ""),
		ua.NewLocalizedText("", ""),
		ua.NewDataValue(value, ua.Good, now, now),
		value.Type(),
		ua.AccessLevelsCurrentRead|ua.AccessLevelsCurrentWrite,
	)
	assert.NilError(t, nm.AddNode(parent, n))
	return n
}

func addTestFolder(t *testing.T, nm *NamespaceManager, parent ua.NodeID, name string) *ObjectNode {
	t.Helper()
	n := NewFolderNode(
		ua.NewNodeIDString(1, name),
		ua.NewQualifiedName(1, name),
		ua.NewLocalizedText(name, ""),
		ua.NewLocalizedText("", ""),
	)
	assert.NilError(t, nm.AddNode(parent, n))
	return n
}
