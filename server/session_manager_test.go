// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func TestSessionExpires(t *testing.T) {
	srv := newTestServer(t)
	ch, _ := newTestChannel(t, srv)
	short := NewSession("short", 50*time.Millisecond, ch, srv.logger)
	assert.NilError(t, srv.sessionManager.Add(short))
	short.activate(ch, "")
	long := NewSession("long", time.Minute, ch, srv.logger)
	assert.NilError(t, srv.sessionManager.Add(long))
	long.activate(ch, "")

	sub, err := srv.SubscriptionManager().Create(short, 60000, 0, 0)
	assert.NilError(t, err)
	keep, err := srv.SubscriptionManager().Create(long, 60000, 0, 0)
	assert.NilError(t, err)

	time.Sleep(100 * time.Millisecond)
	srv.sessionManager.checkForExpiredSessions()

	assert.Equal(t, srv.SessionManager().Len(), 1)
	_, ok := srv.SessionManager().Get(short.AuthenticationToken())
	assert.Assert(t, !ok)
	assert.Assert(t, !short.IsActivated())
	_, ok = srv.SubscriptionManager().Get(sub.ID())
	assert.Assert(t, !ok)
	assert.Equal(t, len(srv.SubscriptionManager().GetBySession(short)), 0)

	_, ok = srv.SessionManager().Get(long.AuthenticationToken())
	assert.Assert(t, ok)
	_, ok = srv.SubscriptionManager().Get(keep.ID())
	assert.Assert(t, ok)
}

func TestClosedChannelDetachesSessions(t *testing.T) {
	srv := newTestServer(t)
	ch, _ := newTestChannel(t, srv)
	session := NewSession("detached", time.Minute, ch, srv.logger)
	assert.NilError(t, srv.sessionManager.Add(session))
	session.activate(ch, "")
	other, _ := newTestSession(t, srv)

	sub, err := srv.SubscriptionManager().Create(session, 60000, 3, 1)
	assert.NilError(t, err)
	assert.Equal(t, sub.LifetimeCount(), uint32(3))

	assert.NilError(t, ch.Close())
	assert.Assert(t, !session.boundTo(ch))
	assert.Assert(t, !session.hasDeliveryPath())
	assert.Assert(t, other.hasDeliveryPath())
	_, ok := srv.SessionManager().Get(session.AuthenticationToken())
	assert.Assert(t, ok)

	// without a delivery path every cycle counts down the lifetime.
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, sub.publishCycle(time.Now()))
}

func TestMaxSessionCount(t *testing.T) {
	srv := newTestServer(t, WithMaxSessionCount(1))
	newTestSession(t, srv)

	ch, _ := newTestChannel(t, srv)
	err := srv.sessionManager.Add(NewSession("second", time.Minute, ch, srv.logger))
	assert.Equal(t, err, ua.BadTooManySessions)
	assert.Equal(t, srv.SessionManager().Len(), 1)
}
