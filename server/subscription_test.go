// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

func monitorRequest(id ua.NodeID, clientHandle uint32) ua.MonitoredItemCreateRequest {
	return ua.MonitoredItemCreateRequest{
		ItemToMonitor: ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue},
		RequestedParameters: ua.MonitoringParameters{
			ClientHandle:     clientHandle,
			SamplingInterval: 60000,
			QueueSize:        1,
			DiscardOldest:    true,
			Filter:           ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue},
		},
	}
}

func monitorValue(t *testing.T, sub *Subscription, id ua.NodeID, clientHandle uint32) uint32 {
	t.Helper()
	res := sub.CreateMonitoredItem(monitorRequest(id, clientHandle))
	assert.Equal(t, res.StatusCode, ua.Good)
	return res.MonitoredItemID
}

func TestSubscriptionRevisedParameters(t *testing.T) {
	srv := newTestServer(t, WithMinSamplingInterval(100*time.Millisecond))
	session, _ := newTestSession(t, srv)

	sub, err := srv.SubscriptionManager().Create(session, 10, 5, 4)
	assert.NilError(t, err)
	assert.Equal(t, sub.PublishingInterval(), 100.0)
	assert.Equal(t, sub.MaxKeepAliveCount(), uint32(4))
	assert.Equal(t, sub.LifetimeCount(), uint32(12))

	sub, err = srv.SubscriptionManager().Create(session, 1000, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, sub.PublishingInterval(), 1000.0)
	assert.Equal(t, sub.MaxKeepAliveCount(), defaultMaxKeepAliveCount)
	assert.Equal(t, sub.LifetimeCount(), defaultLifetimeCount)
}

func TestSubscriptionBatchesInCreationOrder(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	a := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
	b := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "B", ua.NewVariantInt32(0))
	session, out := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	monitorValue(t, sub, b.NodeID(), 2)
	monitorValue(t, sub, a.NodeID(), 1)

	sub.publishCycle(time.Now())
	msg := receive(t, out)
	assert.Equal(t, msg.SubscriptionID, sub.ID())
	assert.Equal(t, msg.SequenceNumber, uint32(1))
	assert.Equal(t, len(msg.MonitoredItems), 2)
	assert.Equal(t, msg.MonitoredItems[0].ClientHandle, uint32(2))
	assert.Equal(t, msg.MonitoredItems[1].ClientHandle, uint32(1))

	// nothing changed, so nothing is sent.
	sub.publishCycle(time.Now())
	expectNone(t, out)
}

func TestSubscriptionKeepAlive(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	a := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
	session, out := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 3)
	assert.NilError(t, err)

	sub.publishCycle(time.Now())
	sub.publishCycle(time.Now())
	expectNone(t, out)
	sub.publishCycle(time.Now())
	msg := receive(t, out)
	assert.Assert(t, msg.IsKeepAlive())
	assert.Equal(t, msg.SequenceNumber, uint32(1))

	// a keep-alive does not use up the sequence number.
	monitorValue(t, sub, a.NodeID(), 1)
	sub.publishCycle(time.Now())
	msg = receive(t, out)
	assert.Assert(t, !msg.IsKeepAlive())
	assert.Equal(t, msg.SequenceNumber, uint32(1))
}

func TestSubscriptionLifetimeExpires(t *testing.T) {
	srv := newTestServer(t)
	ch, _ := newTestChannel(t, srv)
	session := NewSession("detached", time.Minute, ch, srv.logger)
	assert.NilError(t, srv.SessionManager().Add(session))
	sub, err := srv.SubscriptionManager().Create(session, 60000, 3, 1)
	assert.NilError(t, err)
	assert.Equal(t, sub.LifetimeCount(), uint32(3))

	// no delivery path once the channel is gone.
	ch.Close()
	assert.Assert(t, !session.hasDeliveryPath())
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, sub.publishCycle(time.Now()))
}

func TestSubscriptionLifetimeResetsOnDelivery(t *testing.T) {
	srv := newTestServer(t)
	local, out := newTestChannel(t, srv)
	session := NewSession("flaky", time.Minute, local, srv.logger)
	assert.NilError(t, srv.SessionManager().Add(session))
	session.activate(local, "")
	sub, err := srv.SubscriptionManager().Create(session, 60000, 3, 1)
	assert.NilError(t, err)

	session.detach(local)
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, !sub.publishCycle(time.Now()))

	// re-activated before the lifetime ran out; the keep-alive resets the counter.
	session.activate(local, "")
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, receive(t, out).IsKeepAlive())
	session.detach(local)
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, !sub.publishCycle(time.Now()))
	assert.Assert(t, sub.publishCycle(time.Now()))
}

func TestCreateMonitoredItemErrors(t *testing.T) {
	srv := newTestServer(t)
	session, _ := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)

	res := sub.CreateMonitoredItem(ua.MonitoredItemCreateRequest{ItemToMonitor: ua.ReadValueID{NodeID: ua.NewNodeIDString(1, "Missing"), AttributeID: ua.AttributeIDValue}})
	assert.Equal(t, res.StatusCode, ua.BadNodeIDUnknown)

	res = sub.CreateMonitoredItem(ua.MonitoredItemCreateRequest{ItemToMonitor: ua.ReadValueID{NodeID: ua.ObjectIDServer, AttributeID: ua.AttributeIDValue}})
	assert.Equal(t, res.StatusCode, ua.BadAttributeIDInvalid)
	assert.Equal(t, ua.KindOf(res.StatusCode), ua.KindNotMonitorable)

	assert.Equal(t, sub.DeleteMonitoredItem(12345), ua.BadMonitoredItemIDInvalid)
	assert.Equal(t, len(sub.Items()), 0)
}

func TestDeleteMonitoredItem(t *testing.T) {
	for _, policy := range []DeletionPolicy{DeleteImmediate, DeleteNextCycle} {
		t.Run(policy.String(), func(t *testing.T) {
			srv := newTestServer(t, WithMonitoredItemDeletion(policy))
			nm := srv.NamespaceManager()
			a := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
			b := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "B", ua.NewVariantInt32(0))
			session, out := newTestSession(t, srv)
			sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
			assert.NilError(t, err)
			idA := monitorValue(t, sub, a.NodeID(), 1)
			monitorValue(t, sub, b.NodeID(), 2)

			assert.NilError(t, sub.DeleteMonitoredItem(idA))
			sub.publishCycle(time.Now())
			msg := receive(t, out)
			assert.Equal(t, len(msg.MonitoredItems), 1)
			assert.Equal(t, msg.MonitoredItems[0].ClientHandle, uint32(2))
		})
	}
}

func TestDeleteImmediateWaitsForCycle(t *testing.T) {
	srv := newTestServer(t, WithMonitoredItemDeletion(DeleteImmediate))
	a := addTestVariable(t, srv.NamespaceManager(), ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
	session, _ := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	id := monitorValue(t, sub, a.NodeID(), 1)

	// hold the cycle lock as a publish cycle in flight would.
	sub.cycleMu.Lock()
	done := make(chan error, 1)
	go func() { done <- sub.DeleteMonitoredItem(id) }()
	select {
	case <-done:
		t.Fatal("delete returned during a publish cycle")
	case <-time.After(100 * time.Millisecond):
	}
	sub.cycleMu.Unlock()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("delete did not return after the publish cycle")
	}
}

func TestDeleteNextCycleDoesNotWait(t *testing.T) {
	srv := newTestServer(t, WithMonitoredItemDeletion(DeleteNextCycle))
	a := addTestVariable(t, srv.NamespaceManager(), ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
	session, _ := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	id := monitorValue(t, sub, a.NodeID(), 1)

	sub.cycleMu.Lock()
	defer sub.cycleMu.Unlock()
	done := make(chan error, 1)
	go func() { done <- sub.DeleteMonitoredItem(id) }()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("delete waited for the publish cycle")
	}
}

func TestDeleteNodeRetractsMonitoredItems(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	line := addTestFolder(t, nm, ua.ObjectIDObjectsFolder, "Line")
	a := addTestVariable(t, nm, line.NodeID(), "A", ua.NewVariantInt32(0))
	b := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "B", ua.NewVariantInt32(0))
	session, out := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	monitorValue(t, sub, a.NodeID(), 1)
	monitorValue(t, sub, b.NodeID(), 2)

	assert.NilError(t, nm.DeleteNode(line.NodeID()))
	items := sub.Items()
	assert.Equal(t, len(items), 1)
	assert.Equal(t, items[0].NodeID(), b.NodeID())

	sub.publishCycle(time.Now())
	msg := receive(t, out)
	assert.Equal(t, len(msg.MonitoredItems), 1)
	assert.Equal(t, msg.MonitoredItems[0].ClientHandle, uint32(2))
}

func TestDeleteNodeRejectsMonitoringWhileDeleting(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	v := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "V", ua.NewVariantInt32(0))
	session, _ := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	monitorValue(t, sub, v.NodeID(), 1)

	var created ua.MonitoredItemCreateResult
	retract := srv.SubscriptionManager().retractNodes
	nm.SetRetractor(func(ids []ua.NodeID) {
		retract(ids)
		created = sub.CreateMonitoredItem(monitorRequest(v.NodeID(), 7))
	})
	assert.NilError(t, nm.DeleteNode(v.NodeID()))

	assert.Equal(t, created.StatusCode, ua.BadNodeIDUnknown)
	_, ok := nm.FindNode(v.NodeID())
	assert.Assert(t, !ok)
	assert.Equal(t, len(sub.Items()), 0)
}

func TestDeleteNodeConcurrentWithMonitoring(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	session, _ := newTestSession(t, srv)
	sub, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)

	for i := 0; i < 50; i++ {
		v := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, fmt.Sprintf("V%d", i), ua.NewVariantInt32(0))
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub.CreateMonitoredItem(monitorRequest(v.NodeID(), uint32(i)))
		}()
		go func() {
			defer wg.Done()
			if err := nm.DeleteNode(v.NodeID()); err != nil {
				t.Error(err)
			}
		}()
		wg.Wait()
	}
	for _, mi := range sub.Items() {
		_, ok := nm.FindNode(mi.NodeID())
		assert.Assert(t, ok, "item %d monitors deleted node %s", mi.ID(), mi.NodeID())
	}
	assert.Equal(t, len(sub.Items()), 0)
}

func TestSessionsAreIndependent(t *testing.T) {
	srv := newTestServer(t)
	nm := srv.NamespaceManager()
	a := addTestVariable(t, nm, ua.ObjectIDObjectsFolder, "A", ua.NewVariantInt32(0))
	s1, out1 := newTestSession(t, srv)
	s2, out2 := newTestSession(t, srv)
	sub1, err := srv.SubscriptionManager().Create(s1, 60000, 0, 0)
	assert.NilError(t, err)
	sub2, err := srv.SubscriptionManager().Create(s2, 60000, 0, 0)
	assert.NilError(t, err)
	monitorValue(t, sub1, a.NodeID(), 1)
	monitorValue(t, sub2, a.NodeID(), 2)

	srv.SessionManager().Delete(s1)
	_, ok := srv.SubscriptionManager().Get(sub1.ID())
	assert.Assert(t, !ok)
	_, ok = srv.SubscriptionManager().Get(sub2.ID())
	assert.Assert(t, ok)
	assert.Equal(t, len(srv.SubscriptionManager().GetBySession(s2)), 1)

	assert.NilError(t, nm.WriteValue(a.NodeID(), ua.NewVariantInt32(5)))
	sub2.Items()[0].Poll()
	sub2.publishCycle(time.Now())
	msg := receive(t, out2)
	assert.Equal(t, msg.MonitoredItems[0].ClientHandle, uint32(2))
	assert.Equal(t, msg.MonitoredItems[len(msg.MonitoredItems)-1].Value.Value.Value(), int32(5))
	expectNone(t, out1)
}

func TestMaxSubscriptionCount(t *testing.T) {
	srv := newTestServer(t, WithMaxSubscriptionCount(1))
	session, _ := newTestSession(t, srv)
	_, err := srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.NilError(t, err)
	_, err = srv.SubscriptionManager().Create(session, 60000, 0, 0)
	assert.Equal(t, err, ua.BadTooManySubscriptions)
}
