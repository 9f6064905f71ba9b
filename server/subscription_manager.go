// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"

	"github.com/awcullen/uacore/ua"
)

// SubscriptionManager manages the subscriptions for a server.
type SubscriptionManager struct {
	sync.RWMutex
	namespaceManager     *NamespaceManager
	scheduler            *Scheduler
	metrics              *Metrics
	deletionPolicy       DeletionPolicy
	maxSubscriptionCount uint32
	subscriptionsByID    map[uint32]*Subscription
}

// NewSubscriptionManager instantiates a new SubscriptionManager.
// It retracts the monitored items of nodes deleted from the namespace.
func NewSubscriptionManager(nm *NamespaceManager, scheduler *Scheduler, metrics *Metrics, deletionPolicy DeletionPolicy, maxSubscriptionCount uint32) *SubscriptionManager {
	m := &SubscriptionManager{
		namespaceManager:     nm,
		scheduler:            scheduler,
		metrics:              metrics,
		deletionPolicy:       deletionPolicy,
		maxSubscriptionCount: maxSubscriptionCount,
		subscriptionsByID:    make(map[uint32]*Subscription),
	}
	nm.SetRetractor(m.retractNodes)
	return m
}

// DeletionPolicy returns the policy for deleting monitored items.
func (m *SubscriptionManager) DeletionPolicy() DeletionPolicy {
	return m.deletionPolicy
}

// Get a subscription from the server.
func (m *SubscriptionManager) Get(id uint32) (*Subscription, bool) {
	m.RLock()
	defer m.RUnlock()
	if s, ok := m.subscriptionsByID[id]; ok {
		return s, ok
	}
	return nil, false
}

// Create adds a new subscription for the session and starts publishing.
func (m *SubscriptionManager) Create(session *Session, publishingInterval float64, lifetimeCount uint32, maxKeepAliveCount uint32) (*Subscription, error) {
	s := NewSubscription(m, session, publishingInterval, lifetimeCount, maxKeepAliveCount)
	if err := m.Add(s); err != nil {
		return nil, err
	}
	s.startPublishing()
	return s, nil
}

// Add a subscription to the server.
func (m *SubscriptionManager) Add(s *Subscription) error {
	m.Lock()
	defer m.Unlock()
	if m.maxSubscriptionCount > 0 && len(m.subscriptionsByID) >= int(m.maxSubscriptionCount) {
		return ua.BadTooManySubscriptions
	}
	m.subscriptionsByID[s.id] = s
	m.metrics.subscriptions.Set(float64(len(m.subscriptionsByID)))
	return nil
}

// Delete the subscription from the server.
func (m *SubscriptionManager) Delete(s *Subscription) {
	m.Lock()
	delete(m.subscriptionsByID, s.id)
	m.metrics.subscriptions.Set(float64(len(m.subscriptionsByID)))
	m.Unlock()
	s.Delete()
}

// DeleteBySession deletes the subscriptions of the session.
func (m *SubscriptionManager) DeleteBySession(session *Session) {
	for _, s := range m.GetBySession(session) {
		m.Delete(s)
	}
}

// Len returns the number of subscriptions.
func (m *SubscriptionManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.subscriptionsByID)
}

// GetBySession returns subscriptions for the session.
func (m *SubscriptionManager) GetBySession(session *Session) []*Subscription {
	m.RLock()
	defer m.RUnlock()
	subs := make([]*Subscription, 0, 4)
	for _, sub := range m.subscriptionsByID {
		if sub.session == session {
			subs = append(subs, sub)
		}
	}
	return subs
}

// retractNodes removes the monitored items of the nodes from every subscription.
func (m *SubscriptionManager) retractNodes(ids []ua.NodeID) {
	set := make(map[ua.NodeID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	m.RLock()
	subs := make([]*Subscription, 0, len(m.subscriptionsByID))
	for _, sub := range m.subscriptionsByID {
		subs = append(subs, sub)
	}
	m.RUnlock()
	for _, sub := range subs {
		sub.retractNodes(set)
	}
}

// closeAll stops publishing of every subscription.
func (m *SubscriptionManager) closeAll() {
	m.RLock()
	defer m.RUnlock()
	for _, s := range m.subscriptionsByID {
		s.stopPublishing()
	}
}
