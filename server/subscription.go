// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/rs/zerolog"
)

const (
	defaultLifetimeCount     uint32 = 60
	defaultMaxKeepAliveCount uint32 = 10
)

var (
	subscriptionID = uint32(0)
)

// DeletionPolicy decides whether deleting a monitored item waits for a publish cycle in flight.
type DeletionPolicy int

const (
	// DeleteImmediate waits for a publish cycle in flight. No cycle that ends after the delete
	// returns includes the item.
	DeleteImmediate DeletionPolicy = iota
	// DeleteNextCycle returns at once. A publish cycle in flight may deliver the item one more time.
	DeleteNextCycle
)

// String returns enumeration value as string.
func (p DeletionPolicy) String() string {
	switch p {
	case DeleteImmediate:
		return "immediate"
	case DeleteNextCycle:
		return "next-cycle"
	default:
		return "unknown"
	}
}

// Subscription batches the notifications of its monitored items, once per publishing interval.
// The embedded lock guards the items; cycleMu is held for the length of a publish cycle.
type Subscription struct {
	sync.RWMutex
	cycleMu            sync.Mutex
	manager            *SubscriptionManager
	id                 uint32
	session            *Session
	publishingInterval time.Duration
	lifetimeCount      uint32
	maxKeepAliveCount  uint32
	lifetimeCounter    uint32
	keepAliveCounter   uint32
	seqNum             uint32
	items              []*MonitoredItem
	itemsByID          map[uint32]*MonitoredItem
	stopCh             chan struct{}
	stopOnce           sync.Once
	logger             zerolog.Logger
}

// NewSubscription constructs a new Subscription. The publishing interval is revised to be no
// less than the minimum sampling interval, and the lifetime count to be at least three times
// the keep-alive count.
func NewSubscription(manager *SubscriptionManager, session *Session, publishingInterval float64, lifetimeCount uint32, maxKeepAliveCount uint32) *Subscription {
	interval := manager.scheduler.RevisedInterval(time.Duration(publishingInterval * float64(time.Millisecond)))
	if maxKeepAliveCount == 0 {
		maxKeepAliveCount = defaultMaxKeepAliveCount
	}
	if lifetimeCount == 0 {
		lifetimeCount = defaultLifetimeCount
	}
	if lifetimeCount < 3*maxKeepAliveCount {
		lifetimeCount = 3 * maxKeepAliveCount
	}
	id := atomic.AddUint32(&subscriptionID, 1)
	return &Subscription{
		manager:            manager,
		id:                 id,
		session:            session,
		publishingInterval: interval,
		lifetimeCount:      lifetimeCount,
		maxKeepAliveCount:  maxKeepAliveCount,
		lifetimeCounter:    lifetimeCount,
		itemsByID:          make(map[uint32]*MonitoredItem),
		stopCh:             make(chan struct{}),
		logger:             session.logger.With().Uint32("subscription", id).Logger(),
	}
}

// ID returns the identifier of the subscription.
func (s *Subscription) ID() uint32 {
	return s.id
}

// Session returns the session that owns the subscription.
func (s *Subscription) Session() *Session {
	return s.session
}

// PublishingInterval returns the revised publishing interval in milliseconds.
func (s *Subscription) PublishingInterval() float64 {
	return float64(s.publishingInterval) / float64(time.Millisecond)
}

// LifetimeCount returns the revised lifetime count.
func (s *Subscription) LifetimeCount() uint32 {
	return s.lifetimeCount
}

// MaxKeepAliveCount returns the revised keep-alive count.
func (s *Subscription) MaxKeepAliveCount() uint32 {
	return s.maxKeepAliveCount
}

// Items returns the monitored items in the order they were created.
func (s *Subscription) Items() []*MonitoredItem {
	s.RLock()
	defer s.RUnlock()
	return append([]*MonitoredItem(nil), s.items...)
}

// CreateMonitoredItem adds an item monitoring the value of a variable.
func (s *Subscription) CreateMonitoredItem(req ua.MonitoredItemCreateRequest) ua.MonitoredItemCreateResult {
	if req.ItemToMonitor.AttributeID != ua.AttributeIDValue {
		if _, ok := s.manager.namespaceManager.FindNode(req.ItemToMonitor.NodeID); !ok {
			return ua.MonitoredItemCreateResult{StatusCode: ua.BadNodeIDUnknown}
		}
		return ua.MonitoredItemCreateResult{StatusCode: ua.BadAttributeIDInvalid}
	}
	nm := s.manager.namespaceManager
	var mi *MonitoredItem
	// the item is registered before a delete of the node can retract it.
	err := nm.monitorVariable(req.ItemToMonitor.NodeID, func(v *VariableNode) {
		mi = NewMonitoredItem(s, nm, s.manager.scheduler, req.ItemToMonitor, req.RequestedParameters)
		s.Lock()
		s.items = append(s.items, mi)
		s.itemsByID[mi.id] = mi
		s.Unlock()
		mi.startMonitoring()
		s.manager.metrics.monitoredItems.Inc()
	})
	if err != nil {
		return ua.MonitoredItemCreateResult{StatusCode: err.(ua.StatusCode)}
	}
	mi.Poll()
	return ua.MonitoredItemCreateResult{
		StatusCode:              ua.Good,
		MonitoredItemID:         mi.id,
		RevisedSamplingInterval: mi.SamplingInterval(),
		RevisedQueueSize:        mi.QueueSize(),
	}
}

// DeleteMonitoredItem removes the item. See DeletionPolicy for when the removal takes effect.
func (s *Subscription) DeleteMonitoredItem(id uint32) error {
	if s.manager.deletionPolicy == DeleteImmediate {
		s.cycleMu.Lock()
		defer s.cycleMu.Unlock()
	}
	s.Lock()
	mi, ok := s.itemsByID[id]
	if !ok {
		s.Unlock()
		return ua.BadMonitoredItemIDInvalid
	}
	s.removeItem(mi)
	s.Unlock()
	mi.stopMonitoring()
	s.manager.metrics.monitoredItems.Dec()
	return nil
}

// retractNodes removes the items that monitor any of the nodes.
func (s *Subscription) retractNodes(ids map[ua.NodeID]struct{}) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.Lock()
	retracted := []*MonitoredItem{}
	for _, mi := range s.items {
		if _, ok := ids[mi.NodeID()]; ok {
			retracted = append(retracted, mi)
		}
	}
	for _, mi := range retracted {
		s.removeItem(mi)
	}
	s.Unlock()
	for _, mi := range retracted {
		mi.stopMonitoring()
		s.manager.metrics.monitoredItems.Dec()
		s.logger.Debug().Uint32("item", mi.id).Str("node", mi.NodeID().String()).Msg("Retracted monitored item of deleted node.")
	}
}

// removeItem must be called with the lock held.
func (s *Subscription) removeItem(mi *MonitoredItem) {
	delete(s.itemsByID, mi.id)
	for i, e := range s.items {
		if e == mi {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			break
		}
	}
}

func (s *Subscription) startPublishing() {
	go func() {
		ticker := time.NewTicker(s.publishingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case tn := <-ticker.C:
				if expired := s.publishCycle(tn); expired {
					s.logger.Info().Msg("Subscription expired.")
					s.session.deliver(&ua.NotificationMessage{
						SubscriptionID: s.id,
						PublishTime:    time.Now(),
						Status:         ua.BadTimeout,
					})
					s.manager.Delete(s)
					return
				}
			}
		}
	}()
}

func (s *Subscription) stopPublishing() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Delete stops publishing and stops monitoring all items.
func (s *Subscription) Delete() {
	s.stopPublishing()
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.Lock()
	items := s.items
	s.items = nil
	s.itemsByID = make(map[uint32]*MonitoredItem)
	s.Unlock()
	for _, mi := range items {
		mi.stopMonitoring()
		s.manager.metrics.monitoredItems.Dec()
	}
}

// publishCycle drains the queues of the items, in the order the items were created, into one
// notification message. When there is nothing to report a keep-alive is sent every
// maxKeepAliveCount cycles. Returns true when the lifetime counter reaches zero.
func (s *Subscription) publishCycle(tn time.Time) (expired bool) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if !s.session.hasDeliveryPath() {
		return s.missedPublish()
	}

	items := s.Items()
	notifications := []ua.MonitoredItemNotification{}
	for _, mi := range items {
		notifications = append(notifications, mi.notifications()...)
	}

	if len(notifications) > 0 {
		s.seqNum++
		msg := &ua.NotificationMessage{
			SubscriptionID: s.id,
			SequenceNumber: s.seqNum,
			PublishTime:    tn,
			Status:         ua.Good,
			MonitoredItems: notifications,
		}
		if err := s.session.deliver(msg); err != nil {
			s.logger.Debug().Err(err).Msg("Error delivering notification.")
			return s.missedPublish()
		}
		s.manager.metrics.notifications.Add(float64(len(notifications)))
		s.keepAliveCounter = 0
		s.lifetimeCounter = s.lifetimeCount
		return false
	}

	s.keepAliveCounter++
	if s.keepAliveCounter < s.maxKeepAliveCount {
		return false
	}
	msg := &ua.NotificationMessage{
		SubscriptionID: s.id,
		SequenceNumber: s.seqNum + 1,
		PublishTime:    tn,
		Status:         ua.Good,
	}
	if err := s.session.deliver(msg); err != nil {
		s.logger.Debug().Err(err).Msg("Error delivering keep-alive.")
		return s.missedPublish()
	}
	s.keepAliveCounter = 0
	s.lifetimeCounter = s.lifetimeCount
	return false
}

// missedPublish decrements the lifetime counter and returns true when it reaches zero.
func (s *Subscription) missedPublish() bool {
	if s.lifetimeCounter > 0 {
		s.lifetimeCounter--
	}
	return s.lifetimeCounter == 0
}
