// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/gammazero/deque"
)

const (
	maxQueueSize        = 1024
	maxSamplingInterval = 60 * time.Second
)

var (
	monitoredItemID = uint32(0)
)

// MonitoredItem samples the value of one variable for a subscription.
type MonitoredItem struct {
	sync.Mutex
	id                  uint32
	sub                 *Subscription
	nm                  *NamespaceManager
	itemToMonitor       ua.ReadValueID
	clientHandle        uint32
	samplingInterval    time.Duration
	queueSize           uint32
	discardOldest       bool
	filter              ua.DataChangeFilter
	queue               *deque.Deque[ua.DataValue]
	previousQueuedValue ua.DataValue
	sampled             bool
	pollGroup           *PollGroup
}

// NewMonitoredItem constructs a new MonitoredItem. The sampling interval and queue size are revised
// to the supported range.
func NewMonitoredItem(sub *Subscription, nm *NamespaceManager, scheduler *Scheduler, itemToMonitor ua.ReadValueID, parameters ua.MonitoringParameters) *MonitoredItem {
	interval := time.Duration(parameters.SamplingInterval * float64(time.Millisecond))
	if parameters.SamplingInterval < 0 {
		interval = time.Duration(sub.PublishingInterval() * float64(time.Millisecond))
	}
	queueSize := parameters.QueueSize
	if queueSize == 0 {
		queueSize = 1
	}
	if queueSize > maxQueueSize {
		queueSize = maxQueueSize
	}
	mi := &MonitoredItem{
		id:            atomic.AddUint32(&monitoredItemID, 1),
		sub:           sub,
		nm:            nm,
		itemToMonitor: itemToMonitor,
		clientHandle:  parameters.ClientHandle,
		queueSize:     queueSize,
		discardOldest: parameters.DiscardOldest,
		filter:        parameters.Filter,
		queue:         deque.New[ua.DataValue](),
		pollGroup:     scheduler.GetPollGroup(interval),
	}
	mi.samplingInterval = mi.pollGroup.Interval()
	return mi
}

// ID returns the identifier of the item.
func (mi *MonitoredItem) ID() uint32 {
	return mi.id
}

// ClientHandle returns the handle assigned by the client.
func (mi *MonitoredItem) ClientHandle() uint32 {
	return mi.clientHandle
}

// NodeID returns the id of the monitored node.
func (mi *MonitoredItem) NodeID() ua.NodeID {
	return mi.itemToMonitor.NodeID
}

// SamplingInterval returns the revised sampling interval in milliseconds.
func (mi *MonitoredItem) SamplingInterval() float64 {
	return float64(mi.samplingInterval) / float64(time.Millisecond)
}

// QueueSize returns the revised queue size.
func (mi *MonitoredItem) QueueSize() uint32 {
	return mi.queueSize
}

func (mi *MonitoredItem) startMonitoring() {
	mi.pollGroup.Subscribe(mi)
}

func (mi *MonitoredItem) stopMonitoring() {
	mi.pollGroup.Unsubscribe(mi)
}

// Poll reads the value of the itemToMonitor. A failed read is no change.
func (mi *MonitoredItem) Poll() {
	v, err := mi.nm.ReadValue(context.Background(), mi.itemToMonitor.NodeID)
	if err != nil {
		return
	}
	if v.ServerTimestamp.IsZero() {
		v.ServerTimestamp = time.Now()
	}
	mi.Lock()
	defer mi.Unlock()
	if mi.sampled && !isDataChange(mi.filter, v, mi.previousQueuedValue) {
		return
	}
	mi.enqueue(v)
	mi.previousQueuedValue = v
	mi.sampled = true
}

func (mi *MonitoredItem) enqueue(v ua.DataValue) {
	if mi.discardOldest {
		for mi.queue.Len() >= int(mi.queueSize) {
			mi.queue.PopFront() // discard oldest
		}
		mi.queue.PushBack(v)
		return
	}
	if mi.queue.Len() >= int(mi.queueSize) {
		mi.queue.PopBack() // discard newest
	}
	mi.queue.PushBack(v)
}

// notifications drains the queue.
func (mi *MonitoredItem) notifications() []ua.MonitoredItemNotification {
	mi.Lock()
	defer mi.Unlock()
	if mi.queue.Len() == 0 {
		return nil
	}
	notifications := make([]ua.MonitoredItemNotification, 0, mi.queue.Len())
	for mi.queue.Len() > 0 {
		notifications = append(notifications, ua.MonitoredItemNotification{
			ClientHandle: mi.clientHandle,
			NodeID:       mi.itemToMonitor.NodeID,
			Value:        mi.queue.PopFront(),
		})
	}
	return notifications
}

// isDataChange returns true if the current value passes the filter, compared to the previous value.
func isDataChange(dcf ua.DataChangeFilter, current, previous ua.DataValue) bool {
	if current.StatusCode&0xFFFFF000 != previous.StatusCode&0xFFFFF000 {
		return true
	}
	switch dcf.Trigger {
	case ua.DataChangeTriggerStatus:
		return false
	case ua.DataChangeTriggerStatusValueTimestamp:
		if !current.SourceTimestamp.Equal(previous.SourceTimestamp) {
			return true
		}
	}
	if dcf.DeadbandType == ua.DeadbandTypeAbsolute {
		return !deadbandEqualAbsolute(current.Value, previous.Value, dcf.DeadbandValue)
	}
	return !current.Value.Equal(previous.Value)
}

// deadbandEqualAbsolute returns true if the values differ by no more than the deadband.
// Values that are not numeric are compared exactly.
func deadbandEqualAbsolute(current, previous ua.Variant, deadband float64) bool {
	if current.Type() != previous.Type() {
		return false
	}
	c, ok1 := current.Float64()
	p, ok2 := previous.Float64()
	if !ok1 || !ok2 {
		return current.Equal(previous)
	}
	return math.Abs(c-p) <= deadband
}
