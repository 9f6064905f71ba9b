// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
)

const (
	// notificationBacklog is the number of notification messages buffered per subscription.
	notificationBacklog = 256
)

// NotificationHandler is called with each notification message that reports changed values.
// Handlers of one subscription are called in order from a single goroutine.
type NotificationHandler func(msg *ua.NotificationMessage)

// Subscription receives the notifications of its monitored items.
type Subscription struct {
	client             *Client
	id                 uint32
	publishingInterval float64
	lifetimeCount      uint32
	maxKeepAliveCount  uint32
	onNotify           NotificationHandler
	notifyCh           chan *ua.NotificationMessage
	done               chan struct{}
	doneOnce           sync.Once
	mu                 sync.Mutex
	err                error
	dropped            atomic.Uint64
}

// CreateSubscription creates a subscription that publishes every publishingInterval milliseconds.
func (ch *Client) CreateSubscription(ctx context.Context, publishingInterval float64, lifetimeCount uint32, maxKeepAliveCount uint32, onNotify NotificationHandler) (*Subscription, error) {
	res, err := ch.createSubscription(ctx, &ua.CreateSubscriptionRequest{
		RequestedPublishingInterval: publishingInterval,
		RequestedLifetimeCount:      lifetimeCount,
		RequestedMaxKeepAliveCount:  maxKeepAliveCount,
	})
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		client:             ch,
		id:                 res.SubscriptionID,
		publishingInterval: res.RevisedPublishingInterval,
		lifetimeCount:      res.RevisedLifetimeCount,
		maxKeepAliveCount:  res.RevisedMaxKeepAliveCount,
		onNotify:           onNotify,
		notifyCh:           make(chan *ua.NotificationMessage, notificationBacklog),
		done:               make(chan struct{}),
	}
	ch.Lock()
	ch.subscriptions[s.id] = s
	ch.Unlock()
	go s.dispatch()
	return s, nil
}

// ID returns the identifier assigned by the server.
func (s *Subscription) ID() uint32 {
	return s.id
}

// PublishingInterval returns the revised publishing interval in milliseconds.
func (s *Subscription) PublishingInterval() float64 {
	return s.publishingInterval
}

// LifetimeCount returns the revised lifetime count.
func (s *Subscription) LifetimeCount() uint32 {
	return s.lifetimeCount
}

// MaxKeepAliveCount returns the revised max keep-alive count.
func (s *Subscription) MaxKeepAliveCount() uint32 {
	return s.maxKeepAliveCount
}

// Done returns a channel that is closed when the subscription is deleted, expires, or the
// session is lost.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the subscription ended. It is nil while the subscription is
// running and after Delete.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of notification messages discarded because the handler did not keep up.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// CreateMonitoredItems adds monitored items to the subscription. Each result carries its own status code.
func (s *Subscription) CreateMonitoredItems(ctx context.Context, items ...ua.MonitoredItemCreateRequest) ([]ua.MonitoredItemCreateResult, error) {
	res, err := s.client.createMonitoredItems(ctx, &ua.CreateMonitoredItemsRequest{
		SubscriptionID: s.id,
		ItemsToCreate:  items,
	})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// DeleteMonitoredItems removes monitored items from the subscription.
func (s *Subscription) DeleteMonitoredItems(ctx context.Context, ids ...uint32) ([]ua.StatusCode, error) {
	res, err := s.client.deleteMonitoredItems(ctx, &ua.DeleteMonitoredItemsRequest{
		SubscriptionID:   s.id,
		MonitoredItemIDs: ids,
	})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Delete deletes the subscription on the server.
func (s *Subscription) Delete(ctx context.Context) error {
	res, err := s.client.deleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{
		SubscriptionIDs: []uint32{s.id},
	})
	s.expire(nil)
	if err != nil {
		return err
	}
	if len(res.Results) == 1 && res.Results[0].IsBad() {
		return res.Results[0]
	}
	return nil
}

// deliver queues the notification for the dispatch goroutine without blocking the caller.
// When the backlog is full the message is discarded; a status change ends the subscription.
func (s *Subscription) deliver(msg *ua.NotificationMessage) {
	select {
	case s.notifyCh <- msg:
		return
	case <-s.done:
		return
	default:
	}
	if msg.Status.IsBad() {
		s.expire(errors.Wrap(msg.Status, "subscription ended by server"))
		return
	}
	n := s.dropped.Add(1)
	s.client.logger.Warn().Uint32("subscription", s.id).Uint32("seq", msg.SequenceNumber).Uint64("dropped", n).Msg("Notification backlog is full. Dropped notification.")
}

func (s *Subscription) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.notifyCh:
			if msg.Status.IsBad() {
				s.expire(errors.Wrap(msg.Status, "subscription ended by server"))
				return
			}
			if msg.IsKeepAlive() {
				continue
			}
			if s.onNotify != nil {
				s.onNotify(msg)
			}
		}
	}
}

// expire ends the subscription with the reason.
func (s *Subscription) expire(reason error) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.err = reason
		s.mu.Unlock()
		s.client.Lock()
		delete(s.client.subscriptions, s.id)
		s.client.Unlock()
		close(s.done)
	})
}
