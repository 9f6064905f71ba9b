// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"
)

// Scheduler shares one PollGroup per sampling interval.
type Scheduler struct {
	sync.Mutex
	closing             <-chan struct{}
	tickers             map[time.Duration]*PollGroup
	minSamplingInterval time.Duration
	maxSamplingInterval time.Duration
}

// NewScheduler instantiates a new Scheduler. Poll groups stop when closing is closed.
func NewScheduler(closing <-chan struct{}, minSamplingInterval time.Duration) *Scheduler {
	return &Scheduler{
		closing:             closing,
		tickers:             make(map[time.Duration]*PollGroup),
		minSamplingInterval: minSamplingInterval,
		maxSamplingInterval: maxSamplingInterval,
	}
}

// RevisedInterval returns the interval clamped to the supported range.
func (s *Scheduler) RevisedInterval(interval time.Duration) time.Duration {
	if interval < s.minSamplingInterval {
		return s.minSamplingInterval
	}
	if interval > s.maxSamplingInterval {
		return s.maxSamplingInterval
	}
	return interval
}

// GetPollGroup returns the PollGroup for the interval, starting it if needed.
func (s *Scheduler) GetPollGroup(interval time.Duration) *PollGroup {
	interval = s.RevisedInterval(interval)
	s.Lock()
	defer s.Unlock()
	if t, ok := s.tickers[interval]; ok {
		return t
	}
	t := NewPollGroup(interval, s.closing)
	s.tickers[interval] = t
	return t
}

// PollGroup calls Poll on every listener at each tick of its interval.
type PollGroup struct {
	sync.Mutex
	cancellationCh <-chan struct{}
	interval       time.Duration
	subs           map[PollListener]struct{}
}

// NewPollGroup starts a new PollGroup.
func NewPollGroup(interval time.Duration, cancellationCh <-chan struct{}) *PollGroup {
	b := &PollGroup{
		cancellationCh: cancellationCh,
		interval:       interval,
		subs:           map[PollListener]struct{}{},
	}
	go b.run()
	return b
}

// Interval returns the interval of the group.
func (b *PollGroup) Interval() time.Duration {
	return b.interval
}

func (b *PollGroup) run() {
	ticker := time.NewTicker(b.interval)
	for {
		select {
		case <-b.cancellationCh:
			ticker.Stop()
			b.Lock()
			for sub := range b.subs {
				delete(b.subs, sub)
			}
			b.Unlock()
			return
		case <-ticker.C:
			b.Lock()
			listeners := make([]PollListener, len(b.subs))
			i := 0
			for sub := range b.subs {
				listeners[i] = sub
				i++
			}
			b.Unlock()
			for _, listener := range listeners {
				listener.Poll()
			}
		}
	}
}

// Subscribe adds the listener to the group.
func (b *PollGroup) Subscribe(listener PollListener) {
	b.Lock()
	b.subs[listener] = struct{}{}
	b.Unlock()
}

// Unsubscribe removes the listener from the group.
func (b *PollGroup) Unsubscribe(listener PollListener) {
	b.Lock()
	delete(b.subs, listener)
	b.Unlock()
}

// Len returns the number of listeners.
func (b *PollGroup) Len() int {
	b.Lock()
	defer b.Unlock()
	return len(b.subs)
}

// PollListener is called at each tick of a PollGroup.
type PollListener interface {
	Poll()
}
