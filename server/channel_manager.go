// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
)

// ChannelManager manages the channels for a server.
type ChannelManager struct {
	sync.RWMutex
	channelsByID map[uint32]*serverChannel
}

// NewChannelManager instantiates a new ChannelManager. Channels are closed when closed is closed.
func NewChannelManager(closed <-chan struct{}) *ChannelManager {
	m := &ChannelManager{channelsByID: make(map[uint32]*serverChannel)}
	go func(m *ChannelManager) {
		<-closed
		m.closeChannels()
	}(m)
	return m
}

// Add a channel to the server.
func (m *ChannelManager) Add(ch *serverChannel) {
	m.Lock()
	defer m.Unlock()
	m.channelsByID[ch.channelID] = ch
}

// Delete the channel from the server.
func (m *ChannelManager) Delete(ch *serverChannel) {
	m.Lock()
	defer m.Unlock()
	delete(m.channelsByID, ch.channelID)
}

// Len returns the number of channels.
func (m *ChannelManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.channelsByID)
}

func (m *ChannelManager) closeChannels() {
	m.RLock()
	channels := make([]*serverChannel, 0, len(m.channelsByID))
	for _, ch := range m.channelsByID {
		channels = append(channels, ch)
	}
	m.RUnlock()
	for _, ch := range channels {
		ch.Close()
	}
}
