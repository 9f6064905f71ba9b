// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/rs/zerolog"
)

const (
	// the period of the check for expired sessions.
	sessionCheckInterval = 5 * time.Second
)

// SessionManager manages the sessions for a server.
type SessionManager struct {
	sync.RWMutex
	sessionsByToken     map[ua.NodeID]*Session
	maxSessionCount     uint32
	subscriptionManager *SubscriptionManager
	metrics             *Metrics
	logger              zerolog.Logger
}

// NewSessionManager instantiates a new SessionManager. Expired sessions are closed until closing is closed.
func NewSessionManager(closing <-chan struct{}, maxSessionCount uint32, subscriptionManager *SubscriptionManager, metrics *Metrics, logger zerolog.Logger) *SessionManager {
	m := &SessionManager{
		sessionsByToken:     make(map[ua.NodeID]*Session),
		maxSessionCount:     maxSessionCount,
		subscriptionManager: subscriptionManager,
		metrics:             metrics,
		logger:              logger,
	}
	go func(m *SessionManager) {
		ticker := time.NewTicker(sessionCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkForExpiredSessions()
			case <-closing:
				return
			}
		}
	}(m)
	return m
}

// Get a session from the server by authenticationToken.
func (m *SessionManager) Get(authenticationToken ua.NodeID) (*Session, bool) {
	m.RLock()
	defer m.RUnlock()
	s, ok := m.sessionsByToken[authenticationToken]
	if !ok {
		return nil, false
	}
	s.SetLastAccess(time.Now())
	return s, ok
}

// Add a session to the server.
func (m *SessionManager) Add(s *Session) error {
	m.Lock()
	defer m.Unlock()
	if m.maxSessionCount > 0 && len(m.sessionsByToken) >= int(m.maxSessionCount) {
		return ua.BadTooManySessions
	}
	m.sessionsByToken[s.authenticationToken] = s
	m.metrics.sessions.Set(float64(len(m.sessionsByToken)))
	return nil
}

// Delete the session from the server. The subscriptions of the session are deleted too.
func (m *SessionManager) Delete(s *Session) {
	m.Lock()
	delete(m.sessionsByToken, s.authenticationToken)
	m.metrics.sessions.Set(float64(len(m.sessionsByToken)))
	m.Unlock()
	m.subscriptionManager.DeleteBySession(s)
	s.delete()
}

// Len returns the number of sessions.
func (m *SessionManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.sessionsByToken)
}

// detachChannel unbinds the sessions of a closed channel. They remain until they expire or
// are activated on another channel.
func (m *SessionManager) detachChannel(ch *serverChannel) {
	m.RLock()
	defer m.RUnlock()
	for _, s := range m.sessionsByToken {
		if s.detach(ch) {
			s.logger.Debug().Msg("Session detached from closed channel.")
		}
	}
}

func (m *SessionManager) checkForExpiredSessions() {
	expired := []*Session{}
	m.Lock()
	for k, s := range m.sessionsByToken {
		if s.IsExpired() {
			delete(m.sessionsByToken, k)
			expired = append(expired, s)
		}
	}
	m.metrics.sessions.Set(float64(len(m.sessionsByToken)))
	m.Unlock()
	for _, s := range expired {
		s.logger.Info().Msg("Session expired.")
		m.subscriptionManager.DeleteBySession(s)
		s.delete()
	}
}
