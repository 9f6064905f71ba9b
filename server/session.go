// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is the server side of a client session. Notifications of the session's subscriptions
// are delivered on the channel the session was last activated on.
type Session struct {
	sync.RWMutex
	sessionID           ua.NodeID
	sessionName         string
	authenticationToken ua.NodeID
	timeout             time.Duration
	timeCreated         time.Time
	lastAccess          time.Time
	activated           bool
	userName            string
	channel             *serverChannel
	logger              zerolog.Logger
}

// NewSession constructs a new Session with random session id and authentication token.
func NewSession(sessionName string, timeout time.Duration, ch *serverChannel, logger zerolog.Logger) *Session {
	sessionID := ua.NewNodeIDString(1, uuid.NewString())
	now := time.Now()
	return &Session{
		sessionID:           sessionID,
		sessionName:         sessionName,
		authenticationToken: ua.NewNodeIDString(0, uuid.NewString()),
		timeout:             timeout,
		timeCreated:         now,
		lastAccess:          now,
		channel:             ch,
		logger:              logger.With().Str("session", sessionName).Str("sessionId", sessionID.String()).Logger(),
	}
}

// SessionID returns the public identifier of the session.
func (s *Session) SessionID() ua.NodeID {
	return s.sessionID
}

// SessionName returns the name given by the client.
func (s *Session) SessionName() string {
	return s.sessionName
}

// AuthenticationToken returns the secret token of the session.
func (s *Session) AuthenticationToken() ua.NodeID {
	return s.authenticationToken
}

// Timeout returns the revised session timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// UserName returns the name of the user, or empty for anonymous.
func (s *Session) UserName() string {
	s.RLock()
	defer s.RUnlock()
	return s.userName
}

// IsActivated returns true once ActivateSession succeeded.
func (s *Session) IsActivated() bool {
	s.RLock()
	defer s.RUnlock()
	return s.activated
}

// LastAccess returns the time of the last request of the session.
func (s *Session) LastAccess() time.Time {
	s.RLock()
	defer s.RUnlock()
	return s.lastAccess
}

// SetLastAccess sets the time of the last request of the session.
func (s *Session) SetLastAccess(value time.Time) {
	s.Lock()
	s.lastAccess = value
	s.Unlock()
}

// IsExpired returns true if the session was not used for longer than the timeout.
func (s *Session) IsExpired() bool {
	s.RLock()
	defer s.RUnlock()
	return time.Now().After(s.lastAccess.Add(s.timeout))
}

// activate binds the session to the channel.
func (s *Session) activate(ch *serverChannel, userName string) {
	s.Lock()
	s.activated = true
	s.userName = userName
	s.channel = ch
	s.lastAccess = time.Now()
	s.Unlock()
}

// detach unbinds the session from the channel, if bound to it.
func (s *Session) detach(ch *serverChannel) bool {
	s.Lock()
	defer s.Unlock()
	if s.channel != ch {
		return false
	}
	s.channel = nil
	return true
}

func (s *Session) boundTo(ch *serverChannel) bool {
	s.RLock()
	defer s.RUnlock()
	return s.channel == ch
}

func (s *Session) hasDeliveryPath() bool {
	s.RLock()
	defer s.RUnlock()
	return s.channel != nil && !s.channel.isClosed()
}

// deliver writes the notification to the channel of the session.
func (s *Session) deliver(msg *ua.NotificationMessage) error {
	s.RLock()
	ch := s.channel
	s.RUnlock()
	if ch == nil {
		return ua.BadNotConnected
	}
	return ch.Write(ua.MessageTypeNotification, 0, msg)
}

func (s *Session) delete() {
	s.Lock()
	defer s.Unlock()
	s.activated = false
	s.channel = nil
}
