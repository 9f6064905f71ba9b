// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// defaultSessionTimeout is the default number of milliseconds the server keeps an unused session. (2 min)
	defaultSessionTimeout float64 = 120000
	// defaultKeepAliveInterval is the default time between keep-alive requests.
	defaultKeepAliveInterval = 5 * time.Second
	// missedKeepAliveLimit is the number of intervals without a message before the session is lost.
	missedKeepAliveLimit = 2
)

// State of the client session.
type State int32

// States
const (
	StateDisconnected State = iota
	StateHandshaking
	StateActive
	StateClosing
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "Handshaking"
	case StateActive:
		return "Active"
	case StateClosing:
		return "Closing"
	default:
		return "Disconnected"
	}
}

// Client for exchanging binary encoded requests and responses with an OPC UA server.
type Client struct {
	sync.RWMutex
	endpointURL       string
	applicationName   string
	sessionName       string
	sessionTimeout    float64
	userIdentity      ua.UserIdentityToken
	timeoutHint       uint32
	connectTimeout    int64
	keepAliveInterval time.Duration
	maxMessageSize    uint32
	logger            zerolog.Logger
	channel           *clientChannel
	state             State
	err               error
	sessionID         ua.NodeID
	subscriptions     map[uint32]*Subscription
	done              chan struct{}
	doneOnce          sync.Once
}

// Dial returns a client connected to an OPC UA server with an active session. Dial fails with
// BadServerNotConnected when the server cannot be reached, and with the status code of the server
// when the handshake or the activation of the session is refused.
func Dial(ctx context.Context, endpointURL string, opts ...Option) (c *Client, err error) {
	ch := &Client{
		endpointURL:       endpointURL,
		applicationName:   "uacore-client",
		sessionName:       "uacore-session",
		sessionTimeout:    defaultSessionTimeout,
		timeoutHint:       defaultTimeoutHint,
		connectTimeout:    defaultConnectTimeout,
		keepAliveInterval: defaultKeepAliveInterval,
		maxMessageSize:    ua.DefaultMaxMessageSize,
		logger:            zerolog.Nop(),
		subscriptions:     make(map[uint32]*Subscription),
		done:              make(chan struct{}),
	}

	// apply each option to the default
	for _, opt := range opts {
		if err := opt(ch); err != nil {
			return nil, err
		}
	}

	ch.logger = ch.logger.With().Str("endpoint", endpointURL).Logger()
	ch.channel = newClientChannel(
		endpointURL,
		ch.timeoutHint,
		ch.connectTimeout,
		ch.maxMessageSize,
		ch.logger,
	)
	ch.channel.onNotification = ch.dispatchNotification
	ch.channel.onFailure = ch.fail

	ch.setState(StateHandshaking)
	if err := ch.open(ctx); err != nil {
		ch.channel.abort(err)
		ch.setState(StateDisconnected)
		ch.doneOnce.Do(func() { close(ch.done) })
		return nil, err
	}
	ch.setState(StateActive)
	go ch.keepAlive()
	return ch, nil
}

// open opens the channel, then creates and activates the session.
func (ch *Client) open(ctx context.Context) error {
	if err := ch.channel.Open(ctx); err != nil {
		return err
	}

	createSessionResponse, err := ch.createSession(ctx, &ua.CreateSessionRequest{
		SessionName:             ch.sessionName,
		ClientDescription:       ch.applicationName,
		RequestedSessionTimeout: ch.sessionTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "error creating session")
	}
	ch.Lock()
	ch.sessionID = createSessionResponse.SessionID
	ch.Unlock()
	ch.channel.setAuthenticationToken(createSessionResponse.AuthenticationToken)

	if _, err := ch.activateSession(ctx, &ua.ActivateSessionRequest{UserIdentityToken: ch.userIdentity}); err != nil {
		return errors.Wrap(err, "error activating session")
	}
	ch.logger.Debug().Str("session", createSessionResponse.SessionID.String()).Msg("Session activated.")
	return nil
}

// EndpointURL gets the EndpointURL of the server.
func (ch *Client) EndpointURL() string {
	return ch.endpointURL
}

// SessionID gets the id of the current session.
func (ch *Client) SessionID() ua.NodeID {
	ch.RLock()
	defer ch.RUnlock()
	return ch.sessionID
}

// State returns the state of the session.
func (ch *Client) State() State {
	ch.RLock()
	defer ch.RUnlock()
	return ch.state
}

// Err returns the reason the session was lost, or nil.
func (ch *Client) Err() error {
	ch.RLock()
	defer ch.RUnlock()
	return ch.err
}

// Done returns a channel that is closed when the client is disconnected.
func (ch *Client) Done() <-chan struct{} {
	return ch.done
}

func (ch *Client) setState(value State) {
	ch.Lock()
	prev := ch.state
	ch.state = value
	ch.Unlock()
	if prev != value {
		ch.logger.Debug().Stringer("from", prev).Stringer("to", value).Msg("Client state changed.")
	}
}

// request sends the request if the session is active.
func (ch *Client) request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	if ch.State() != StateActive {
		return nil, ua.BadSessionClosed
	}
	return ch.channel.Request(ctx, req)
}

// keepAlive reads the server state every interval. When no message at all is received
// from the server for missedKeepAliveLimit intervals the session is lost.
func (ch *Client) keepAlive() {
	ticker := time.NewTicker(ch.keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			if time.Since(ch.channel.LastReceived()) >= missedKeepAliveLimit*ch.keepAliveInterval {
				ch.logger.Warn().Dur("interval", ch.keepAliveInterval).Msg("Keep-alive missed. Disconnecting.")
				ch.fail(errors.Wrap(ua.BadSessionClosed, "keep-alive missed"))
				return
			}
			go ch.sendKeepAlive()
		}
	}
}

func (ch *Client) sendKeepAlive() {
	timeout := ch.keepAliveInterval
	hint := uint32(timeout / time.Millisecond)
	if hint == 0 {
		hint = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req := &ua.ReadRequest{
		RequestHeader: ua.RequestHeader{TimeoutHint: hint},
		NodesToRead: []ua.ReadValueID{
			{NodeID: ua.VariableIDServerServerStatusState, AttributeID: ua.AttributeIDValue},
		},
	}
	if _, err := ch.request(ctx, req); err != nil {
		ch.logger.Debug().Err(err).Msg("Keep-alive request failed.")
	}
}

// fail moves the client to Disconnected. Requests in flight fail with BadSessionClosed and
// subscriptions are invalidated.
func (ch *Client) fail(reason error) {
	ch.Lock()
	if ch.state == StateDisconnected {
		ch.Unlock()
		return
	}
	ch.err = reason
	ch.Unlock()
	ch.channel.abort(reason)
	ch.disconnect(reason)
}

func (ch *Client) disconnect(reason error) {
	ch.setState(StateDisconnected)
	ch.doneOnce.Do(func() { close(ch.done) })
	ch.Lock()
	subs := make([]*Subscription, 0, len(ch.subscriptions))
	for _, s := range ch.subscriptions {
		subs = append(subs, s)
	}
	ch.Unlock()
	for _, s := range subs {
		s.expire(reason)
	}
}

// Close closes the session and the channel. Close may be called more than once.
func (ch *Client) Close(ctx context.Context) error {
	ch.Lock()
	if ch.state == StateDisconnected || ch.state == StateClosing {
		ch.Unlock()
		return nil
	}
	ch.state = StateClosing
	ch.Unlock()
	ch.logger.Debug().Stringer("from", StateActive).Stringer("to", StateClosing).Msg("Client state changed.")

	if _, err := ch.closeSession(ctx, &ua.CloseSessionRequest{DeleteSubscriptions: true}); err != nil {
		ch.logger.Debug().Err(err).Msg("Error closing session.")
	}
	ch.channel.Close()
	ch.disconnect(ua.BadSessionClosed)
	return nil
}

// Abort closes the channel without closing the session.
func (ch *Client) Abort(ctx context.Context) error {
	ch.Lock()
	if ch.state == StateDisconnected {
		ch.Unlock()
		return nil
	}
	ch.Unlock()
	ch.channel.abort(ua.BadSessionClosed)
	ch.disconnect(ua.BadSessionClosed)
	return nil
}

// dispatchNotification passes the notification to its subscription.
func (ch *Client) dispatchNotification(msg *ua.NotificationMessage) {
	ch.RLock()
	s, ok := ch.subscriptions[msg.SubscriptionID]
	ch.RUnlock()
	if !ok {
		ch.logger.Debug().Uint32("subscription", msg.SubscriptionID).Msg("Notification for unknown subscription.")
		return
	}
	s.deliver(msg)
}
