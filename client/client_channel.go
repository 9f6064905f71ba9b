// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"math"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// defaultTimeoutHint is the default number of milliseconds before a request is cancelled. (15 sec)
	defaultTimeoutHint uint32 = 15000
	// defaultConnectTimeout sets the number of milliseconds to wait for a connection response. (5 sec)
	defaultConnectTimeout int64 = 5000
)

// clientChannel is the client end of a connection. Requests are matched to responses by request handle.
type clientChannel struct {
	sync.Mutex
	endpointURL         string
	timeoutHint         uint32
	connectTimeout      int64
	maxMessageSize      uint32
	conn                *ua.Conn
	pending             map[uint32]chan ua.ServiceResponse
	requestHandle       uint32
	authenticationToken ua.NodeID
	closed              chan struct{}
	closeOnce           sync.Once
	lastReceived        atomic.Int64
	onNotification      func(*ua.NotificationMessage)
	onFailure           func(error)
	logger              zerolog.Logger
}

func newClientChannel(endpointURL string, timeoutHint uint32, connectTimeout int64, maxMessageSize uint32, logger zerolog.Logger) *clientChannel {
	return &clientChannel{
		endpointURL:    endpointURL,
		timeoutHint:    timeoutHint,
		connectTimeout: connectTimeout,
		maxMessageSize: maxMessageSize,
		pending:        make(map[uint32]chan ua.ServiceResponse),
		closed:         make(chan struct{}),
		logger:         logger,
	}
}

// Open dials the server and exchanges the Hello and Acknowledge messages.
func (ch *clientChannel) Open(ctx context.Context) error {
	addr, err := hostPort(ch.endpointURL)
	if err != nil {
		return err
	}
	dialer := net.Dialer{Timeout: time.Duration(ch.connectTimeout) * time.Millisecond}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(ua.BadServerNotConnected, "dial %s: %s", addr, err)
	}
	conn := ua.NewConn(netConn, ch.maxMessageSize)

	hello := &ua.Hello{
		ProtocolVersion: ua.ProtocolVersion,
		MaxMessageSize:  ch.maxMessageSize,
		EndpointURL:     ch.endpointURL,
	}
	if err := conn.WriteMessage(ua.MessageTypeHello, 0, hello); err != nil {
		conn.Close()
		return errors.Wrap(err, "error sending hello")
	}

	netConn.SetReadDeadline(time.Now().Add(time.Duration(ch.connectTimeout) * time.Millisecond))
	msgType, _, body, err := conn.ReadMessage()
	netConn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return errors.Wrap(ua.BadTimeout, "waiting for acknowledge")
		}
		return errors.Wrapf(ua.BadCommunicationError, "waiting for acknowledge: %s", err)
	}
	switch msg := body.(type) {
	case *ua.Acknowledge:
		if msgType != ua.MessageTypeAck {
			conn.Close()
			return ua.BadTcpMessageTypeInvalid
		}
		if msg.ProtocolVersion < ua.ProtocolVersion {
			conn.Close()
			return ua.BadProtocolVersionUnsupported
		}
		conn.SetMaxMessageSize(msg.MaxMessageSize)
	case *ua.ErrorMessage:
		conn.Close()
		return errors.Wrapf(msg.Error, "server rejected hello: %s", msg.Reason)
	default:
		conn.Close()
		return ua.BadTcpMessageTypeInvalid
	}

	ch.conn = conn
	ch.lastReceived.Store(time.Now().UnixNano())
	go ch.responseWorker()
	return nil
}

// Request sends a service request to the server and returns the response. The request fails
// with BadTimeout when the TimeoutHint (or the context deadline) passes first, and with
// BadSessionClosed when the channel closes first. Requests are never retried.
func (ch *clientChannel) Request(ctx context.Context, req ua.ServiceRequest) (ua.ServiceResponse, error) {
	if ch.isClosed() {
		return nil, ua.BadSessionClosed
	}
	header := req.Header()
	header.Timestamp = time.Now()
	if header.TimeoutHint == 0 {
		header.TimeoutHint = ch.timeoutHint
	}

	ch.Lock()
	header.RequestHandle = ch.getNextRequestHandle()
	header.AuthenticationToken = ch.authenticationToken
	respCh := make(chan ua.ServiceResponse, 1)
	ch.pending[header.RequestHandle] = respCh
	ch.Unlock()

	defer func() {
		ch.Lock()
		delete(ch.pending, header.RequestHandle)
		ch.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(header.TimeoutHint)*time.Millisecond)
	defer cancel()

	if err := ch.conn.WriteMessage(ua.MessageTypeFinal, header.RequestHandle, req); err != nil {
		if ch.isClosed() {
			return nil, ua.BadSessionClosed
		}
		return nil, errors.Wrap(err, "error sending request")
	}

	select {
	case res := <-respCh:
		if code := res.Header().ServiceResult; code.IsBad() {
			return nil, code
		}
		return res, nil
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			return nil, ua.BadRequestCancelledByClient
		}
		return nil, ua.BadTimeout
	case <-ch.closed:
		return nil, ua.BadSessionClosed
	}
}

// setAuthenticationToken sets the token sent with every later request.
func (ch *clientChannel) setAuthenticationToken(token ua.NodeID) {
	ch.Lock()
	ch.authenticationToken = token
	ch.Unlock()
}

// getNextRequestHandle gets next RequestHandle in sequence, skipping zero.
func (ch *clientChannel) getNextRequestHandle() uint32 {
	if ch.requestHandle == math.MaxUint32 {
		ch.requestHandle = 0
	}
	ch.requestHandle++
	return ch.requestHandle
}

// LastReceived returns the time the last message was received from the server.
func (ch *clientChannel) LastReceived() time.Time {
	return time.Unix(0, ch.lastReceived.Load())
}

// Close sends a close message, then closes the connection.
func (ch *clientChannel) Close() error {
	if !ch.isClosed() {
		ch.conn.WriteMessage(ua.MessageTypeCloseFinal, 0, nil)
	}
	ch.abort(ua.BadSessionClosed)
	return nil
}

// abort closes the connection. Requests in flight fail with BadSessionClosed.
func (ch *clientChannel) abort(reason error) {
	ch.closeOnce.Do(func() {
		close(ch.closed)
		if ch.conn != nil {
			ch.conn.Close()
		}
		ch.logger.Debug().Err(reason).Msg("Channel closed.")
	})
}

func (ch *clientChannel) isClosed() bool {
	select {
	case <-ch.closed:
		return true
	default:
		return false
	}
}

// responseWorker receives responses and notifications until the channel is closed.
func (ch *clientChannel) responseWorker() {
	for {
		msgType, requestHandle, body, err := ch.conn.ReadMessage()
		if err != nil {
			if !ch.isClosed() {
				ch.fail(errors.Wrapf(ua.BadSessionClosed, "error receiving: %s", err))
			}
			return
		}
		ch.lastReceived.Store(time.Now().UnixNano())
		switch msgType {
		case ua.MessageTypeFinal:
			res, ok := body.(ua.ServiceResponse)
			if !ok {
				ch.logger.Debug().Uint32("handle", requestHandle).Msg("Error decoding response.")
				continue
			}
			ch.handleResponse(requestHandle, res)
		case ua.MessageTypeNotification:
			if msg, ok := body.(*ua.NotificationMessage); ok && ch.onNotification != nil {
				ch.onNotification(msg)
			}
		case ua.MessageTypeError:
			reason := ua.BadSessionClosed
			if msg, ok := body.(*ua.ErrorMessage); ok {
				ch.logger.Debug().Err(msg.Error).Str("reason", msg.Reason).Msg("Server sent error.")
			}
			ch.fail(reason)
			return
		case ua.MessageTypeCloseFinal:
			ch.fail(ua.BadSessionClosed)
			return
		}
	}
}

// handleResponse delivers the response to the waiting request, at most once. Responses
// for requests that are no longer waiting are dropped.
func (ch *clientChannel) handleResponse(requestHandle uint32, res ua.ServiceResponse) {
	ch.Lock()
	respCh, ok := ch.pending[requestHandle]
	if ok {
		delete(ch.pending, requestHandle)
	}
	ch.Unlock()
	if !ok {
		ch.logger.Debug().Uint32("handle", requestHandle).Msg("Dropped late response.")
		return
	}
	respCh <- res
}

func (ch *clientChannel) fail(reason error) {
	if ch.isClosed() {
		return
	}
	ch.abort(reason)
	if ch.onFailure != nil {
		ch.onFailure(reason)
	}
}

// hostPort returns the host:port of an endpoint url of the form opc.tcp://host:port[/path].
func hostPort(endpointURL string) (string, error) {
	u, err := url.Parse(endpointURL)
	if err != nil || u.Scheme != "opc.tcp" || u.Hostname() == "" || u.Port() == "" {
		return "", errors.Wrapf(ua.BadTcpEndpointURLInvalid, "endpoint %q", endpointURL)
	}
	return u.Host, nil
}
