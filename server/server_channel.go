// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/rs/zerolog"
)

const (
	// the time allowed for the client to send the Hello message.
	helloTimeout = 10 * time.Second
	// the number of responses and notifications that may wait to be written to a channel.
	sendQueueSize = 256
)

var (
	channelID = uint32(0)
)

// outgoing is a message waiting in the send queue of a channel.
type outgoing struct {
	msgType       uint32
	requestHandle uint32
	body          interface{}
}

// serverChannel is the server end of a connection. One goroutine reads requests and one goroutine
// writes the send queue; responses and notifications may be queued from any goroutine.
type serverChannel struct {
	srv       *Server
	channelID uint32
	netConn   net.Conn
	conn      *ua.Conn
	sendQueue chan outgoing
	closed    chan struct{}
	closeOnce sync.Once
	logger    zerolog.Logger
}

func newServerChannel(srv *Server, conn net.Conn) *serverChannel {
	id := atomic.AddUint32(&channelID, 1)
	ch := &serverChannel{
		srv:       srv,
		channelID: id,
		netConn:   conn,
		conn:      ua.NewConn(conn, srv.maxMessageSize),
		sendQueue: make(chan outgoing, sendQueueSize),
		closed:    make(chan struct{}),
		logger:    srv.logger.With().Uint32("channel", id).Str("remote", conn.RemoteAddr().String()).Logger(),
	}
	ch.conn.SetWriteTimeout(srv.writeTimeout)
	go ch.sendWorker()
	return ch
}

// ChannelID returns the identifier of the channel.
func (ch *serverChannel) ChannelID() uint32 {
	return ch.channelID
}

// Open receives the Hello message and sends the Acknowledge.
func (ch *serverChannel) Open() error {
	ch.netConn.SetReadDeadline(time.Now().Add(helloTimeout))
	msgType, _, body, err := ch.conn.ReadMessage()
	ch.netConn.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}
	hello, ok := body.(*ua.Hello)
	if msgType != ua.MessageTypeHello || !ok {
		return ua.BadTcpMessageTypeInvalid
	}
	if hello.ProtocolVersion < ua.ProtocolVersion {
		return ua.BadProtocolVersionUnsupported
	}
	maxMessageSize := ch.srv.maxMessageSize
	if hello.MaxMessageSize > 0 && hello.MaxMessageSize < maxMessageSize {
		maxMessageSize = hello.MaxMessageSize
	}
	ch.conn.SetMaxMessageSize(maxMessageSize)
	ack := &ua.Acknowledge{ProtocolVersion: ua.ProtocolVersion, MaxMessageSize: maxMessageSize}
	if err := ch.conn.WriteMessage(ua.MessageTypeAck, 0, ack); err != nil {
		return err
	}
	ch.logger.Debug().Str("endpoint", hello.EndpointURL).Msg("Channel opened.")
	return nil
}

// Write queues a framed message and returns without waiting for the peer. A peer that does not
// keep up with its send queue has its channel closed.
func (ch *serverChannel) Write(msgType uint32, requestHandle uint32, body interface{}) error {
	if ch.isClosed() {
		return ua.BadConnectionClosed
	}
	select {
	case ch.sendQueue <- outgoing{msgType, requestHandle, body}:
		return nil
	case <-ch.closed:
		return ua.BadConnectionClosed
	default:
		ch.logger.Warn().Int("queued", sendQueueSize).Msg("Send queue is full. Closing channel.")
		ch.srv.metrics.droppedChannels.Inc()
		ch.Close()
		return ua.BadResourceUnavailable
	}
}

// sendWorker writes the send queue in order until the channel is closed. A write that fails or
// exceeds the write timeout closes the channel.
func (ch *serverChannel) sendWorker() {
	for {
		select {
		case <-ch.closed:
			return
		case m := <-ch.sendQueue:
			err := ch.conn.WriteMessage(m.msgType, m.requestHandle, m.body)
			switch err {
			case nil:
			case ua.BadEncodingLimitsExceeded, ua.BadEncodingError:
				ch.logger.Debug().Err(err).Msg("Error encoding message.")
			default:
				if !ch.isClosed() {
					ch.logger.Warn().Err(err).Msg("Error writing message. Closing channel.")
					if err == ua.BadTimeout {
						ch.srv.metrics.droppedChannels.Inc()
					}
					ch.Close()
				}
				return
			}
		}
	}
}

// Close the channel. Sessions bound to the channel are detached.
func (ch *serverChannel) Close() error {
	ch.closeOnce.Do(func() {
		close(ch.closed)
		ch.conn.Close()
		ch.srv.channelManager.Delete(ch)
		ch.srv.sessionManager.detachChannel(ch)
		ch.logger.Debug().Msg("Channel closed.")
	})
	return nil
}

// Abort sends an error message, then closes the channel.
func (ch *serverChannel) Abort(reason ua.StatusCode, message string) error {
	if !ch.isClosed() {
		ch.conn.WriteMessage(ua.MessageTypeError, 0, &ua.ErrorMessage{Error: reason, Reason: message})
	}
	return ch.Close()
}

func (ch *serverChannel) isClosed() bool {
	select {
	case <-ch.closed:
		return true
	default:
		return false
	}
}

// requestWorker receives service requests until the channel is closed.
func (ch *serverChannel) requestWorker() {
	for {
		msgType, requestHandle, body, err := ch.conn.ReadMessage()
		if err != nil {
			if !ch.isClosed() {
				if code, ok := err.(ua.StatusCode); ok {
					ch.Abort(code, code.Error())
					return
				}
				ch.logger.Debug().Err(err).Msg("Error receiving request.")
			}
			ch.Close()
			return
		}
		switch msgType {
		case ua.MessageTypeFinal:
			req, ok := body.(ua.ServiceRequest)
			if !ok {
				ch.Write(ua.MessageTypeFinal, requestHandle, &ua.ServiceFault{
					ResponseHeader: ua.ResponseHeader{
						Timestamp:     time.Now(),
						RequestHandle: requestHandle,
						ServiceResult: ua.BadServiceUnsupported,
					},
				})
				continue
			}
			ch.srv.workerpool.Submit(func() {
				ch.srv.handleRequest(ch, requestHandle, req)
			})
		case ua.MessageTypeCloseFinal:
			ch.Close()
			return
		default:
			ch.Abort(ua.BadTcpMessageTypeInvalid, "")
			return
		}
	}
}
