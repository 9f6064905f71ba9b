// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/djherbis/buffer"
)

// MessageTypes indicate the kind of message.
const (
	MessageTypeHello        uint32 = 'H' | 'E'<<8 | 'L'<<16 | 'F'<<24
	MessageTypeAck          uint32 = 'A' | 'C'<<8 | 'K'<<16 | 'F'<<24
	MessageTypeError        uint32 = 'E' | 'R'<<8 | 'R'<<16 | 'F'<<24
	MessageTypeFinal        uint32 = 'M' | 'S'<<8 | 'G'<<16 | 'F'<<24
	MessageTypeNotification uint32 = 'N' | 'T'<<8 | 'F'<<16 | 'F'<<24
	MessageTypeCloseFinal   uint32 = 'C' | 'L'<<8 | 'O'<<16 | 'F'<<24
)

const (
	// ProtocolVersion is the version of the protocol spoken by this package.
	ProtocolVersion uint32 = 1
	// DefaultBufferSize is the size of the pooled send buffers.
	DefaultBufferSize = 64 * 1024
	// DefaultMaxMessageSize is the largest frame accepted unless negotiated otherwise.
	DefaultMaxMessageSize uint32 = 16 * 1024 * 1024
	// frame header: message type, length, request handle.
	headerSize = 12
)

// bytesPool is a pool of byte slices
var bytesPool = sync.Pool{New: func() interface{} { s := make([]byte, DefaultBufferSize); return &s }}

// bufferPool is a pool of capacity buffers
var bufferPool = buffer.NewMemPoolAt(int64(DefaultBufferSize))

// Hello is the first message sent by a client.
type Hello struct {
	ProtocolVersion uint32
	MaxMessageSize  uint32
	EndpointURL     string
}

// Acknowledge is the server reply to an accepted Hello.
type Acknowledge struct {
	ProtocolVersion uint32
	MaxMessageSize  uint32
}

// ErrorMessage is sent before a connection is closed because of an error.
type ErrorMessage struct {
	Error  StatusCode
	Reason string
}

// Conn is a connection that sends and receives framed messages.
// A frame is a header of message type, total length and request handle, followed by the body.
// Writes are safe for concurrent use; reads must come from a single goroutine.
type Conn struct {
	wmu            sync.Mutex
	conn           net.Conn
	maxMessageSize atomic.Uint32
	writeTimeout   atomic.Int64
}

// NewConn returns a Conn that frames messages on the network connection.
func NewConn(conn net.Conn, maxMessageSize uint32) *Conn {
	if maxMessageSize == 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	c := &Conn{conn: conn}
	c.maxMessageSize.Store(maxMessageSize)
	return c
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the network connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// SetMaxMessageSize sets the largest frame that may be sent or received.
func (c *Conn) SetMaxMessageSize(size uint32) {
	if size > 0 {
		c.maxMessageSize.Store(size)
	}
}

// SetWriteTimeout sets the time allowed to write one frame. Zero means no limit.
func (c *Conn) SetWriteTimeout(d time.Duration) {
	c.writeTimeout.Store(int64(d))
}

// WriteMessage encodes the body and writes one frame. A frame that is not written within
// the write timeout fails with BadTimeout and leaves the connection unusable.
// Service structures are sent with their binary encoding id.
func (c *Conn) WriteMessage(msgType uint32, requestHandle uint32, body interface{}) error {
	bodyStream := buffer.NewPartitionAt(bufferPool)
	defer bodyStream.Reset()

	enc := NewBinaryEncoder(bodyStream)
	switch msgType {
	case MessageTypeFinal, MessageTypeNotification:
		if err := enc.WriteStructure(body); err != nil {
			return err
		}
	case MessageTypeCloseFinal:
	default:
		if err := enc.Encode(body); err != nil {
			return err
		}
	}

	length := int64(headerSize) + bodyStream.Len()
	if length > int64(c.maxMessageSize.Load()) {
		return BadEncodingLimitsExceeded
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if d := time.Duration(c.writeTimeout.Load()); d > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(d))
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	sendBuffer := *(bytesPool.Get().(*[]byte))
	defer bytesPool.Put(&sendBuffer)

	binary.LittleEndian.PutUint32(sendBuffer[0:4], msgType)
	binary.LittleEndian.PutUint32(sendBuffer[4:8], uint32(length))
	binary.LittleEndian.PutUint32(sendBuffer[8:12], requestHandle)
	n := headerSize
	for {
		m, err := bodyStream.Read(sendBuffer[n:])
		n += m
		if n == len(sendBuffer) || err == io.EOF {
			if _, err := c.conn.Write(sendBuffer[:n]); err != nil {
				return writeError(err)
			}
			n = 0
		}
		if err == io.EOF || bodyStream.Len() == 0 {
			break
		}
		if err != nil {
			return BadEncodingError
		}
	}
	if n > 0 {
		if _, err := c.conn.Write(sendBuffer[:n]); err != nil {
			return writeError(err)
		}
	}
	return nil
}

func writeError(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return BadTimeout
	}
	return BadCommunicationError
}

// ReadMessage reads one frame and decodes the body. The body is a *Hello, *Acknowledge,
// *ErrorMessage, a pointer to a service structure, or nil for a close message.
func (c *Conn) ReadMessage() (msgType uint32, requestHandle uint32, body interface{}, err error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.conn, hdr[:]); err != nil {
		return 0, 0, nil, err
	}
	msgType = binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])
	requestHandle = binary.LittleEndian.Uint32(hdr[8:12])

	if length < headerSize || length > c.maxMessageSize.Load() {
		return msgType, requestHandle, nil, BadTcpMessageTooLarge
	}

	var bs []byte
	if n := int(length - headerSize); n <= DefaultBufferSize {
		buf := bytesPool.Get().(*[]byte)
		defer bytesPool.Put(buf)
		bs = (*buf)[:n]
	} else {
		bs = make([]byte, n)
	}
	if _, err := io.ReadFull(c.conn, bs); err != nil {
		return msgType, requestHandle, nil, err
	}

	dec := NewBinaryDecoder(bytes.NewReader(bs))
	switch msgType {
	case MessageTypeHello:
		v := &Hello{}
		err = dec.Decode(v)
		body = v
	case MessageTypeAck:
		v := &Acknowledge{}
		err = dec.Decode(v)
		body = v
	case MessageTypeError:
		v := &ErrorMessage{}
		err = dec.Decode(v)
		body = v
	case MessageTypeFinal, MessageTypeNotification:
		body, err = dec.ReadStructure()
	case MessageTypeCloseFinal:
	default:
		err = BadTcpMessageTypeInvalid
	}
	return msgType, requestHandle, body, err
}
