// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"github.com/pkg/errors"
)

// ErrorKind groups status codes into the failures a caller can act upon.
type ErrorKind int

// ErrorKinds
const (
	KindUnknown ErrorKind = iota
	KindUnreachable
	KindHandshakeRejected
	KindSessionClosed
	KindTimeout
	KindNodeNotFound
	KindNotWritable
	KindTypeMismatch
	KindNotMonitorable
	KindArgumentTypeMismatch
	KindHandlerFailed
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "Unreachable"
	case KindHandshakeRejected:
		return "HandshakeRejected"
	case KindSessionClosed:
		return "SessionClosed"
	case KindTimeout:
		return "Timeout"
	case KindNodeNotFound:
		return "NodeNotFound"
	case KindNotWritable:
		return "NotWritable"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindNotMonitorable:
		return "NotMonitorable"
	case KindArgumentTypeMismatch:
		return "ArgumentTypeMismatch"
	case KindHandlerFailed:
		return "HandlerFailed"
	default:
		return "Unknown"
	}
}

// Kind returns the ErrorKind of the StatusCode.
func (c StatusCode) Kind() ErrorKind {
	switch c {
	case BadServerNotConnected, BadCommunicationError, BadConnectionRejected, BadNotConnected:
		return KindUnreachable
	case BadProtocolVersionUnsupported, BadIdentityTokenInvalid, BadIdentityTokenRejected, BadUserAccessDenied, BadTooManySessions:
		return KindHandshakeRejected
	case BadSessionClosed, BadSessionIDInvalid, BadSessionNotActivated, BadConnectionClosed, BadDisconnect, BadShutdown, BadServerHalted:
		return KindSessionClosed
	case BadTimeout, BadRequestTimeout:
		return KindTimeout
	case BadNodeIDUnknown, BadNodeIDInvalid, BadMethodInvalid:
		return KindNodeNotFound
	case BadNotWritable:
		return KindNotWritable
	case BadTypeMismatch:
		return KindTypeMismatch
	case BadAttributeIDInvalid, BadNotReadable:
		return KindNotMonitorable
	case BadArgumentsMissing, BadTooManyArguments, BadInvalidArgument:
		return KindArgumentTypeMismatch
	case BadInternalError:
		return KindHandlerFailed
	default:
		return KindUnknown
	}
}

// KindOf returns the ErrorKind of err. Wrapped status codes are unwrapped first.
func KindOf(err error) ErrorKind {
	var code StatusCode
	if errors.As(err, &code) {
		return code.Kind()
	}
	return KindUnknown
}

// IsTransient returns true if the request that produced err may succeed when retried unchanged.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUnreachable:
		return true
	default:
		return false
	}
}

// IsTimeout returns true if err is a timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsSessionClosed returns true if err reports a session that is no longer active.
func IsSessionClosed(err error) bool {
	return KindOf(err) == KindSessionClosed
}

// StatusCodeOf returns the StatusCode carried by err. A nil err is Good; an err without a
// StatusCode is BadUnexpectedError.
func StatusCodeOf(err error) StatusCode {
	if err == nil {
		return Good
	}
	var code StatusCode
	if errors.As(err, &code) {
		return code
	}
	return BadUnexpectedError
}
