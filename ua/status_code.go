// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

// StatusCode is the result of a service or operation.
type StatusCode uint32

const (
	// Good means the operation completed successfully.
	Good StatusCode = 0x00000000
	// GoodNoData means no data exists for the requested time range or event filter.
	GoodNoData StatusCode = 0x00A50000
	// BadUnexpectedError means an unexpected error occurred.
	BadUnexpectedError StatusCode = 0x80010000
	// BadInternalError means an internal error occurred as a result of a programming or configuration error.
	BadInternalError StatusCode = 0x80020000
	// BadOutOfMemory means not enough memory to complete the operation.
	BadOutOfMemory StatusCode = 0x80030000
	// BadResourceUnavailable means an operating system resource is not available.
	BadResourceUnavailable StatusCode = 0x80040000
	// BadCommunicationError means a low level communication error occurred.
	BadCommunicationError StatusCode = 0x80050000
	// BadEncodingError means encoding halted because of invalid data in the objects being serialized.
	BadEncodingError StatusCode = 0x80060000
	// BadDecodingError means decoding halted because of invalid data in the stream.
	BadDecodingError StatusCode = 0x80070000
	// BadEncodingLimitsExceeded means the message encoding/decoding limits imposed by the stack have been exceeded.
	BadEncodingLimitsExceeded StatusCode = 0x80080000
	// BadTimeout means the operation timed out.
	BadTimeout StatusCode = 0x800A0000
	// BadServiceUnsupported means the server does not support the requested service.
	BadServiceUnsupported StatusCode = 0x800B0000
	// BadShutdown means the operation was cancelled because the application is shutting down.
	BadShutdown StatusCode = 0x800C0000
	// BadServerNotConnected means the operation could not complete because the client is not connected to the server.
	BadServerNotConnected StatusCode = 0x800D0000
	// BadServerHalted means the server has stopped and cannot process any requests.
	BadServerHalted StatusCode = 0x800E0000
	// BadNothingToDo means there was nothing to do because the client passed a list of operations with no elements.
	BadNothingToDo StatusCode = 0x800F0000
	// BadTooManyOperations means the request could not be processed because it specified too many operations.
	BadTooManyOperations StatusCode = 0x80100000
	// BadUserAccessDenied means user does not have permission to perform the requested operation.
	BadUserAccessDenied StatusCode = 0x801F0000
	// BadIdentityTokenInvalid means the user identity token is not valid.
	BadIdentityTokenInvalid StatusCode = 0x80200000
	// BadIdentityTokenRejected means the user identity token is valid but the server has rejected it.
	BadIdentityTokenRejected StatusCode = 0x80210000
	// BadSessionIDInvalid means the session id is not valid.
	BadSessionIDInvalid StatusCode = 0x80250000
	// BadSessionClosed means the session was closed by the client.
	BadSessionClosed StatusCode = 0x80260000
	// BadSessionNotActivated means the session cannot be used because ActivateSession has not been called.
	BadSessionNotActivated StatusCode = 0x80270000
	// BadSubscriptionIDInvalid means the subscription id is not valid.
	BadSubscriptionIDInvalid StatusCode = 0x80280000
	// BadRequestHeaderInvalid means the header for the request is missing or invalid.
	BadRequestHeaderInvalid StatusCode = 0x802A0000
	// BadNodeIDInvalid means the syntax of the node id is not valid.
	BadNodeIDInvalid StatusCode = 0x80330000
	// BadNodeIDUnknown means the node id refers to a node that does not exist in the server address space.
	BadNodeIDUnknown StatusCode = 0x80340000
	// BadAttributeIDInvalid means the attribute is not supported for the specified Node.
	BadAttributeIDInvalid StatusCode = 0x80350000
	// BadNotReadable means the access level does not allow reading or subscribing to the Node.
	BadNotReadable StatusCode = 0x803A0000
	// BadNotWritable means the access level does not allow writing to the Node.
	BadNotWritable StatusCode = 0x803B0000
	// BadMonitoredItemIDInvalid means the monitoring item id does not refer to a valid monitored item.
	BadMonitoredItemIDInvalid StatusCode = 0x80420000
	// BadMonitoredItemFilterInvalid means the monitored item filter parameter is not valid.
	BadMonitoredItemFilterInvalid StatusCode = 0x80430000
	// BadNodeIDExists means the requested node id is already used by another node.
	BadNodeIDExists StatusCode = 0x805E0000
	// BadParentNodeIDInvalid means the parent node id does not to refer to a valid node.
	BadParentNodeIDInvalid StatusCode = 0x805B0000
	// BadTooManySubscriptions means the server has reached its maximum number of subscriptions.
	BadTooManySubscriptions StatusCode = 0x80770000
	// BadTypeMismatch means the value supplied for the attribute is not of the same type as the attribute's value.
	BadTypeMismatch StatusCode = 0x80740000
	// BadMethodInvalid means the method id does not refer to a method for the specified object.
	BadMethodInvalid StatusCode = 0x80750000
	// BadArgumentsMissing means the client did not specify all of the input arguments for the method.
	BadArgumentsMissing StatusCode = 0x80760000
	// BadTooManySessions means the server has reached its maximum number of sessions.
	BadTooManySessions StatusCode = 0x80560000
	// BadRequestTimeout means the request took too long to process.
	BadRequestTimeout StatusCode = 0x80850000
	// BadRequestCancelledByClient means the request was cancelled by the client.
	BadRequestCancelledByClient StatusCode = 0x802C0000
	// BadNotConnected means the variable should receive its value from another variable, but has never been configured to do so.
	BadNotConnected StatusCode = 0x808A0000
	// BadInvalidArgument means one or more arguments are invalid.
	BadInvalidArgument StatusCode = 0x80AB0000
	// BadConnectionRejected means could not establish a network connection to remote server.
	BadConnectionRejected StatusCode = 0x80AC0000
	// BadDisconnect means the server has disconnected from the client.
	BadDisconnect StatusCode = 0x80AD0000
	// BadConnectionClosed means the network connection has been closed.
	BadConnectionClosed StatusCode = 0x80AE0000
	// BadInvalidState means the operation cannot be completed because the object is closed, uninitialized or in some other invalid state.
	BadInvalidState StatusCode = 0x80AF0000
	// BadProtocolVersionUnsupported means the applications do not have compatible protocol versions.
	BadProtocolVersionUnsupported StatusCode = 0x80BE0000
	// BadTcpMessageTypeInvalid means the type of the message specified in the header invalid.
	BadTcpMessageTypeInvalid StatusCode = 0x807E0000
	// BadTcpEndpointURLInvalid means the server does not recognize the endpoint url specified.
	BadTcpEndpointURLInvalid StatusCode = 0x80830000
	// BadTcpMessageTooLarge means the size of the message chunk specified in the header is too large.
	BadTcpMessageTooLarge StatusCode = 0x80800000
	// BadTooManyArguments means too many arguments were provided.
	BadTooManyArguments StatusCode = 0x80E50000
)

// Error returns the StatusCode message.
func (c StatusCode) Error() string {
	switch c {
	case Good:
		return "The operation completed successfully."
	case GoodNoData:
		return "No data exists for the requested time range or event filter."
	case BadUnexpectedError:
		return "An unexpected error occurred."
	case BadInternalError:
		return "An internal error occurred as a result of a programming or configuration error."
	case BadOutOfMemory:
		return "Not enough memory to complete the operation."
	case BadResourceUnavailable:
		return "An operating system resource is not available."
	case BadCommunicationError:
		return "A low level communication error occurred."
	case BadEncodingError:
		return "Encoding halted because of invalid data in the objects being serialized."
	case BadDecodingError:
		return "Decoding halted because of invalid data in the stream."
	case BadEncodingLimitsExceeded:
		return "The message encoding/decoding limits imposed by the stack have been exceeded."
	case BadTimeout:
		return "The operation timed out."
	case BadServiceUnsupported:
		return "The server does not support the requested service."
	case BadShutdown:
		return "The operation was cancelled because the application is shutting down."
	case BadServerNotConnected:
		return "The operation could not complete because the client is not connected to the server."
	case BadServerHalted:
		return "The server has stopped and cannot process any requests."
	case BadNothingToDo:
		return "There was nothing to do because the client passed a list of operations with no elements."
	case BadTooManyOperations:
		return "The request could not be processed because it specified too many operations."
	case BadUserAccessDenied:
		return "User does not have permission to perform the requested operation."
	case BadIdentityTokenInvalid:
		return "The user identity token is not valid."
	case BadIdentityTokenRejected:
		return "The user identity token is valid but the server has rejected it."
	case BadSessionIDInvalid:
		return "The session id is not valid."
	case BadSessionClosed:
		return "The session was closed by the client."
	case BadSessionNotActivated:
		return "The session cannot be used because ActivateSession has not been called."
	case BadSubscriptionIDInvalid:
		return "The subscription id is not valid."
	case BadRequestHeaderInvalid:
		return "The header for the request is missing or invalid."
	case BadNodeIDInvalid:
		return "The syntax of the node id is not valid."
	case BadNodeIDUnknown:
		return "The node id refers to a node that does not exist in the server address space."
	case BadAttributeIDInvalid:
		return "The attribute is not supported for the specified Node."
	case BadNotReadable:
		return "The access level does not allow reading or subscribing to the Node."
	case BadNotWritable:
		return "The access level does not allow writing to the Node."
	case BadMonitoredItemIDInvalid:
		return "The monitoring item id does not refer to a valid monitored item."
	case BadMonitoredItemFilterInvalid:
		return "The monitored item filter parameter is not valid."
	case BadNodeIDExists:
		return "The requested node id is already used by another node."
	case BadParentNodeIDInvalid:
		return "The parent node id does not to refer to a valid node."
	case BadTooManySubscriptions:
		return "The server has reached its maximum number of subscriptions."
	case BadTypeMismatch:
		return "The value supplied for the attribute is not of the same type as the attribute's value."
	case BadMethodInvalid:
		return "The method id does not refer to a method for the specified object."
	case BadArgumentsMissing:
		return "The client did not specify all of the input arguments for the method."
	case BadTooManySessions:
		return "The server has reached its maximum number of sessions."
	case BadRequestTimeout:
		return "The request took too long to process."
	case BadNotConnected:
		return "The variable should receive its value from another variable, but has never been configured to do so."
	case BadInvalidArgument:
		return "One or more arguments are invalid."
	case BadConnectionRejected:
		return "Could not establish a network connection to remote server."
	case BadDisconnect:
		return "The server has disconnected from the client."
	case BadConnectionClosed:
		return "The network connection has been closed."
	case BadInvalidState:
		return "The operation cannot be completed because the object is closed, uninitialized or in some other invalid state."
	case BadProtocolVersionUnsupported:
		return "The applications do not have compatible protocol versions."
	case BadTcpMessageTypeInvalid:
		return "The type of the message specified in the header invalid."
	case BadTcpEndpointURLInvalid:
		return "The server does not recognize the endpoint url specified."
	case BadRequestCancelledByClient:
		return "The request was cancelled by the client."
	case BadTcpMessageTooLarge:
		return "The size of the message chunk specified in the header is too large."
	case BadTooManyArguments:
		return "Too many arguments were provided."
	default:
		return "An unknown error occurred."
	}
}

// IsGood returns true if the StatusCode is good.
func (c StatusCode) IsGood() bool {
	return (uint32(c) & SeverityMask) == SeverityGood
}

// IsBad returns true if the StatusCode is bad.
func (c StatusCode) IsBad() bool {
	return (uint32(c) & SeverityMask) == SeverityBad
}

// IsUncertain returns true if the StatusCode is uncertain.
func (c StatusCode) IsUncertain() bool {
	return (uint32(c) & SeverityMask) == SeverityUncertain
}

const (
	// SeverityMask selects the severity bits.
	SeverityMask uint32 = 0xC0000000
	// SeverityGood is the severity of good results.
	SeverityGood uint32 = 0x00000000
	// SeverityUncertain is the severity of uncertain results.
	SeverityUncertain uint32 = 0x40000000
	// SeverityBad is the severity of bad results.
	SeverityBad uint32 = 0x80000000
)
