// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"time"
)

// RequestHeader is sent with every request.
type RequestHeader struct {
	AuthenticationToken NodeID
	Timestamp           time.Time
	RequestHandle       uint32
	TimeoutHint         uint32
}

// ResponseHeader is sent with every response.
type ResponseHeader struct {
	Timestamp     time.Time
	RequestHandle uint32
	ServiceResult StatusCode
}

// ServiceRequest is a request sent by a client.
type ServiceRequest interface {
	Header() *RequestHeader
}

// ServiceResponse is a response sent by a server.
type ServiceResponse interface {
	Header() *ResponseHeader
}

// Header returns the request header.
func (h *RequestHeader) Header() *RequestHeader { return h }

// Header returns the response header.
func (h *ResponseHeader) Header() *ResponseHeader { return h }

// ServiceFault is returned when a service fails as a whole.
type ServiceFault struct {
	ResponseHeader
}

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	RequestHeader
	SessionName             string
	ClientDescription       string
	RequestedSessionTimeout float64
}

// CreateSessionResponse returns the session id and authentication token.
type CreateSessionResponse struct {
	ResponseHeader
	SessionID             NodeID
	AuthenticationToken   NodeID
	RevisedSessionTimeout float64
	ServerEndpointURL     string
}

// UserIdentityToken carries the credentials of the user. An empty UserName means anonymous.
type UserIdentityToken struct {
	UserName string
	Password string
}

// ActivateSessionRequest presents the user credentials.
type ActivateSessionRequest struct {
	RequestHeader
	UserIdentityToken UserIdentityToken
}

// ActivateSessionResponse confirms the session is active.
type ActivateSessionResponse struct {
	ResponseHeader
}

// CloseSessionRequest ends the session.
type CloseSessionRequest struct {
	RequestHeader
	DeleteSubscriptions bool
}

// CloseSessionResponse confirms the session is closed.
type CloseSessionResponse struct {
	ResponseHeader
}

// AttributeIDs
const (
	AttributeIDNodeID      uint32 = 1
	AttributeIDNodeClass   uint32 = 2
	AttributeIDBrowseName  uint32 = 3
	AttributeIDDisplayName uint32 = 4
	AttributeIDDescription uint32 = 5
	AttributeIDValue       uint32 = 13
	AttributeIDDataType    uint32 = 14
	AttributeIDAccessLevel uint32 = 17
)

// ReadValueID identifies an attribute of a node.
type ReadValueID struct {
	NodeID      NodeID
	AttributeID uint32
}

// ReadRequest reads attributes of nodes.
type ReadRequest struct {
	RequestHeader
	NodesToRead []ReadValueID
}

// ReadResponse returns one DataValue per ReadValueID.
type ReadResponse struct {
	ResponseHeader
	Results []DataValue
}

// WriteValue is the new value of an attribute of a node.
type WriteValue struct {
	NodeID      NodeID
	AttributeID uint32
	Value       DataValue
}

// WriteRequest writes attributes of nodes.
type WriteRequest struct {
	RequestHeader
	NodesToWrite []WriteValue
}

// WriteResponse returns one StatusCode per WriteValue.
type WriteResponse struct {
	ResponseHeader
	Results []StatusCode
}

// BrowseDirection enumeration.
type BrowseDirection int32

// BrowseDirection enumeration.
const (
	BrowseDirectionForward BrowseDirection = 0
	BrowseDirectionInverse BrowseDirection = 1
)

// BrowseDescription names the node to browse.
type BrowseDescription struct {
	NodeID          NodeID
	BrowseDirection BrowseDirection
}

// ReferenceDescription describes a node found by browsing.
type ReferenceDescription struct {
	NodeID         NodeID
	BrowseName     QualifiedName
	DisplayName    LocalizedText
	NodeClass      NodeClass
	TypeDefinition NodeID
	DataType       VariantType
	AccessLevel    byte
}

// BrowseResult returns the references of one node.
type BrowseResult struct {
	StatusCode StatusCode
	References []ReferenceDescription
}

// BrowseRequest browses the children (or the parent) of nodes.
type BrowseRequest struct {
	RequestHeader
	NodesToBrowse []BrowseDescription
}

// BrowseResponse returns one BrowseResult per BrowseDescription.
type BrowseResponse struct {
	ResponseHeader
	Results []BrowseResult
}

// Argument describes one argument of a method.
type Argument struct {
	Name        string
	DataType    VariantType
	Description string
}

// NewArgument constructs an Argument.
func NewArgument(name string, dataType VariantType, description string) Argument {
	return Argument{name, dataType, description}
}

// CallMethodRequest calls one method of an object.
type CallMethodRequest struct {
	ObjectID       NodeID
	MethodID       NodeID
	InputArguments []Variant
}

// CallMethodResult returns the outputs of one method call.
type CallMethodResult struct {
	StatusCode           StatusCode
	InputArgumentResults []StatusCode
	OutputArguments      []Variant
}

// CallRequest calls methods.
type CallRequest struct {
	RequestHeader
	MethodsToCall []CallMethodRequest
}

// CallResponse returns one CallMethodResult per CallMethodRequest.
type CallResponse struct {
	ResponseHeader
	Results []CallMethodResult
}

// CreateSubscriptionRequest creates a subscription.
type CreateSubscriptionRequest struct {
	RequestHeader
	RequestedPublishingInterval float64
	RequestedLifetimeCount      uint32
	RequestedMaxKeepAliveCount  uint32
}

// CreateSubscriptionResponse returns the subscription id and revised parameters.
type CreateSubscriptionResponse struct {
	ResponseHeader
	SubscriptionID            uint32
	RevisedPublishingInterval float64
	RevisedLifetimeCount      uint32
	RevisedMaxKeepAliveCount  uint32
}

// DeleteSubscriptionsRequest deletes subscriptions.
type DeleteSubscriptionsRequest struct {
	RequestHeader
	SubscriptionIDs []uint32
}

// DeleteSubscriptionsResponse returns one StatusCode per subscription.
type DeleteSubscriptionsResponse struct {
	ResponseHeader
	Results []StatusCode
}

// DataChangeTrigger enumeration.
type DataChangeTrigger int32

// DataChangeTrigger enumeration.
const (
	DataChangeTriggerStatus               DataChangeTrigger = 0
	DataChangeTriggerStatusValue          DataChangeTrigger = 1
	DataChangeTriggerStatusValueTimestamp DataChangeTrigger = 2
)

// DeadbandType enumeration.
type DeadbandType int32

// DeadbandType enumeration.
const (
	DeadbandTypeNone     DeadbandType = 0
	DeadbandTypeAbsolute DeadbandType = 1
)

// DataChangeFilter decides whether a sampled value is reported.
type DataChangeFilter struct {
	Trigger       DataChangeTrigger
	DeadbandType  DeadbandType
	DeadbandValue float64
}

// MonitoringParameters are the requested settings of a monitored item.
type MonitoringParameters struct {
	ClientHandle     uint32
	SamplingInterval float64
	Filter           DataChangeFilter
	QueueSize        uint32
	DiscardOldest    bool
}

// MonitoredItemCreateRequest creates one monitored item.
type MonitoredItemCreateRequest struct {
	ItemToMonitor       ReadValueID
	RequestedParameters MonitoringParameters
}

// MonitoredItemCreateResult returns the id and revised parameters of one monitored item.
type MonitoredItemCreateResult struct {
	StatusCode              StatusCode
	MonitoredItemID         uint32
	RevisedSamplingInterval float64
	RevisedQueueSize        uint32
}

// CreateMonitoredItemsRequest adds monitored items to a subscription.
type CreateMonitoredItemsRequest struct {
	RequestHeader
	SubscriptionID uint32
	ItemsToCreate  []MonitoredItemCreateRequest
}

// CreateMonitoredItemsResponse returns one result per item.
type CreateMonitoredItemsResponse struct {
	ResponseHeader
	Results []MonitoredItemCreateResult
}

// DeleteMonitoredItemsRequest removes monitored items from a subscription.
type DeleteMonitoredItemsRequest struct {
	RequestHeader
	SubscriptionID   uint32
	MonitoredItemIDs []uint32
}

// DeleteMonitoredItemsResponse returns one StatusCode per item.
type DeleteMonitoredItemsResponse struct {
	ResponseHeader
	Results []StatusCode
}

// MonitoredItemNotification reports one changed value.
type MonitoredItemNotification struct {
	ClientHandle uint32
	NodeID       NodeID
	Value        DataValue
}

// NotificationMessage is pushed by the server once per publish cycle that has something to report.
// A message without items and with a good Status is a keep-alive.
type NotificationMessage struct {
	SubscriptionID uint32
	SequenceNumber uint32
	PublishTime    time.Time
	Status         StatusCode
	MonitoredItems []MonitoredItemNotification
}

// IsKeepAlive returns true if the message carries no notifications.
func (m *NotificationMessage) IsKeepAlive() bool {
	return len(m.MonitoredItems) == 0 && m.Status == Good
}
