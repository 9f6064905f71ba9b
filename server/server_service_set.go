// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/awcullen/uacore/ua"
)

const (
	// the most operations accepted in one request.
	maxOperationsPerRequest = 1000
)

// handleRequest dispatches the request to the service and writes the response, or a ServiceFault
// when the service fails as a whole.
func (srv *Server) handleRequest(ch *serverChannel, requestHandle uint32, req ua.ServiceRequest) {
	start := time.Now()
	service := strings.TrimSuffix(reflect.TypeOf(req).Elem().Name(), "Request")

	ctx := context.Background()
	if hint := req.Header().TimeoutHint; hint > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(hint)*time.Millisecond)
		defer cancel()
	}
	ctx = ch.logger.WithContext(ctx)

	var res ua.ServiceResponse
	var err error
	switch req := req.(type) {
	case *ua.CreateSessionRequest:
		res, err = srv.handleCreateSession(ctx, ch, req)
	case *ua.ActivateSessionRequest:
		res, err = srv.handleActivateSession(ctx, ch, req)
	case *ua.CloseSessionRequest:
		res, err = srv.handleCloseSession(ctx, ch, req)
	case *ua.ReadRequest:
		res, err = srv.handleRead(ctx, ch, req)
	case *ua.WriteRequest:
		res, err = srv.handleWrite(ctx, ch, req)
	case *ua.BrowseRequest:
		res, err = srv.handleBrowse(ctx, ch, req)
	case *ua.CallRequest:
		res, err = srv.handleCall(ctx, ch, req)
	case *ua.CreateSubscriptionRequest:
		res, err = srv.handleCreateSubscription(ctx, ch, req)
	case *ua.DeleteSubscriptionsRequest:
		res, err = srv.handleDeleteSubscriptions(ctx, ch, req)
	case *ua.CreateMonitoredItemsRequest:
		res, err = srv.handleCreateMonitoredItems(ctx, ch, req)
	case *ua.DeleteMonitoredItemsRequest:
		res, err = srv.handleDeleteMonitoredItems(ctx, ch, req)
	default:
		err = ua.BadServiceUnsupported
	}

	if err != nil {
		res = &ua.ServiceFault{}
	}
	code := ua.StatusCodeOf(err)
	header := res.Header()
	header.Timestamp = time.Now()
	header.RequestHandle = req.Header().RequestHandle
	header.ServiceResult = code

	srv.metrics.requests.WithLabelValues(service, fmt.Sprintf("0x%08X", uint32(code))).Inc()
	srv.metrics.requestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		ch.logger.Debug().Str("service", service).Err(err).Msg("Service fault.")
	}

	if err := ch.Write(ua.MessageTypeFinal, requestHandle, res); err != nil {
		ch.logger.Debug().Str("service", service).Err(err).Msg("Error writing response.")
	}
}

func (srv *Server) handleCreateSession(ctx context.Context, ch *serverChannel, req *ua.CreateSessionRequest) (ua.ServiceResponse, error) {
	timeout := srv.sessionTimeout
	if req.RequestedSessionTimeout > 0 {
		timeout = time.Duration(req.RequestedSessionTimeout * float64(time.Millisecond))
		if timeout < minSessionTimeout {
			timeout = minSessionTimeout
		}
		if timeout > srv.sessionTimeout {
			timeout = srv.sessionTimeout
		}
	}
	session := NewSession(req.SessionName, timeout, ch, ch.logger)
	if err := srv.sessionManager.Add(session); err != nil {
		return nil, err
	}
	session.logger.Info().Dur("timeout", timeout).Msg("Session created.")
	return &ua.CreateSessionResponse{
		SessionID:             session.SessionID(),
		AuthenticationToken:   session.AuthenticationToken(),
		RevisedSessionTimeout: float64(timeout) / float64(time.Millisecond),
		ServerEndpointURL:     srv.endpointURL,
	}, nil
}

func (srv *Server) handleActivateSession(ctx context.Context, ch *serverChannel, req *ua.ActivateSessionRequest) (ua.ServiceResponse, error) {
	session, ok := srv.sessionManager.Get(req.AuthenticationToken)
	if !ok {
		return nil, ua.BadSessionIDInvalid
	}
	userName := req.UserIdentityToken.UserName
	if userName == "" {
		if !srv.allowAnonymousIdentity {
			session.logger.Warn().Msg("Anonymous identity rejected.")
			return nil, ua.BadIdentityTokenRejected
		}
	} else {
		if srv.userNameIdentityAuthenticator == nil {
			return nil, ua.BadIdentityTokenRejected
		}
		if err := srv.userNameIdentityAuthenticator.AuthenticateUserNameIdentity(req.UserIdentityToken, srv.endpointURL); err != nil {
			session.logger.Warn().Str("user", userName).Msg("User identity rejected.")
			return nil, ua.BadUserAccessDenied
		}
	}
	session.activate(ch, userName)
	session.logger.Info().Str("user", userName).Msg("Session activated.")
	return &ua.ActivateSessionResponse{}, nil
}

func (srv *Server) handleCloseSession(ctx context.Context, ch *serverChannel, req *ua.CloseSessionRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	srv.sessionManager.Delete(session)
	session.logger.Info().Msg("Session closed.")
	return &ua.CloseSessionResponse{}, nil
}

// authorize returns the session of the token, if activated on the channel.
func (srv *Server) authorize(ch *serverChannel, authenticationToken ua.NodeID) (*Session, error) {
	session, ok := srv.sessionManager.Get(authenticationToken)
	if !ok {
		return nil, ua.BadSessionIDInvalid
	}
	if !session.IsActivated() || !session.boundTo(ch) {
		return nil, ua.BadSessionNotActivated
	}
	return session, nil
}

func checkOperationCount(l int) error {
	if l == 0 {
		return ua.BadNothingToDo
	}
	if l > maxOperationsPerRequest {
		return ua.BadTooManyOperations
	}
	return nil
}

func (srv *Server) handleRead(ctx context.Context, ch *serverChannel, req *ua.ReadRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	if err := checkOperationCount(len(req.NodesToRead)); err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, SessionKey, session)
	results := make([]ua.DataValue, len(req.NodesToRead))
	for i, n := range req.NodesToRead {
		results[i] = srv.readAttribute(ctx, n)
	}
	return &ua.ReadResponse{Results: results}, nil
}

// readAttribute returns the value of one attribute of a node.
func (srv *Server) readAttribute(ctx context.Context, rv ua.ReadValueID) ua.DataValue {
	now := time.Now()
	node, ok := srv.namespaceManager.FindNode(rv.NodeID)
	if !ok {
		return ua.NewDataValueStatus(ua.BadNodeIDUnknown, now)
	}
	if !node.IsAttributeIDValid(rv.AttributeID) {
		return ua.NewDataValueStatus(ua.BadAttributeIDInvalid, now)
	}
	switch rv.AttributeID {
	case ua.AttributeIDNodeID:
		return ua.NewDataValue(ua.NewVariantString(node.NodeID().String()), ua.Good, time.Time{}, now)
	case ua.AttributeIDNodeClass:
		return ua.NewDataValue(ua.NewVariantInt32(int32(node.NodeClass())), ua.Good, time.Time{}, now)
	case ua.AttributeIDBrowseName:
		return ua.NewDataValue(ua.NewVariantString(node.BrowseName().String()), ua.Good, time.Time{}, now)
	case ua.AttributeIDDisplayName:
		return ua.NewDataValue(ua.NewVariantString(node.DisplayName().Text), ua.Good, time.Time{}, now)
	case ua.AttributeIDDescription:
		return ua.NewDataValue(ua.NewVariantString(node.Description().Text), ua.Good, time.Time{}, now)
	case ua.AttributeIDValue:
		v, err := srv.namespaceManager.ReadValue(ctx, rv.NodeID)
		if err != nil {
			return ua.NewDataValueStatus(ua.StatusCodeOf(err), now)
		}
		v.ServerTimestamp = now
		return v
	case ua.AttributeIDDataType:
		n := node.(*VariableNode)
		return ua.NewDataValue(ua.NewVariantString(n.DataType().String()), ua.Good, time.Time{}, now)
	case ua.AttributeIDAccessLevel:
		n := node.(*VariableNode)
		return ua.NewDataValue(ua.NewVariantByte(n.AccessLevel()), ua.Good, time.Time{}, now)
	default:
		return ua.NewDataValueStatus(ua.BadAttributeIDInvalid, now)
	}
}

func (srv *Server) handleWrite(ctx context.Context, ch *serverChannel, req *ua.WriteRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	if err := checkOperationCount(len(req.NodesToWrite)); err != nil {
		return nil, err
	}
	results := make([]ua.StatusCode, len(req.NodesToWrite))
	for i, n := range req.NodesToWrite {
		if n.AttributeID != ua.AttributeIDValue {
			results[i] = ua.BadNotWritable
			continue
		}
		err := srv.namespaceManager.WriteValue(n.NodeID, n.Value.Value)
		results[i] = ua.StatusCodeOf(err)
		if err != nil {
			session.logger.Debug().Str("node", n.NodeID.String()).Err(err).Msg("Write failed.")
		}
	}
	return &ua.WriteResponse{Results: results}, nil
}

func (srv *Server) handleBrowse(ctx context.Context, ch *serverChannel, req *ua.BrowseRequest) (ua.ServiceResponse, error) {
	if _, err := srv.authorize(ch, req.AuthenticationToken); err != nil {
		return nil, err
	}
	if err := checkOperationCount(len(req.NodesToBrowse)); err != nil {
		return nil, err
	}
	results := make([]ua.BrowseResult, len(req.NodesToBrowse))
	for i, d := range req.NodesToBrowse {
		var nodes []Node
		switch d.BrowseDirection {
		case ua.BrowseDirectionForward:
			children, err := srv.namespaceManager.Browse(d.NodeID)
			if err != nil {
				results[i] = ua.BrowseResult{StatusCode: ua.StatusCodeOf(err)}
				continue
			}
			nodes = children
		case ua.BrowseDirectionInverse:
			if _, ok := srv.namespaceManager.FindNode(d.NodeID); !ok {
				results[i] = ua.BrowseResult{StatusCode: ua.BadNodeIDUnknown}
				continue
			}
			if parent, ok := srv.namespaceManager.Parent(d.NodeID); ok {
				nodes = []Node{parent}
			}
		default:
			results[i] = ua.BrowseResult{StatusCode: ua.BadInvalidArgument}
			continue
		}
		refs := make([]ua.ReferenceDescription, 0, len(nodes))
		for _, n := range nodes {
			refs = append(refs, referenceDescription(n))
		}
		results[i] = ua.BrowseResult{StatusCode: ua.Good, References: refs}
	}
	return &ua.BrowseResponse{Results: results}, nil
}

func referenceDescription(n Node) ua.ReferenceDescription {
	rd := ua.ReferenceDescription{
		NodeID:         n.NodeID(),
		BrowseName:     n.BrowseName(),
		DisplayName:    n.DisplayName(),
		NodeClass:      n.NodeClass(),
		TypeDefinition: n.TypeDefinition(),
	}
	if v, ok := n.(*VariableNode); ok {
		rd.DataType = v.DataType()
		rd.AccessLevel = v.AccessLevel()
	}
	return rd
}

func (srv *Server) handleCall(ctx context.Context, ch *serverChannel, req *ua.CallRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	if err := checkOperationCount(len(req.MethodsToCall)); err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, SessionKey, session)
	results := make([]ua.CallMethodResult, len(req.MethodsToCall))
	for i, m := range req.MethodsToCall {
		results[i] = srv.namespaceManager.Call(ctx, m)
	}
	return &ua.CallResponse{Results: results}, nil
}

func (srv *Server) handleCreateSubscription(ctx context.Context, ch *serverChannel, req *ua.CreateSubscriptionRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	sub, err := srv.subscriptionManager.Create(session, req.RequestedPublishingInterval, req.RequestedLifetimeCount, req.RequestedMaxKeepAliveCount)
	if err != nil {
		return nil, err
	}
	sub.logger.Info().Float64("interval", sub.PublishingInterval()).Msg("Subscription created.")
	return &ua.CreateSubscriptionResponse{
		SubscriptionID:            sub.ID(),
		RevisedPublishingInterval: sub.PublishingInterval(),
		RevisedLifetimeCount:      sub.LifetimeCount(),
		RevisedMaxKeepAliveCount:  sub.MaxKeepAliveCount(),
	}, nil
}

func (srv *Server) handleDeleteSubscriptions(ctx context.Context, ch *serverChannel, req *ua.DeleteSubscriptionsRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	if err := checkOperationCount(len(req.SubscriptionIDs)); err != nil {
		return nil, err
	}
	results := make([]ua.StatusCode, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		sub, ok := srv.subscriptionManager.Get(id)
		if !ok || sub.Session() != session {
			results[i] = ua.BadSubscriptionIDInvalid
			continue
		}
		srv.subscriptionManager.Delete(sub)
		results[i] = ua.Good
	}
	return &ua.DeleteSubscriptionsResponse{Results: results}, nil
}

func (srv *Server) handleCreateMonitoredItems(ctx context.Context, ch *serverChannel, req *ua.CreateMonitoredItemsRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	sub, ok := srv.subscriptionManager.Get(req.SubscriptionID)
	if !ok || sub.Session() != session {
		return nil, ua.BadSubscriptionIDInvalid
	}
	if err := checkOperationCount(len(req.ItemsToCreate)); err != nil {
		return nil, err
	}
	results := make([]ua.MonitoredItemCreateResult, len(req.ItemsToCreate))
	for i, item := range req.ItemsToCreate {
		results[i] = sub.CreateMonitoredItem(item)
	}
	return &ua.CreateMonitoredItemsResponse{Results: results}, nil
}

func (srv *Server) handleDeleteMonitoredItems(ctx context.Context, ch *serverChannel, req *ua.DeleteMonitoredItemsRequest) (ua.ServiceResponse, error) {
	session, err := srv.authorize(ch, req.AuthenticationToken)
	if err != nil {
		return nil, err
	}
	sub, ok := srv.subscriptionManager.Get(req.SubscriptionID)
	if !ok || sub.Session() != session {
		return nil, ua.BadSubscriptionIDInvalid
	}
	if err := checkOperationCount(len(req.MonitoredItemIDs)); err != nil {
		return nil, err
	}
	results := make([]ua.StatusCode, len(req.MonitoredItemIDs))
	for i, id := range req.MonitoredItemIDs {
		results[i] = ua.StatusCodeOf(sub.DeleteMonitoredItem(id))
	}
	return &ua.DeleteMonitoredItemsResponse{Results: results}, nil
}
