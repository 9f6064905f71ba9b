// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"

	"github.com/awcullen/uacore/ua"
)

// createSession creates a session.
func (ch *Client) createSession(ctx context.Context, request *ua.CreateSessionRequest) (*ua.CreateSessionResponse, error) {
	response, err := ch.channel.Request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateSessionResponse), nil
}

// activateSession presents the user identity.
func (ch *Client) activateSession(ctx context.Context, request *ua.ActivateSessionRequest) (*ua.ActivateSessionResponse, error) {
	response, err := ch.channel.Request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.ActivateSessionResponse), nil
}

// closeSession closes the session.
func (ch *Client) closeSession(ctx context.Context, request *ua.CloseSessionRequest) (*ua.CloseSessionResponse, error) {
	response, err := ch.channel.Request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CloseSessionResponse), nil
}

// Read returns a list of Node attributes.
func (ch *Client) Read(ctx context.Context, request *ua.ReadRequest) (*ua.ReadResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.ReadResponse), nil
}

// Write sets a list of Node attributes.
func (ch *Client) Write(ctx context.Context, request *ua.WriteRequest) (*ua.WriteResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.WriteResponse), nil
}

// Browse discovers the children (or the parent) of nodes.
func (ch *Client) Browse(ctx context.Context, request *ua.BrowseRequest) (*ua.BrowseResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.BrowseResponse), nil
}

// Call invokes a list of Methods.
func (ch *Client) Call(ctx context.Context, request *ua.CallRequest) (*ua.CallResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CallResponse), nil
}

// createSubscription creates a subscription on the server.
func (ch *Client) createSubscription(ctx context.Context, request *ua.CreateSubscriptionRequest) (*ua.CreateSubscriptionResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateSubscriptionResponse), nil
}

// deleteSubscriptions deletes subscriptions on the server.
func (ch *Client) deleteSubscriptions(ctx context.Context, request *ua.DeleteSubscriptionsRequest) (*ua.DeleteSubscriptionsResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.DeleteSubscriptionsResponse), nil
}

// createMonitoredItems adds monitored items to a subscription.
func (ch *Client) createMonitoredItems(ctx context.Context, request *ua.CreateMonitoredItemsRequest) (*ua.CreateMonitoredItemsResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.CreateMonitoredItemsResponse), nil
}

// deleteMonitoredItems removes monitored items from a subscription.
func (ch *Client) deleteMonitoredItems(ctx context.Context, request *ua.DeleteMonitoredItemsRequest) (*ua.DeleteMonitoredItemsResponse, error) {
	response, err := ch.request(ctx, request)
	if err != nil {
		return nil, err
	}
	return response.(*ua.DeleteMonitoredItemsResponse), nil
}
