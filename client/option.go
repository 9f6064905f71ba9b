// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/rs/zerolog"
)

// Option is a functional option to be applied to a client during initialization.
type Option func(*Client) error

// WithUserNameIdentity sets the user identity to a UserNameIdentity created from a username and password. (default: anonymous)
func WithUserNameIdentity(userName, password string) Option {
	return func(c *Client) error {
		c.userIdentity = ua.UserIdentityToken{UserName: userName, Password: password}
		return nil
	}
}

// WithApplicationName sets the name of the client application. (default: uacore-client)
func WithApplicationName(value string) Option {
	return func(c *Client) error {
		c.applicationName = value
		return nil
	}
}

// WithSessionName sets the name of the session. (default: uacore-session)
func WithSessionName(value string) Option {
	return func(c *Client) error {
		c.sessionName = value
		return nil
	}
}

// WithSessionTimeout sets the number of milliseconds that a session may be unused before being closed by the server. (default: 2 min)
func WithSessionTimeout(value float64) Option {
	return func(c *Client) error {
		c.sessionTimeout = value
		return nil
	}
}

// WithTimeoutHint sets the default number of milliseconds to wait before a request is cancelled. (default: 15 sec)
func WithTimeoutHint(value uint32) Option {
	return func(c *Client) error {
		c.timeoutHint = value
		return nil
	}
}

// WithConnectTimeout sets the number of milliseconds to wait for a connection response. (default: 5 sec)
func WithConnectTimeout(value int64) Option {
	return func(c *Client) error {
		c.connectTimeout = value
		return nil
	}
}

// WithKeepAliveInterval sets the time between keep-alive requests. The session is lost after two
// intervals without a message from the server. (default: 5 sec)
func WithKeepAliveInterval(value time.Duration) Option {
	return func(c *Client) error {
		if value <= 0 {
			return ua.BadInvalidArgument
		}
		c.keepAliveInterval = value
		return nil
	}
}

// WithMaxMessageSize sets the limit on the size of messages that may be accepted. (default: 16MB)
func WithMaxMessageSize(value uint32) Option {
	return func(c *Client) error {
		c.maxMessageSize = value
		return nil
	}
}

// WithLogger sets the logger. (default: no logging)
func WithLogger(value zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = value
		return nil
	}
}
