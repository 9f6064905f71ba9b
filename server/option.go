// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option is a functional option to be applied to a server during initialization.
type Option func(*Server) error

// WithApplicationURI sets the URI of the server application, used as namespace 1. (default: urn:<hostname>:uacore)
func WithApplicationURI(value string) Option {
	return func(srv *Server) error {
		srv.applicationURI = value
		return nil
	}
}

// WithBuildInfo sets the BuildInfo returned by ServerStatus.
func WithBuildInfo(value ua.BuildInfo) Option {
	return func(srv *Server) error {
		srv.buildInfo = value
		return nil
	}
}

// WithSessionTimeout sets the longest time a session may be unused before it is closed. (default: 2 min)
func WithSessionTimeout(value time.Duration) Option {
	return func(srv *Server) error {
		srv.sessionTimeout = value
		return nil
	}
}

// WithMaxSessionCount sets the number of sessions that may be active. (default: no limit)
func WithMaxSessionCount(value uint32) Option {
	return func(srv *Server) error {
		srv.maxSessionCount = value
		return nil
	}
}

// WithMaxSubscriptionCount sets the number of subscriptions that may be active. (default: no limit)
func WithMaxSubscriptionCount(value uint32) Option {
	return func(srv *Server) error {
		srv.maxSubscriptionCount = value
		return nil
	}
}

// WithMaxMessageSize sets the limit on the size of messages that may be accepted. (default: 16MB)
func WithMaxMessageSize(value uint32) Option {
	return func(srv *Server) error {
		srv.maxMessageSize = value
		return nil
	}
}

// WithMaxWorkerThreads sets the default number of worker threads that may be created. (default: 4)
func WithMaxWorkerThreads(value int) Option {
	return func(srv *Server) error {
		srv.maxWorkerThreads = value
		return nil
	}
}

// WithWriteTimeout sets the time allowed to write one message to a client before the channel is
// closed. (default: 10s)
func WithWriteTimeout(value time.Duration) Option {
	return func(srv *Server) error {
		srv.writeTimeout = value
		return nil
	}
}

// WithMinSamplingInterval sets the fastest rate at which monitored items are sampled and
// subscriptions publish. (default: 100ms)
func WithMinSamplingInterval(value time.Duration) Option {
	return func(srv *Server) error {
		srv.minSamplingInterval = value
		return nil
	}
}

// WithMonitoredItemDeletion sets whether deleting a monitored item waits for a publish cycle in flight. (default: DeleteImmediate)
func WithMonitoredItemDeletion(value DeletionPolicy) Option {
	return func(srv *Server) error {
		srv.deletionPolicy = value
		return nil
	}
}

// WithAnonymousIdentity sets whether anonymous users are allowed. (default: true)
func WithAnonymousIdentity(value bool) Option {
	return func(srv *Server) error {
		srv.allowAnonymousIdentity = value
		return nil
	}
}

// WithAuthenticateUserNameIdentityFunc sets the authenticate func for users with UserNameIdentity. (default: users are denied)
func WithAuthenticateUserNameIdentityFunc(f AuthenticateUserNameIdentityFunc) Option {
	return func(srv *Server) error {
		srv.userNameIdentityAuthenticator = f
		return nil
	}
}

// WithLogger sets the logger. (default: no logging)
func WithLogger(value zerolog.Logger) Option {
	return func(srv *Server) error {
		srv.logger = value
		return nil
	}
}

// WithMetrics registers the prometheus collectors of the server with reg. (default: not registered)
func WithMetrics(reg prometheus.Registerer) Option {
	return func(srv *Server) error {
		srv.registerer = reg
		return nil
	}
}
