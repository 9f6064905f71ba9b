// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type key string

const (
	// SessionKey stores the current session in context
	SessionKey key = "uacore-session"
	// the default number of milliseconds that a session may be unused before being closed by the server. (2 min)
	defaultSessionTimeout = 2 * time.Minute
	// the shortest session timeout a client may request.
	minSessionTimeout = 10 * time.Second
	// the default number of worker threads that may be created.
	defaultMaxWorkerThreads int = 4
	// the default fastest sampling and publishing interval.
	defaultMinSamplingInterval = 100 * time.Millisecond
	// the default time allowed to write one message to a client.
	defaultWriteTimeout = 10 * time.Second
)

// Server implements an OpcUa server for clients.
type Server struct {
	sync.RWMutex
	endpointURL                   string
	applicationURI                string
	buildInfo                     ua.BuildInfo
	sessionTimeout                time.Duration
	maxSessionCount               uint32
	maxSubscriptionCount          uint32
	maxMessageSize                uint32
	maxWorkerThreads              int
	writeTimeout                  time.Duration
	minSamplingInterval           time.Duration
	deletionPolicy                DeletionPolicy
	allowAnonymousIdentity        bool
	userNameIdentityAuthenticator UserNameIdentityAuthenticator
	logger                        zerolog.Logger
	registerer                    prometheus.Registerer
	metrics                       *Metrics
	listeners                     []net.Listener
	closed                        chan struct{}
	closing                       chan struct{}
	stateSemaphore                chan struct{}
	state                         ua.ServerState
	startTime                     time.Time
	workerpool                    *workerpool.WorkerPool
	channelManager                *ChannelManager
	sessionManager                *SessionManager
	subscriptionManager           *SubscriptionManager
	namespaceManager              *NamespaceManager
	scheduler                     *Scheduler
}

// New initializes a new instance of the Server.
func New(endpointURL string, options ...Option) (*Server, error) {
	host, _ := os.Hostname()
	srv := &Server{
		endpointURL:            endpointURL,
		applicationURI:         fmt.Sprintf("urn:%s:uacore", host),
		buildInfo:              ua.BuildInfo{ProductURI: "https://github.com/awcullen/uacore", ProductName: "uacore", ManufacturerName: "Converter Systems LLC", SoftwareVersion: "0.1.0"},
		sessionTimeout:         defaultSessionTimeout,
		maxMessageSize:         ua.DefaultMaxMessageSize,
		maxWorkerThreads:       defaultMaxWorkerThreads,
		writeTimeout:           defaultWriteTimeout,
		minSamplingInterval:    defaultMinSamplingInterval,
		deletionPolicy:         DeleteImmediate,
		allowAnonymousIdentity: true,
		logger:                 zerolog.Nop(),
		closed:                 make(chan struct{}),
		closing:                make(chan struct{}),
		stateSemaphore:         make(chan struct{}, 1),
		listeners:              make([]net.Listener, 0, 1),
		state:                  ua.ServerStateUnknown,
		startTime:              time.Now(),
	}

	// apply each option to the default
	for _, opt := range options {
		if err := opt(srv); err != nil {
			return nil, err
		}
	}

	if _, err := url.Parse(endpointURL); err != nil {
		return nil, errors.Wrap(ua.BadTcpEndpointURLInvalid, err.Error())
	}

	srv.metrics = NewMetrics(srv.registerer)
	srv.workerpool = workerpool.New(srv.maxWorkerThreads)
	srv.namespaceManager = NewNamespaceManager(srv.applicationURI)
	srv.scheduler = NewScheduler(srv.closing, srv.minSamplingInterval)
	srv.subscriptionManager = NewSubscriptionManager(srv.namespaceManager, srv.scheduler, srv.metrics, srv.deletionPolicy, srv.maxSubscriptionCount)
	srv.sessionManager = NewSessionManager(srv.closing, srv.maxSessionCount, srv.subscriptionManager, srv.metrics, srv.logger)
	srv.channelManager = NewChannelManager(srv.closed)

	if err := srv.initializeNamespace(); err != nil {
		return nil, err
	}
	return srv, nil
}

// EndpointURL gets the endpoint url.
func (srv *Server) EndpointURL() string {
	return srv.endpointURL
}

// BuildInfo gets the build info of the server.
func (srv *Server) BuildInfo() ua.BuildInfo {
	return srv.buildInfo
}

// Closing gets a channel that broadcasts the closing of the server.
func (srv *Server) Closing() <-chan struct{} {
	return srv.closing
}

// State gets the ServerState.
func (srv *Server) State() ua.ServerState {
	srv.RLock()
	defer srv.RUnlock()
	return srv.state
}

func (srv *Server) setState(value ua.ServerState) {
	srv.Lock()
	srv.state = value
	srv.Unlock()
	srv.logger.Info().Str("state", value.String()).Msg("Server state changed.")
}

// Logger gets the logger of the server.
func (srv *Server) Logger() zerolog.Logger {
	return srv.logger
}

// ChannelManager gets the channel manager.
func (srv *Server) ChannelManager() *ChannelManager {
	return srv.channelManager
}

// SessionManager gets the session manager.
func (srv *Server) SessionManager() *SessionManager {
	return srv.sessionManager
}

// NamespaceManager gets the namespace manager.
func (srv *Server) NamespaceManager() *NamespaceManager {
	return srv.namespaceManager
}

// SubscriptionManager gets the subscription manager.
func (srv *Server) SubscriptionManager() *SubscriptionManager {
	return srv.subscriptionManager
}

// Scheduler gets the poll scheduler.
func (srv *Server) Scheduler() *Scheduler {
	return srv.scheduler
}

// ListenAndServe listens on the port of the endpoint url and then calls Serve.
// ListenAndServe always returns a non-nil error. After Close, the returned error is BadServerHalted.
func (srv *Server) ListenAndServe() error {
	baseURL, err := url.Parse(srv.endpointURL)
	if err != nil {
		return ua.BadTcpEndpointURLInvalid
	}
	l, err := net.Listen("tcp", ":"+baseURL.Port())
	if err != nil {
		return errors.Wrap(ua.BadResourceUnavailable, err.Error())
	}
	return srv.Serve(l)
}

// Serve accepts connections on the listener and handles service requests.
// Serve always returns a non-nil error. After Close, the returned error is BadServerHalted.
func (srv *Server) Serve(l net.Listener) error {
	srv.stateSemaphore <- struct{}{}
	if srv.state != ua.ServerStateUnknown {
		<-srv.stateSemaphore
		l.Close()
		return ua.BadInvalidState
	}
	srv.listeners = append(srv.listeners, l)
	srv.setState(ua.ServerStateRunning)
	<-srv.stateSemaphore

	srv.logger.Info().Str("endpoint", srv.endpointURL).Str("addr", l.Addr().String()).Msg("Server listening.")
	return srv.serve(l)
}

// Close server. Subscriptions stop publishing, then channels are closed.
func (srv *Server) Close() error {
	srv.stateSemaphore <- struct{}{}
	defer func() { <-srv.stateSemaphore }()
	if srv.state == ua.ServerStateShutdown {
		return ua.BadServerHalted
	}
	srv.setState(ua.ServerStateShutdown)

	// close subscriptions
	srv.subscriptionManager.closeAll()
	close(srv.closing)

	// close listeners
	for _, l := range srv.listeners {
		if err := l.Close(); err != nil {
			srv.logger.Warn().Err(err).Msg("Error closing listener.")
		}
	}

	// stop workers.
	srv.workerpool.StopWait()

	// close channels
	close(srv.closed)
	return nil
}

func (srv *Server) serve(l net.Listener) error {
	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-srv.closing:
				return ua.BadServerHalted
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay *= 2
				}
				if max := 1 * time.Second; delay > max {
					delay = max
				}
				time.Sleep(delay)
				continue
			}
			return errors.Wrap(ua.BadCommunicationError, err.Error())
		}
		delay = 0
		ch := newServerChannel(srv, conn)
		go func(ch *serverChannel) {
			if err := ch.Open(); err != nil {
				ch.logger.Debug().Err(err).Msg("Error opening channel.")
				if reason, ok := err.(ua.StatusCode); ok {
					ch.Abort(reason, reason.Error())
					return
				}
				ch.Abort(ua.BadCommunicationError, err.Error())
				return
			}
			srv.channelManager.Add(ch)
			ch.requestWorker()
		}(ch)
	}
}

// initializeNamespace adds the Server object and its ServerStatus variables.
func (srv *Server) initializeNamespace() error {
	nm := srv.namespaceManager
	server := NewObjectNode(
		ua.ObjectIDServer,
		ua.NewQualifiedName(0, "Server"),
		ua.NewLocalizedText("Server", ""),
		ua.NewLocalizedText("The server.", ""),
		ua.ObjectTypeIDBaseObjectType,
	)
	if err := nm.AddNode(ua.ObjectIDObjectsFolder, server); err != nil {
		return err
	}

	status := newReadOnlyVariable(ua.VariableIDServerServerStatus, "ServerStatus", ua.NewVariantString(srv.State().String()))
	status.SetReadValueHandler(func(ctx context.Context) ua.DataValue {
		return ua.NewDataValue(ua.NewVariantString(srv.State().String()), ua.Good, srv.startTime, time.Now())
	})
	if err := nm.AddNode(server.NodeID(), status); err != nil {
		return err
	}

	startTime := newReadOnlyVariable(ua.VariableIDServerServerStatusStartTime, "StartTime", ua.NewVariantDateTime(srv.startTime))
	currentTime := newReadOnlyVariable(ua.VariableIDServerServerStatusCurrentTime, "CurrentTime", ua.NewVariantDateTime(time.Now()))
	currentTime.SetReadValueHandler(func(ctx context.Context) ua.DataValue {
		now := time.Now()
		return ua.NewDataValue(ua.NewVariantDateTime(now), ua.Good, now, now)
	})
	state := newReadOnlyVariable(ua.VariableIDServerServerStatusState, "State", ua.NewVariantInt32(int32(srv.State())))
	state.SetReadValueHandler(func(ctx context.Context) ua.DataValue {
		return ua.NewDataValue(ua.NewVariantInt32(int32(srv.State())), ua.Good, srv.startTime, time.Now())
	})
	buildInfo := newReadOnlyVariable(ua.VariableIDServerServerStatusBuildInfo, "BuildInfo", ua.NewVariantString(srv.buildInfo.ProductName))
	if err := nm.AddNodes(status.NodeID(), startTime, currentTime, state, buildInfo); err != nil {
		return err
	}

	return nm.AddNodes(buildInfo.NodeID(),
		newReadOnlyVariable(ua.VariableIDServerServerStatusBuildInfoProductURI, "ProductUri", ua.NewVariantString(srv.buildInfo.ProductURI)),
		newReadOnlyVariable(ua.VariableIDServerServerStatusBuildInfoManufacturerName, "ManufacturerName", ua.NewVariantString(srv.buildInfo.ManufacturerName)),
		newReadOnlyVariable(ua.VariableIDServerServerStatusBuildInfoProductName, "ProductName", ua.NewVariantString(srv.buildInfo.ProductName)),
		newReadOnlyVariable(ua.VariableIDServerServerStatusBuildInfoSoftwareVersion, "SoftwareVersion", ua.NewVariantString(srv.buildInfo.SoftwareVersion)),
	)
}

func newReadOnlyVariable(id ua.NodeID, name string, value ua.Variant) *VariableNode {
	now := time.Now()
	return NewVariableNode(
		id,
		ua.NewQualifiedName(0, name),
		ua.NewLocalizedText(name, ""),
		ua.NewLocalizedText("", ""),
		ua.NewDataValue(value, ua.Good, now, now),
		value.Type(),
		ua.AccessLevelsCurrentRead,
	)
}
