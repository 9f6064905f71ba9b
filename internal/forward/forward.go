// Copyright 2021 Converter Systems LLC. All rights reserved.

// Package forward republishes data change notifications of a subscription to NATS.
package forward

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultPrefix is the first token of the subjects.
const DefaultPrefix = "uascan"

// Publisher sends a message to a subject. *nats.Conn is a Publisher.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the payload published for one notification.
type Message struct {
	NodeID          string      `json:"nodeId"`
	Value           interface{} `json:"value"`
	DataType        string      `json:"dataType"`
	Status          string      `json:"status"`
	SourceTimestamp int64       `json:"sourceTimestamp"`
	ServerTimestamp int64       `json:"serverTimestamp"`
}

// Forwarder publishes each notification to <prefix>.data.<node id>.
type Forwarder struct {
	pub       Publisher
	prefix    string
	logger    zerolog.Logger
	published atomic.Uint64
	failed    atomic.Uint64
}

// New returns a Forwarder publishing with pub. An empty prefix is replaced by DefaultPrefix.
func New(pub Publisher, prefix string, logger zerolog.Logger) *Forwarder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Forwarder{pub: pub, prefix: prefix, logger: logger}
}

// Connect opens a connection to the NATS server that reconnects until closed.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("uascan"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("Disconnected from NATS.")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS.")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to nats at %s", url)
	}
	return nc, nil
}

// Subject returns the subject of the notifications of the node.
func (f *Forwarder) Subject(id ua.NodeID) string {
	return f.prefix + ".data." + sanitize(id.String())
}

// Forward publishes the notification.
func (f *Forwarder) Forward(n ua.MonitoredItemNotification) error {
	msg := Message{
		NodeID:          n.NodeID.String(),
		Value:           n.Value.Value.Value(),
		DataType:        n.Value.Value.Type().String(),
		Status:          "Good",
		SourceTimestamp: n.Value.SourceTimestamp.UnixMilli(),
		ServerTimestamp: n.Value.ServerTimestamp.UnixMilli(),
	}
	if !n.Value.StatusCode.IsGood() {
		msg.Status = n.Value.StatusCode.Error()
	}
	if t, ok := msg.Value.(time.Time); ok {
		msg.Value = t.UnixMilli()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		f.failed.Add(1)
		return errors.Wrap(err, "error encoding notification")
	}
	subject := f.Subject(n.NodeID)
	if err := f.pub.Publish(subject, data); err != nil {
		f.failed.Add(1)
		f.logger.Warn().Err(err).Str("subject", subject).Msg("Error publishing notification.")
		return errors.Wrapf(err, "error publishing to %s", subject)
	}
	f.published.Add(1)
	return nil
}

// Published returns the number of notifications published.
func (f *Forwarder) Published() uint64 {
	return f.published.Load()
}

// Failed returns the number of notifications that could not be published.
func (f *Forwarder) Failed() uint64 {
	return f.failed.Load()
}

// sanitize replaces the characters that have a meaning in subjects.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ';', '=', ' ', '*', '>', '\t':
			return '_'
		default:
			return r
		}
	}, s)
}
