// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors of a server.
type Metrics struct {
	sessions        prometheus.Gauge
	subscriptions   prometheus.Gauge
	monitoredItems  prometheus.Gauge
	notifications   prometheus.Counter
	droppedChannels prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "sessions",
			Help:      "Number of open sessions.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "subscriptions",
			Help:      "Number of subscriptions.",
		}),
		monitoredItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "monitored_items",
			Help:      "Number of monitored items.",
		}),
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "notifications_total",
			Help:      "Number of data change notifications delivered.",
		}),
		droppedChannels: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "slow_channels_closed_total",
			Help:      "Number of channels closed because the client did not keep up with its messages.",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Number of service requests, by service and result.",
		}, []string{"service", "result"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uacore",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Time to handle a service request.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"service"}),
	}
}
