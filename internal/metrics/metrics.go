// Package metrics exposes Prometheus counters for the message pipeline.
// Instrumentation is optional: a nil *Set is safe to call, so the hot path
// carries no conditional wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set aggregates the pipeline counters.
type Set struct {
	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	inboundDropped prometheus.Counter
	rateLimited    prometheus.Counter
	rpcDispatched  prometheus.Counter
	subDispatched  prometheus.Counter
	privateNoToken prometheus.Counter
}

// New registers the counter set with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Set{
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "sender",
			Name: "frames_sent_total",
			Help: "Frames transmitted to the exchange.",
		}),
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "receiver",
			Name: "frames_received_total",
			Help: "Frames read from the exchange.",
		}),
		inboundDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "receiver",
			Name: "inbound_dropped_total",
			Help: "Inbound frames dropped because the queue was full.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "client",
			Name: "rate_limited_total",
			Help: "Requests refused by the advisory rate check.",
		}),
		rpcDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "dispatcher",
			Name: "rpc_dispatched_total",
			Help: "RPC responses routed to a handler slot.",
		}),
		subDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "dispatcher",
			Name: "notifications_dispatched_total",
			Help: "Subscription notifications routed to a handler slot.",
		}),
		privateNoToken: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit", Subsystem: "sender",
			Name: "private_without_token_total",
			Help: "Private requests sent before authentication completed.",
		}),
	}
}

// FrameSent records one transmitted frame.
func (s *Set) FrameSent() {
	if s != nil {
		s.framesSent.Inc()
	}
}

// FrameReceived records one inbound frame.
func (s *Set) FrameReceived() {
	if s != nil {
		s.framesReceived.Inc()
	}
}

// InboundDropped records an inbound frame lost to queue saturation.
func (s *Set) InboundDropped() {
	if s != nil {
		s.inboundDropped.Inc()
	}
}

// RateLimited records an advisory rate-check refusal.
func (s *Set) RateLimited() {
	if s != nil {
		s.rateLimited.Inc()
	}
}

// RPCDispatched records a dispatched RPC response.
func (s *Set) RPCDispatched() {
	if s != nil {
		s.rpcDispatched.Inc()
	}
}

// SubDispatched records a dispatched notification.
func (s *Set) SubDispatched() {
	if s != nil {
		s.subDispatched.Inc()
	}
}

// PrivateWithoutToken records a private request sent without a stored token.
func (s *Set) PrivateWithoutToken() {
	if s != nil {
		s.privateNoToken.Inc()
	}
}
