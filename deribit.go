package deribit

import (
	"context"

	"github.com/QuantDreamGit/HFT-Deribit/internal/dispatch"
)

// Transport is the raw connection consumed by the client pipeline. The
// production implementation lives in internal/transport; tests substitute
// in-memory fakes.
//
// Send logs transmission failures and returns the error to the caller, which
// is expected to log and continue rather than retry. Read blocks until a text
// frame arrives and returns nil on stream end or read error. Close is
// idempotent and must cause any in-flight Read to unblock and return nil.
type Transport interface {
	// Connect establishes the underlying connection. It must be called
	// before Send or Read.
	Connect(ctx context.Context) error

	// Send transmits one text frame.
	Send(msg []byte) error

	// Read blocks until the next text frame arrives. A nil result means the
	// stream ended or the connection failed; the caller treats it as
	// end-of-stream.
	Read() []byte

	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// Client is the orchestrated trading connection: it owns the queues, the
// dispatcher, the rate limiter and the background goroutines.
//
// All registration methods are plain table writes into the dispatcher and
// must not race with dispatch on the same slot; register before the response
// or notification for that id/channel can arrive.
type Client interface {
	// Connect opens the transport, starts the receiver, sender and dispatch
	// goroutines, and performs the authentication handshake when
	// credentials are configured.
	Connect(ctx context.Context) error

	// Authenticate sends the OAuth2 client-credentials grant. It fails
	// immediately when the client id or secret is empty. The access token is
	// stored on success; an error response is logged and not retried.
	Authenticate() error

	// Subscribe registers a notification handler for channel and queues a
	// public/subscribe request. It reports whether the request was accepted
	// by the advisory rate check and enqueued.
	Subscribe(channel string, handler dispatch.SubHandler) bool

	// SendRPC builds a JSON-RPC envelope and queues it for transmission.
	// It reports whether the request was accepted (queued) or refused by
	// the advisory rate check or a full outbound queue.
	SendRPC(id uint64, method string, params any) bool

	// RegisterRPC installs success/error callbacks for a request id.
	RegisterRPC(id uint64, h dispatch.RPCHandler)

	// RegisterSubscription installs a notification handler for a channel
	// without sending a subscribe request.
	RegisterSubscription(channel string, h dispatch.SubHandler)

	// State reports the current connection state.
	State() ConnectionState

	// Close shuts the pipeline down in a fixed order and joins all owned
	// goroutines. Idempotent.
	Close() error
}

// ConnectionState tracks the client lifecycle.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connected
	Authenticating
	Authenticated
	Closing
	Closed
)

// String returns the state name for logs.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}
