// Package wsclient wires the transport, the SPSC queues, the dispatcher and
// the rate limiter into the connected client, and sequences startup and
// shutdown across the receiver, sender and dispatch goroutines.
package wsclient

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/config"
	"github.com/QuantDreamGit/HFT-Deribit/internal/dispatch"
	"github.com/QuantDreamGit/HFT-Deribit/internal/metrics"
	"github.com/QuantDreamGit/HFT-Deribit/internal/protocol"
	"github.com/QuantDreamGit/HFT-Deribit/internal/ratelimit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/spsc"
	"github.com/QuantDreamGit/HFT-Deribit/internal/transport"
)

// Queue capacities. Inbound runs deeper than outbound because notification
// bursts outpace anything this client sends.
const (
	inboundCapacity  = 4096
	outboundCapacity = 1024
)

// Config carries everything the client needs at construction.
type Config struct {
	// URL is the WebSocket endpoint.
	URL string

	// Credentials authenticate private requests. Leave empty for
	// public-only sessions; Authenticate will then fail fast.
	Credentials config.Credentials

	// RateLimit configures both token buckets (the caller-side advisory
	// check and the sender's authoritative gate). Nil means the exchange
	// defaults.
	RateLimit *ratelimit.Config

	// Logger receives structured log records. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics receives pipeline counters. Nil disables instrumentation.
	Metrics *metrics.Set

	// Transport overrides the production WebSocket transport; tests use
	// in-memory fakes.
	Transport deribit.Transport
}

// Client implements deribit.Client.
type Client struct {
	cfg Config
	log *slog.Logger
	met *metrics.Set

	transport  deribit.Transport
	dispatcher *dispatch.Dispatcher

	inbound  *spsc.Queue[[]byte] // receiver produces, dispatch loop consumes
	outbound *spsc.Queue[[]byte] // caller produces, sender consumes

	// advisory is consulted on the caller thread before enqueueing; the
	// sender holds its own bucket as the authoritative gate, so an advisory
	// debit never starves transmission.
	advisory *ratelimit.Limiter

	recv *receiver
	send *sender

	state atomic.Int32           // deribit.ConnectionState
	token atomic.Pointer[string] // written on auth success, read by the sender

	dispatchDone chan struct{}
	closeOnce    sync.Once
}

var _ deribit.Client = (*Client)(nil)

// New builds an unconnected client from cfg.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = deribit.MainnetURL
	}

	t := cfg.Transport
	if t == nil {
		t = transport.NewWebSocket(cfg.URL, log)
	}

	c := &Client{
		cfg:        *cfg,
		log:        log,
		met:        cfg.Metrics,
		transport:  t,
		dispatcher: dispatch.New(),
		inbound:    spsc.New[[]byte](inboundCapacity),
		outbound:   spsc.New[[]byte](outboundCapacity),
		advisory:   ratelimit.New(cfg.RateLimit),
	}
	c.recv = newReceiver(t, c.inbound, log, cfg.Metrics)
	c.send = newSender(c.outbound, t, ratelimit.New(cfg.RateLimit), c.accessToken, log, cfg.Metrics)
	c.state.Store(int32(deribit.Disconnected))
	return c
}

// State reports the connection state.
func (c *Client) State() deribit.ConnectionState {
	return deribit.ConnectionState(c.state.Load())
}

func (c *Client) setState(s deribit.ConnectionState) {
	c.state.Store(int32(s))
}

// AccessToken returns the stored token, or "" before authentication.
func (c *Client) AccessToken() string { return c.accessToken() }

func (c *Client) accessToken() string {
	if p := c.token.Load(); p != nil {
		return *p
	}
	return ""
}

// Connect opens the transport and starts the receiver, sender and dispatch
// goroutines. When credentials are configured the authentication handshake
// is sent immediately afterwards.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() != deribit.Disconnected {
		return deribit.ErrAlreadyConnected
	}

	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	c.setState(deribit.Connected)

	c.recv.start()
	c.send.start()

	c.dispatchDone = make(chan struct{})
	go c.dispatchLoop()

	if c.cfg.Credentials.Empty() {
		c.log.Debug("no credentials configured, skipping authentication")
		return nil
	}
	return c.Authenticate()
}

// dispatchLoop drains the inbound queue and feeds the dispatcher until the
// queue closes or the state leaves the connected lifecycle.
func (c *Client) dispatchLoop() {
	defer func() {
		c.log.Info("dispatch loop exiting")
		close(c.dispatchDone)
	}()

	for {
		frame, ok := c.inbound.BlockingPop()
		if !ok {
			return
		}
		switch c.State() {
		case deribit.Connected, deribit.Authenticating, deribit.Authenticated:
		default:
			return
		}
		c.dispatcher.Dispatch(frame)
	}
}

// Authenticate sends the OAuth2 client-credentials grant on the normal
// outbound path. The response handler stores the access token; an error
// response is logged and not retried.
func (c *Client) Authenticate() error {
	if c.cfg.Credentials.Empty() {
		return deribit.ErrMissingCredentials
	}
	if c.State() == deribit.Disconnected {
		return deribit.ErrNotConnected
	}

	c.dispatcher.RegisterRPC(deribit.AuthRequestID, dispatch.RPCHandler{
		OnSuccess: func(pm *dispatch.ParsedMessage) {
			c.met.RPCDispatched()
			if pm.AccessToken == "" {
				c.log.Error("auth response carried no access token")
				return
			}
			tok := pm.AccessToken
			c.token.Store(&tok)
			c.setState(deribit.Authenticated)
			c.log.Info("authenticated, access token stored")
		},
		OnError: func(pm *dispatch.ParsedMessage) {
			c.met.RPCDispatched()
			c.setState(deribit.Connected)
			c.log.Error("authentication failed",
				"code", pm.ErrorCode, "message", string(pm.ErrorMsg))
		},
	})

	c.setState(deribit.Authenticating)
	req := protocol.NewAuthRequest(deribit.AuthRequestID,
		c.cfg.Credentials.ClientID, c.cfg.Credentials.ClientSecret)
	if !c.enqueue(req) {
		c.setState(deribit.Connected)
		return deribit.ErrConnectionClosed
	}
	c.log.Info("auth request sent")
	return nil
}

// RegisterRPC installs callbacks for a request id, wrapping them with the
// dispatch counters.
func (c *Client) RegisterRPC(id uint64, h dispatch.RPCHandler) {
	c.dispatcher.RegisterRPC(id, c.instrumentRPC(h))
}

func (c *Client) instrumentRPC(h dispatch.RPCHandler) dispatch.RPCHandler {
	wrapped := dispatch.RPCHandler{}
	if h.OnSuccess != nil {
		inner := h.OnSuccess
		wrapped.OnSuccess = func(pm *dispatch.ParsedMessage) {
			c.met.RPCDispatched()
			inner(pm)
		}
	}
	if h.OnError != nil {
		inner := h.OnError
		wrapped.OnError = func(pm *dispatch.ParsedMessage) {
			c.met.RPCDispatched()
			inner(pm)
		}
	}
	return wrapped
}

// RegisterSubscription installs a notification handler without sending a
// subscribe request.
func (c *Client) RegisterSubscription(channel string, h dispatch.SubHandler) {
	if h == nil {
		return
	}
	c.dispatcher.RegisterSubscription(channel, func(pm *dispatch.ParsedMessage) {
		c.met.SubDispatched()
		h(pm)
	})
}

// Subscribe registers handler for channel and queues a public/subscribe
// request, reporting whether it was accepted.
func (c *Client) Subscribe(channel string, handler dispatch.SubHandler) bool {
	c.RegisterSubscription(channel, handler)
	return c.enqueue(protocol.NewSubscribeRequest(deribit.SubscribeRequestID, channel))
}

// SendRPC builds an envelope and queues it, reporting whether it was
// accepted (queued) or refused by the advisory rate check or a full queue.
func (c *Client) SendRPC(id uint64, method string, params any) bool {
	return c.enqueue(protocol.NewRequest(id, method, params))
}

// enqueue encodes req and pushes it onto the outbound queue behind the
// advisory rate check.
func (c *Client) enqueue(req protocol.Request) bool {
	frame, err := req.Encode()
	if err != nil {
		c.log.Error("dropping unencodable request", "method", req.Method, "err", err)
		return false
	}

	if !c.advisory.Allow() {
		c.log.Warn("rate limit hit, request refused", "id", req.ID, "method", req.Method)
		c.met.RateLimited()
		return false
	}

	if !c.outbound.TryPush(frame) {
		c.log.Warn("outbound queue full, request dropped", "id", req.ID, "method", req.Method)
		return false
	}
	return true
}

// Close shuts the pipeline down in a fixed order: mark Closing, close the
// inbound queue to wake the dispatch loop, signal the receiver, close the
// transport to unblock its read, stop the sender, join the receiver, join
// the dispatch loop. Idempotent; subsequent calls return immediately.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(deribit.Closing)

		// Closing the queue wakes a dispatch goroutine parked in BlockingPop
		// even if nothing else ever arrives; remaining frames drain before it
		// observes the close. The receiver stays the queue's sole producer.
		c.inbound.Close()

		c.recv.requestStop()
		c.transport.Close() // unblocks the receiver's in-flight read

		c.send.stop()
		c.recv.stop()

		if c.dispatchDone != nil {
			<-c.dispatchDone
		}

		c.setState(deribit.Closed)
		c.log.Info("client closed")
	})
	return nil
}
