package deribit

import "errors"

// WebSocket endpoints.
const (
	MainnetURL = "wss://www.deribit.com/ws/api/v2"
	TestnetURL = "wss://test.deribit.com/ws/api/v2"
)

// JSON-RPC version string sent in every request envelope.
const JSONRPCVersion = "2.0"

// RPC method names used by the client itself.
const (
	MethodAuth      = "public/auth"
	MethodSubscribe = "public/subscribe"
	MethodChartData = "public/get_tradingview_chart_data"
)

// PrivatePrefix marks methods that require an access token.
const PrivatePrefix = "private/"

// Fixed request ids for the client's own RPCs. Application requests should
// stay clear of these modulo the dispatcher table size.
const (
	AuthRequestID      uint64 = 9001
	SubscribeRequestID uint64 = 1001
	ChartRequestID     uint64 = 0xC0FFEE
)

// Standard errors surfaced by the client.
var (
	ErrMissingCredentials = errors.New("deribit: client id or secret not set")
	ErrNotConnected       = errors.New("deribit: client is not connected")
	ErrAlreadyConnected   = errors.New("deribit: client is already connected")
	ErrConnectionClosed   = errors.New("deribit: connection closed")
)
