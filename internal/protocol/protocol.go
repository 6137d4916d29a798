// Package protocol builds the JSON-RPC 2.0 envelopes the client puts on the
// wire. Requests are marshalled from typed structs so every interpolated
// string is escaped; the only byte-level mutation is the access-token
// injection the sender applies to already-encoded private frames.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/sugawarayuuta/sonnet"
)

// Version is the JSON-RPC version sent in every envelope.
const Version = "2.0"

// Request is one outbound JSON-RPC envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// AuthParams is the OAuth2 client-credentials grant payload for public/auth.
type AuthParams struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SubscribeParams is the payload for public/subscribe.
type SubscribeParams struct {
	Channels []string `json:"channels"`
}

// ChartParams is the payload for public/get_tradingview_chart_data.
type ChartParams struct {
	InstrumentName string `json:"instrument_name"`
	Resolution     string `json:"resolution"`
	StartTimestamp int64  `json:"start_timestamp"`
	EndTimestamp   int64  `json:"end_timestamp"`
}

// NewRequest assembles an envelope for method with the given correlation id.
func NewRequest(id uint64, method string, params any) Request {
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// Encode marshals the envelope to a wire frame.
func (r Request) Encode() ([]byte, error) {
	out, err := sonnet.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s request: %w", r.Method, err)
	}
	return out, nil
}

// NewAuthRequest builds the client-credentials authentication request.
func NewAuthRequest(id uint64, clientID, clientSecret string) Request {
	return NewRequest(id, "public/auth", AuthParams{
		GrantType:    "client_credentials",
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// NewSubscribeRequest builds a public/subscribe request for one channel.
func NewSubscribeRequest(id uint64, channel string) Request {
	return NewRequest(id, "public/subscribe", SubscribeParams{Channels: []string{channel}})
}

// InjectField inserts a ,"key":"value" pair immediately before the final
// closing brace of an encoded JSON object, leaving the rest of the frame
// untouched. The value is escaped through the JSON encoder, so the frame
// stays well-formed regardless of its content. The frame is returned
// unchanged when no closing brace is found.
func InjectField(frame []byte, key, value string) []byte {
	pos := bytes.LastIndexByte(frame, '}')
	if pos < 0 {
		return frame
	}

	quotedKey, err := sonnet.Marshal(key)
	if err != nil {
		return frame
	}
	quotedVal, err := sonnet.Marshal(value)
	if err != nil {
		return frame
	}

	out := make([]byte, 0, len(frame)+len(quotedKey)+len(quotedVal)+2)
	out = append(out, frame[:pos]...)
	out = append(out, ',')
	out = append(out, quotedKey...)
	out = append(out, ':')
	out = append(out, quotedVal...)
	out = append(out, frame[pos:]...)
	return out
}

// IsPrivate reports whether an encoded frame carries a private/ method and
// therefore needs an access token.
func IsPrivate(frame []byte) bool {
	return bytes.Contains(frame, []byte(`"method":"private/`))
}
