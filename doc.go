// Package deribit provides a low-latency WebSocket JSON-RPC 2.0 client for the
// Deribit cryptocurrency exchange.
//
// The client sustains two concurrent traffic classes: outbound RPC requests
// (including authenticated "private" calls) and inbound push notifications
// (subscriptions). Responses are correlated to requests by numeric id,
// outbound traffic is admission-controlled by a token bucket, and network I/O
// goroutines are decoupled from application callback execution by lock-free
// single-producer/single-consumer queues.
//
// # Architecture
//
// Data flows through a fixed pipeline:
//
//	caller → SendRPC/Subscribe → outbound queue → sender (rate-limited) → transport
//	transport → receiver → inbound queue → dispatcher → registered handler
//
// The receiver and sender each own one goroutine; a third goroutine drains the
// inbound queue and feeds the dispatcher. The dispatcher classifies each
// inbound frame as an RPC response (top-level "id") or a subscription
// notification (method == "subscription") and routes it through two fixed-size
// lookup tables with zero-copy field extraction.
//
// # Quick Start
//
//	import (
//	    "github.com/QuantDreamGit/HFT-Deribit/client"
//	)
//
//	creds, err := client.CredentialsFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c := client.New(client.DefaultConfig(creds))
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.Subscribe("deribit_price_index.btc_usd", func(pm *dispatch.ParsedMessage) {
//	    fmt.Printf("%s: %s\n", pm.Channel, pm.Data)
//	})
//
// # Handler Lifetime
//
// Subscription and RPC handlers receive a *ParsedMessage whose Result, Channel
// and Data fields borrow sub-slices of the inbound frame. They are valid only
// for the duration of the handler call; copy them if they must outlive it.
//
// # Rate Limiting
//
// Outbound requests pass a token bucket (default burst 20, refill 5/s).
// SendRPC and Subscribe consult the limiter advisorily and report refusal as a
// boolean; the sender goroutine applies the authoritative gate before each
// transmit.
//
// # Correlation Tables
//
// RPC handlers are stored in a fixed table indexed by id & (MaxInflight-1);
// subscription handlers by a 32-bit FNV-1a hash of the channel name. Two ids
// (or channels) that alias the same slot follow last-write-wins: callers must
// keep in-flight ids unique modulo the table size or accept the overwrite.
// Slots are not cleared after a response fires; reusing an id requires
// re-registering.
//
// # Important
//
//   - Exactly one producer and one consumer per queue, enforced by
//     construction: do not call Dispatch concurrently with registration for
//     the same slot.
//   - Close() sequences shutdown across all three goroutines; it is safe to
//     call once from any goroutine after Connect.
package deribit
