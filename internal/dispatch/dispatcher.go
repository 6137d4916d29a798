package dispatch

import "bytes"

const (
	// MaxInflight sizes the RPC correlation table. Power of two so the id
	// lookup is a single mask.
	MaxInflight = 4096

	// SubTable sizes the subscription handler table.
	SubTable = 4096
)

// RPCHandler holds the callbacks for one in-flight request id.
type RPCHandler struct {
	// OnSuccess receives responses carrying a result.
	OnSuccess func(*ParsedMessage)
	// OnError receives responses carrying an error payload.
	OnError func(*ParsedMessage)
}

// SubHandler receives subscription notifications for one channel.
type SubHandler func(*ParsedMessage)

// Dispatcher parses one inbound frame per call and routes it to a registered
// handler. Lookups are O(1) against fixed arrays; two ids (or channel hashes)
// that alias the same slot follow last-write-wins, an accepted trade-off for
// latency. Registration is a plain table write and must not race with
// Dispatch on the same slot.
type Dispatcher struct {
	rpc [MaxInflight]RPCHandler
	sub [SubTable]SubHandler
}

// New creates a dispatcher with empty tables.
func New() *Dispatcher {
	return &Dispatcher{}
}

// RegisterRPC installs h for responses whose id maps to the slot
// id & (MaxInflight-1), overwriting any previous occupant. The slot is not
// cleared after a response fires; callers reusing an id must re-register.
func (d *Dispatcher) RegisterRPC(id uint64, h RPCHandler) {
	d.rpc[id&(MaxInflight-1)] = h
}

// RegisterSubscription installs h for the channel's hash slot, overwriting
// any previous occupant (including a different channel that aliases it).
func (d *Dispatcher) RegisterSubscription(channel string, h SubHandler) {
	d.sub[fnv1a32([]byte(channel))&(SubTable-1)] = h
}

// Dispatch classifies one frame and invokes the matching handler, if any.
// Malformed or unclassifiable frames are dropped without error; nothing
// escapes this boundary. The ParsedMessage handed to callbacks borrows
// sub-slices of buf and must not be retained.
func (d *Dispatcher) Dispatch(buf []byte) {
	var pm ParsedMessage

	// A parseable top-level integer id marks an RPC response.
	if raw, ok := findField(buf, "id"); ok {
		if id, ok := parseUint(raw); ok {
			pm.IsRPC = true
			pm.ID = id
		}
	}

	// Without an id, method == "subscription" marks a push notification.
	if !pm.IsRPC {
		if raw, ok := findField(buf, "method"); ok {
			if m, ok := unquote(raw); ok && string(m) == "subscription" {
				pm.IsSubscription = true
			}
		}
	}

	if !pm.IsRPC && !pm.IsSubscription {
		return
	}

	// Latency fields ride along on both frame kinds when present.
	if raw, ok := findField(buf, "usIn"); ok {
		pm.UsIn, _ = parseUint(raw)
	}
	if raw, ok := findField(buf, "usOut"); ok {
		pm.UsOut, _ = parseUint(raw)
	}
	if raw, ok := findField(buf, "usDiff"); ok {
		pm.UsDiff, _ = parseUint(raw)
	}

	if pm.IsRPC {
		d.dispatchRPC(buf, &pm)
		return
	}
	d.dispatchSubscription(buf, &pm)
}

func (d *Dispatcher) dispatchRPC(buf []byte, pm *ParsedMessage) {
	h := &d.rpc[pm.ID&(MaxInflight-1)]

	if errRaw, ok := findField(buf, "error"); ok && !bytes.Equal(errRaw, nullLiteral) {
		pm.IsError = true
		if raw, ok := findField(errRaw, "code"); ok {
			pm.ErrorCode, _ = parseInt(raw)
		}
		if raw, ok := findField(errRaw, "message"); ok {
			pm.ErrorMsg, _ = unquote(raw)
		}
		if h.OnError != nil {
			h.OnError(pm)
		}
		return
	}

	if raw, ok := findField(buf, "result"); ok {
		pm.Result = raw
		// The auth response nests the token inside the result object; pull
		// it out here so the success handler gets an owned copy.
		if len(raw) > 0 && raw[0] == '{' {
			if tok, ok := findField(raw, "access_token"); ok {
				if v, ok := unquote(tok); ok {
					pm.AccessToken = string(v)
				}
			}
		}
	}
	if h.OnSuccess != nil {
		h.OnSuccess(pm)
	}
}

func (d *Dispatcher) dispatchSubscription(buf []byte, pm *ParsedMessage) {
	params, ok := findField(buf, "params")
	if !ok || len(params) == 0 || params[0] != '{' {
		return
	}

	chRaw, ok := findField(params, "channel")
	if !ok {
		return
	}
	ch, ok := unquote(chRaw)
	if !ok {
		return
	}
	pm.Channel = ch

	data, ok := findField(params, "data")
	if !ok {
		return
	}
	pm.Data = data

	if h := d.sub[fnv1a32(pm.Channel)&(SubTable-1)]; h != nil {
		h(pm)
	}
}
