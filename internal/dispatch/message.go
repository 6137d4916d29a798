// Package dispatch classifies inbound exchange frames and routes them to
// registered handlers through two fixed-size lookup tables: an RPC table
// indexed by request id and a subscription table indexed by a hash of the
// channel name.
//
// Parsing is zero-copy: the classifier extracts top-level fields as
// sub-slices of the original frame without building a document tree.
package dispatch

// ParsedMessage is the transient view produced for each dispatched frame.
//
// IsRPC and IsSubscription are mutually exclusive; IsError is meaningful only
// when IsRPC is set. Result, Channel, Data and ErrorMsg borrow sub-slices of
// the dispatched buffer and are valid only for the duration of the handler
// call that receives them. AccessToken is an owned copy, populated
// opportunistically when an RPC result object carries that field.
type ParsedMessage struct {
	// AccessToken holds the token string when the result contains one.
	AccessToken string

	// IsRPC marks a response to a previously sent request.
	IsRPC bool

	// IsSubscription marks an unsolicited push notification.
	IsSubscription bool

	// IsError marks an RPC response carrying an error payload.
	IsError bool

	// ID correlates RPC responses with requests. Valid iff IsRPC.
	ID uint64

	// ErrorCode is the exchange error code. Valid iff IsError.
	ErrorCode int64

	// UsIn, UsOut and UsDiff mirror the exchange's microsecond latency
	// fields when the frame carries them.
	UsIn, UsOut, UsDiff uint64

	// Channel names the subscription stream. Valid iff IsSubscription.
	Channel []byte

	// Data is the raw notification payload. Valid iff IsSubscription.
	Data []byte

	// Result is the raw JSON result. Valid iff IsRPC && !IsError.
	Result []byte

	// ErrorMsg is the error message text. Valid iff IsError.
	ErrorMsg []byte
}
