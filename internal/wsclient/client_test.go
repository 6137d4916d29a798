package wsclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/config"
	"github.com/QuantDreamGit/HFT-Deribit/internal/dispatch"
	"github.com/QuantDreamGit/HFT-Deribit/internal/ratelimit"
)

// fakeTransport is an in-memory deribit.Transport: Read blocks on a frame
// channel, Send records frames, Close unblocks Read.
type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte

	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		incoming: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(context.Context) error { return nil }

func (f *fakeTransport) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeTransport) Read() []byte {
	select {
	case frame := <-f.incoming:
		return frame
	case <-f.closed:
		return nil
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) deliver(frame string) {
	f.incoming <- []byte(frame)
}

func (f *fakeTransport) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, b := range f.sent {
		out[i] = string(b)
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testCreds() config.Credentials {
	return config.Credentials{ClientID: "id", ClientSecret: "secret"}
}

// TestConnectAuthenticates connects with credentials, feeds the auth
// response, and checks the token is stored and the state advances.
func TestConnectAuthenticates(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Credentials: testCreds(), Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if got := c.State(); got != deribit.Authenticating {
		t.Fatalf("state after Connect = %v, want authenticating", got)
	}

	waitFor(t, "auth request on the wire", func() bool {
		for _, f := range ft.sentFrames() {
			if strings.Contains(f, `"method":"public/auth"`) &&
				strings.Contains(f, `"grant_type":"client_credentials"`) {
				return true
			}
		}
		return false
	})

	ft.deliver(`{"jsonrpc":"2.0","id":9001,"result":{"access_token":"tok-1","expires_in":900}}`)

	waitFor(t, "authenticated state", func() bool { return c.State() == deribit.Authenticated })
	if got := c.AccessToken(); got != "tok-1" {
		t.Fatalf("AccessToken = %q, want tok-1", got)
	}
}

// TestAuthErrorLeavesTokenEmpty feeds an error response to the auth request.
func TestAuthErrorLeavesTokenEmpty(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Credentials: testCreds(), Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	ft.deliver(`{"jsonrpc":"2.0","id":9001,"error":{"code":13004,"message":"invalid_credentials"}}`)

	waitFor(t, "fallback to connected", func() bool { return c.State() == deribit.Connected })
	if got := c.AccessToken(); got != "" {
		t.Fatalf("AccessToken = %q, want empty after auth failure", got)
	}
}

// TestAuthenticateWithoutCredentials checks the fatal precondition.
func TestAuthenticateWithoutCredentials(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Authenticate(); err != deribit.ErrMissingCredentials {
		t.Fatalf("Authenticate = %v, want ErrMissingCredentials", err)
	}
}

// TestPrivateTokenInjection authenticates, sends a private request, and
// checks the transmitted frame carries the token before the final brace
// with the rest of the envelope unchanged.
func TestPrivateTokenInjection(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Credentials: testCreds(), Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	ft.deliver(`{"id":9001,"result":{"access_token":"T"}}`)
	waitFor(t, "authenticated state", func() bool { return c.State() == deribit.Authenticated })

	if !c.SendRPC(55, "private/get_positions", map[string]string{"currency": "BTC"}) {
		t.Fatal("SendRPC refused")
	}

	want := `{"jsonrpc":"2.0","id":55,"method":"private/get_positions","params":{"currency":"BTC"},"access_token":"T"}`
	waitFor(t, "private frame with token", func() bool {
		for _, f := range ft.sentFrames() {
			if f == want {
				return true
			}
		}
		return false
	})
}

// TestPrivateWithoutTokenSentBare sends a private request before
// authentication: the frame goes out untouched.
func TestPrivateWithoutTokenSentBare(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if !c.SendRPC(7, "private/get_positions", nil) {
		t.Fatal("SendRPC refused")
	}

	want := `{"jsonrpc":"2.0","id":7,"method":"private/get_positions"}`
	waitFor(t, "bare private frame", func() bool {
		for _, f := range ft.sentFrames() {
			if f == want {
				return true
			}
		}
		return false
	})
}

// TestSubscribeRoundTrip subscribes to a channel, checks the subscribe
// envelope, then feeds a notification and asserts the handler fires.
func TestSubscribeRoundTrip(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	got := make(chan string, 1)
	ok := c.Subscribe("deribit_price_index.btc_usd", func(pm *dispatch.ParsedMessage) {
		got <- fmt.Sprintf("%s|%s", pm.Channel, pm.Data)
	})
	if !ok {
		t.Fatal("Subscribe refused")
	}

	waitFor(t, "subscribe frame", func() bool {
		for _, f := range ft.sentFrames() {
			if strings.Contains(f, `"channels":["deribit_price_index.btc_usd"]`) {
				return true
			}
		}
		return false
	})

	ft.deliver(`{"method":"subscription","params":{"channel":"deribit_price_index.btc_usd","data":{"price":50000}}}`)

	select {
	case v := <-got:
		if v != `deribit_price_index.btc_usd|{"price":50000}` {
			t.Fatalf("handler saw %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the handler")
	}
}

// TestAdvisoryRateCheckRefuses exhausts a one-token bucket and checks the
// caller-visible refusal.
func TestAdvisoryRateCheckRefuses(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{
		Transport: ft,
		RateLimit: &ratelimit.Config{RequestsPerSecond: 0.001, Burst: 1, Enabled: true},
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if !c.SendRPC(1, "public/ping", nil) {
		t.Fatal("first request should pass the advisory check")
	}
	if c.SendRPC(2, "public/ping", nil) {
		t.Fatal("second request should be refused by the advisory check")
	}
}

// TestCloseTerminatesPipeline connects, parks every goroutine, then checks
// Close joins them all within the grace window and is idempotent.
func TestCloseTerminatesPipeline(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Let the receiver and dispatch loops reach their blocking reads.
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Close()
		c.Close() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not terminate the pipeline")
	}
	if got := c.State(); got != deribit.Closed {
		t.Fatalf("state after Close = %v, want closed", got)
	}
}

// TestPeerDisconnectStopsReceiver simulates the server dropping the
// connection; Close afterwards must still join cleanly.
func TestPeerDisconnectStopsReceiver(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ft.Close() // Read returns nil, receiver treats it as end of stream

	waitFor(t, "receiver exit", func() bool {
		return c.recv.state.Load() == recvStopped
	})
	if err := c.Close(); err != nil {
		t.Fatalf("Close after disconnect: %v", err)
	}
}

// TestConnectTwiceFails guards the state machine.
func TestConnectTwiceFails(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	c := New(&Config{Transport: ft})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Connect(context.Background()); err != deribit.ErrAlreadyConnected {
		t.Fatalf("second Connect = %v, want ErrAlreadyConnected", err)
	}
}
