package wsclient

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/metrics"
	"github.com/QuantDreamGit/HFT-Deribit/internal/protocol"
	"github.com/QuantDreamGit/HFT-Deribit/internal/ratelimit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/spsc"
)

// sender states.
const (
	sendIdle int32 = iota
	sendRunning
	sendStopped
)

// sender owns the goroutine that drains the outbound queue, applies the
// authoritative rate gate and private-request token injection, and writes to
// the transport. It is the queue's only consumer.
type sender struct {
	queue     *spsc.Queue[[]byte]
	transport deribit.Transport
	limiter   *ratelimit.Limiter
	token     func() string
	log       *slog.Logger
	met       *metrics.Set

	state    atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
	joinOnce sync.Once
}

func newSender(q *spsc.Queue[[]byte], t deribit.Transport, lim *ratelimit.Limiter,
	token func() string, log *slog.Logger, met *metrics.Set) *sender {
	return &sender{
		queue:     q,
		transport: t,
		limiter:   lim,
		token:     token,
		log:       log,
		met:       met,
		done:      make(chan struct{}),
	}
}

// start spawns the send loop. No-op unless the sender is idle.
func (s *sender) start() {
	if !s.state.CompareAndSwap(sendIdle, sendRunning) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.log.Debug("sender starting")
	go s.run(ctx)
}

func (s *sender) run(ctx context.Context) {
	defer func() {
		s.log.Info("sender stopped")
		close(s.done)
	}()

	for s.state.Load() == sendRunning {
		// Parking on the queue instead of polling keeps the admission loop
		// off the CPU while idle; tokens refill regardless.
		frame, ok := s.queue.BlockingPop()
		if !ok {
			return
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return // shutdown while throttled; the frame is forfeited
		}

		if protocol.IsPrivate(frame) {
			if tok := s.token(); tok != "" {
				frame = protocol.InjectField(frame, "access_token", tok)
			} else {
				s.log.Warn("private request sent without access token")
				s.met.PrivateWithoutToken()
			}
		}

		if err := s.transport.Send(frame); err != nil {
			s.log.Warn("send failed, frame not retried", "err", err)
			continue
		}
		s.met.FrameSent()
	}
}

// stop flips the flag, wakes the goroutine out of its queue wait or rate
// wait, and joins it.
func (s *sender) stop() {
	if s.state.Load() == sendIdle {
		s.state.Store(sendStopped)
		return
	}
	s.state.Store(sendStopped)
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Close()
	s.joinOnce.Do(func() { <-s.done })
}
