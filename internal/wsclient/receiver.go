package wsclient

import (
	"log/slog"
	"sync"
	"sync/atomic"

	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/metrics"
	"github.com/QuantDreamGit/HFT-Deribit/internal/spsc"
)

// receiver states.
const (
	recvIdle int32 = iota
	recvRunning
	recvStopping
	recvStopped
)

// receiver owns the goroutine that pulls frames from the transport and
// pushes them into the inbound queue. It is the queue's only producer.
type receiver struct {
	transport deribit.Transport
	queue     *spsc.Queue[[]byte]
	log       *slog.Logger
	met       *metrics.Set

	state    atomic.Int32
	done     chan struct{}
	joinOnce sync.Once
}

func newReceiver(t deribit.Transport, q *spsc.Queue[[]byte], log *slog.Logger, met *metrics.Set) *receiver {
	return &receiver{
		transport: t,
		queue:     q,
		log:       log,
		met:       met,
		done:      make(chan struct{}),
	}
}

// start spawns the read loop. No-op unless the receiver is idle.
func (r *receiver) start() {
	if !r.state.CompareAndSwap(recvIdle, recvRunning) {
		return
	}
	r.log.Debug("receiver starting")
	go r.run()
}

func (r *receiver) run() {
	defer func() {
		r.state.Store(recvStopped)
		r.log.Info("receiver stopped")
		close(r.done)
	}()

	for r.state.Load() == recvRunning {
		frame := r.transport.Read()

		// A nil/empty read marks end of stream: either the peer closed or
		// stop() tore the transport down beneath us.
		if len(frame) == 0 {
			return
		}

		if !r.queue.TryPush(frame) {
			r.log.Warn("inbound queue full, dropping frame", "len", len(frame))
			r.met.InboundDropped()
			continue
		}
		r.met.FrameReceived()
	}
}

// requestStop flips the running flag without joining, signalling intent
// early in the shutdown sequence.
func (r *receiver) requestStop() {
	r.state.CompareAndSwap(recvRunning, recvStopping)
}

// stop flips the flag, closes the transport to unblock an in-flight Read,
// and joins the goroutine. The join happens at most once.
func (r *receiver) stop() {
	r.requestStop()
	r.transport.Close()
	r.joinOnce.Do(func() {
		if r.state.Load() != recvIdle {
			<-r.done
		}
	})
}
