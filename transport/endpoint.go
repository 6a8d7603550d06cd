package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/conn"
	"github.com/vidrail/rtvt/framepool"
	"github.com/vidrail/rtvt/framequeue"
	"github.com/vidrail/rtvt/tracker"
	"github.com/vidrail/rtvt/wire"
)

// Role distinguishes a sending endpoint (TX) from a receiving one (RX).
type Role int

const (
	RoleTX Role = iota
	RoleRX
)

// Endpoint is the shared TX/RX state: socket, pools, queues, retained
// I-frame, atomic counters, config snapshot, and statistics.
type Endpoint struct {
	role Role
	cfg  Config
	cb   Callbacks

	sock *net.UDPConn
	sm   *conn.StateMachine

	mediaPool   *framepool.Pool
	controlPool *framepool.Pool
	trackerPool *tracker.Pool

	reliableQueue *framequeue.Queue
	receiveQueue  *framequeue.Queue // RX only

	iframeMu sync.Mutex
	iframe   *framepool.Frame // TX: retained last I-frame. RX: cached last completed I-frame.

	nextSeqNum         uint32
	nextFrameID        uint32 // stored wide, truncated to uint16 on assignment
	lastReceivedSeqNum uint32

	stats Stats

	running atomic.Bool
}

func roleToConnRole(r Role) conn.Role {
	if r == RoleTX {
		return conn.RoleTX
	}
	return conn.RoleRX
}

// NewEndpoint creates an Endpoint on sock, an already bound UDP socket. The
// endpoint owns sock and closes it on Close.
func NewEndpoint(role Role, sock *net.UDPConn, cfg Config, cb Callbacks) (*Endpoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, wrapError(ErrInvalidParam, "invalid config", err)
	}

	if err := sock.SetReadBuffer(cfg.SocketBufferSize); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("failed to set socket read buffer size")
	}
	if err := sock.SetWriteBuffer(cfg.SocketBufferSize); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("failed to set socket write buffer size")
	}

	ep := &Endpoint{
		role:          role,
		cfg:           cfg,
		cb:            cb,
		sock:          sock,
		mediaPool:     framepool.NewPool(4, cfg.MaxFramePayload),
		controlPool:   framepool.NewPool(4, framepool.ControlPayloadCap),
		trackerPool:   tracker.NewPool(),
		reliableQueue: framequeue.New(cfg.DataRetransTimeout * time.Duration(cfg.DataMaxRetrans+1)),
		sm: conn.New(roleToConnRole(role), conn.Config{
			ConnectTimeout:    cfg.ConnectTimeout,
			ConnectMaxRetrans: cfg.ConnectMaxRetrans,
			HeartbeatInterval: cfg.HeartbeatInterval,
			HeartbeatMaxMiss:  cfg.HeartbeatMaxMiss,
		}),
	}
	if role == RoleRX {
		ep.receiveQueue = framequeue.New(cfg.ReassemblyTimeout)
	}
	ep.running.Store(true)

	return ep, nil
}

// Stats returns a snapshot of the endpoint's counters.
func (ep *Endpoint) Stats() StatsSnapshot {
	return ep.stats.Snapshot()
}

// Connected reports whether the handshake has completed and the
// connection has not since been torn down.
func (ep *Endpoint) Connected() bool {
	return ep.sm.State() == conn.Connected
}

func (ep *Endpoint) peerAddr() net.Addr {
	return ep.sm.Peer()
}

// setIframe replaces the retained/cached I-frame, releasing whichever one
// was there before. It takes iframeMu itself; callers must not hold it.
func (ep *Endpoint) setIframe(f *framepool.Frame) {
	ep.iframeMu.Lock()
	prev := ep.iframe
	ep.iframe = f
	ep.iframeMu.Unlock()

	if prev != nil {
		prev.Release()
	}
}

func (ep *Endpoint) getIframe() *framepool.Frame {
	ep.iframeMu.Lock()
	defer ep.iframeMu.Unlock()
	return ep.iframe
}

// Close stops the poll loop's effect, drains queues (releasing each frame
// once), releases the retained I-frame, and closes the socket.
// Outstanding external references to a frame at Close time leak by
// design. ctx bounds the drain: a graceful shutdown passes
// context.Background() (or a generous deadline) to drain fully, while a
// forced abort passes an already-expired or cancelled context to stop
// draining immediately and close the socket regardless of what remains
// queued — see DESIGN.md for the graceful-vs-forced destroy distinction.
func (ep *Endpoint) Close(ctx context.Context) error {
	ep.running.Store(false)

	drainQueue(ctx, ep.reliableQueue)
	if ep.receiveQueue != nil {
		drainQueue(ctx, ep.receiveQueue)
	}

	ep.setIframe(nil)

	if mo := ep.mediaPool.Outstanding(); mo > 0 {
		log.WithFields(log.Fields{"outstanding": mo}).Warn("media pool has outstanding frames at Close")
	}
	if co := ep.controlPool.Outstanding(); co > 0 {
		log.WithFields(log.Fields{"outstanding": co}).Warn("control pool has outstanding frames at Close")
	}

	return ep.sock.Close()
}

func (ep *Endpoint) nextSeq() uint32 {
	return atomic.AddUint32(&ep.nextSeqNum, 1) - 1
}

func (ep *Endpoint) nextFrame() uint16 {
	return uint16(atomic.AddUint32(&ep.nextFrameID, 1) - 1)
}

func (ep *Endpoint) poolFor(ft wire.FrameType) *framepool.Pool {
	if ft.IsMedia() {
		return ep.mediaPool
	}
	return ep.controlPool
}

// drainQueue pops and releases every frame in q, stopping early if ctx is
// done (the forced-abort path of Close).
func drainQueue(ctx context.Context, q *framequeue.Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		f := q.Pop()
		if f == nil {
			return
		}
		f.Release()
	}
}
