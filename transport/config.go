package transport

import (
	"time"

	"github.com/vidrail/rtvt/framepool"
	"github.com/vidrail/rtvt/wire"
)

// Config holds an endpoint's MTU, timeouts, and retry/capacity caps — an
// immutable configuration snapshot fixed for the lifetime of an Endpoint.
type Config struct {
	MTU int

	SocketBufferSize int

	IFragRetransTimeout time.Duration
	IFragMaxRetrans     int

	DataRetransTimeout time.Duration
	DataMaxRetrans     int

	ConnectTimeout    time.Duration
	ConnectMaxRetrans int

	HeartbeatInterval time.Duration
	HeartbeatMaxMiss  int

	ReassemblyTimeout time.Duration

	MaxFramePayload int
	URLMaxLength    int
}

// DefaultConfig returns RTVT's recommended defaults for a LAN/Internet
// real-time video link.
func DefaultConfig() Config {
	return Config{
		MTU:                  1400,
		SocketBufferSize:     2 * 1024 * 1024,
		IFragRetransTimeout:  5 * time.Millisecond,
		IFragMaxRetrans:      3,
		DataRetransTimeout:   30 * time.Millisecond,
		DataMaxRetrans:       3,
		ConnectTimeout:       100 * time.Millisecond,
		ConnectMaxRetrans:    3,
		HeartbeatInterval:    60_000 * time.Millisecond,
		HeartbeatMaxMiss:     3,
		ReassemblyTimeout:    100 * time.Millisecond,
		MaxFramePayload:      framepool.MediaPayloadCap,
		URLMaxLength:         100,
	}
}

// Validate accumulates every invalid field rather than stopping at the
// first, so a caller inspecting a failure sees every violation at once.
func (c Config) Validate() error {
	var errs error

	if c.MTU <= wire.HeaderSize {
		errs = appendErr(errs, newError(ErrInvalidParam, "mtu must exceed the header size"))
	}
	if c.MaxFramePayload <= 0 {
		errs = appendErr(errs, newError(ErrInvalidParam, "max_frame_payload must be positive"))
	}
	if c.URLMaxLength <= 0 || c.URLMaxLength > 100 {
		errs = appendErr(errs, newError(ErrInvalidParam, "url_max_length must be in (0, 100]"))
	}
	if c.IFragMaxRetrans < 0 || c.DataMaxRetrans < 0 || c.ConnectMaxRetrans < 0 {
		errs = appendErr(errs, newError(ErrInvalidParam, "retry budgets must be non-negative"))
	}
	if c.HeartbeatMaxMiss <= 0 {
		errs = appendErr(errs, newError(ErrInvalidParam, "heartbeat_max_miss must be positive"))
	}

	return errs
}
