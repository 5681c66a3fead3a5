package deriv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Transport is the duplex frame channel the correlator runs on. *Session implements it.
type Transport interface {
	Send(ctx context.Context, msg any) error
	ReceiveNext(ctx context.Context) (*Frame, error)
	IsOpen() bool
	Close() error
}

// RequestIDs hands out unique, strictly increasing millisecond based request ids.
// One instance should live for the whole process so ids survive reconnects.
type RequestIDs struct {
	last atomic.Int64
	now  func() time.Time
}

// NewRequestIDs returns an id source driven by the wall clock.
func NewRequestIDs() *RequestIDs {
	return &RequestIDs{now: time.Now}
}

// Next returns max(now in ms, previous+1).
func (r *RequestIDs) Next() int64 {
	for {
		prev := r.last.Load()
		next := r.now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if r.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Correlator matches responses to requests by scanning the inbound stream.
// Only one request may be outstanding at a time: frames that do not match the
// current predicate are dropped.
type Correlator struct {
	transport Transport
	ids       *RequestIDs
	onSkip    func(*Frame)
}

// NewCorrelator binds a correlator to an open transport.
func NewCorrelator(t Transport, ids *RequestIDs) *Correlator {
	if ids == nil {
		ids = NewRequestIDs()
	}
	return &Correlator{transport: t, ids: ids}
}

// NextRequestID returns a fresh request id.
func (c *Correlator) NextRequestID() int64 { return c.ids.Next() }

// AwaitMatching reads frames until one satisfies match. Undecodable frames are
// skipped; a venue error or transport failure ends the scan.
func (c *Correlator) AwaitMatching(ctx context.Context, match Predicate) (*Frame, error) {
	for {
		f, err := c.transport.ReceiveNext(ctx)
		if err != nil {
			var pe *ProtocolError
			if errors.As(err, &pe) {
				continue
			}
			return nil, err
		}
		if match(f) {
			return f, nil
		}
		if c.onSkip != nil {
			c.onSkip(f)
		}
	}
}

// Request sends the message built for a fresh id and waits for its reply.
func (c *Correlator) Request(ctx context.Context, build func(reqID int64) any, msgTypes ...string) (*Frame, error) {
	id := c.NextRequestID()
	if err := c.transport.Send(ctx, build(id)); err != nil {
		return nil, err
	}
	f, err := c.AwaitMatching(ctx, ReplyTo(id, msgTypes...))
	if err != nil {
		return nil, fmt.Errorf("await req %d: %w", id, err)
	}
	return f, nil
}
