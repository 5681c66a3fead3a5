package deriv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var errDrained = errors.New("fake transport drained")

// fakeTransport replays queued raw frames and records every sent message.
// respond, when set, queues replies for each message sent.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []map[string]any
	queue   []string
	respond func(req map[string]any) []string
	closed  bool
	sendErr error
}

func (f *fakeTransport) push(raw ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, raw...)
}

func (f *fakeTransport) Send(_ context.Context, msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.closed {
		return &TransportError{Op: "send", Err: ErrNotConnected}
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	f.sent = append(f.sent, m)
	if f.respond != nil {
		f.queue = append(f.queue, f.respond(m)...)
	}
	return nil
}

func (f *fakeTransport) ReceiveNext(_ context.Context) (*Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, &TransportError{Op: "receive", Err: errDrained}
	}
	raw := f.queue[0]
	f.queue = f.queue[1:]
	return decodeFrame([]byte(raw))
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) lastSent() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func reqID(m map[string]any) int64 {
	v, _ := m["req_id"].(float64)
	return int64(v)
}

func reply(m map[string]any, msgType, body string) string {
	if body == "" {
		return fmt.Sprintf(`{"msg_type":%q,"req_id":%d}`, msgType, reqID(m))
	}
	return fmt.Sprintf(`{"msg_type":%q,"req_id":%d,%s}`, msgType, reqID(m), body)
}
