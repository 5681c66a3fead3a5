package deriv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	applogger "DerivBot/pkg/logger"

	"github.com/gorilla/websocket"
)

// SessionOption configures Session.
type SessionOption func(*SessionConfig)

// SessionConfig holds websocket session settings.
type SessionConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	ReadLimit        int64
	Logger           *applogger.Logger
}

// WithHandshakeTimeout bounds the websocket upgrade.
func WithHandshakeTimeout(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		c.HandshakeTimeout = d
	}
}

// WithWriteTimeout bounds each outbound frame.
func WithWriteTimeout(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		c.WriteTimeout = d
	}
}

// WithPingInterval sets the keepalive cadence. Zero disables it.
func WithPingInterval(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		c.PingInterval = d
	}
}

// WithSessionLogger attaches a logger.
func WithSessionLogger(l *applogger.Logger) SessionOption {
	return func(c *SessionConfig) {
		c.Logger = l
	}
}

// Session is one duplex websocket connection to the venue.
// Reads are serialized by readMu and writes by writeMu.
type Session struct {
	cfg      SessionConfig
	endpoint string
	conn     *websocket.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex

	stateMu sync.RWMutex
	open    bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Dial opens a session against endpoint.
func Dial(ctx context.Context, endpoint string, opts ...SessionOption) (*Session, error) {
	cfg := SessionConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadLimit:        4 << 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.NewNop()
	}

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	if cfg.ReadLimit > 0 {
		conn.SetReadLimit(cfg.ReadLimit)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		endpoint: endpoint,
		conn:     conn,
		open:     true,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.keepalive(keepCtx)

	cfg.Logger.Info("deriv session open", applogger.String("endpoint", endpoint))
	return s, nil
}

// Send writes msg as one JSON text frame.
func (s *Session) Send(ctx context.Context, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("deriv encode: %w", err)
	}
	return s.write(ctx, b)
}

func (s *Session) write(ctx context.Context, b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.IsOpen() {
		return &TransportError{Op: "send", Err: ErrNotConnected}
	}

	deadline := time.Now().Add(s.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.markClosed()
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// ReceiveNext blocks for the next inbound frame.
// Undecodable payloads yield *ProtocolError and error frames yield *VenueError;
// neither closes the session.
func (s *Session) ReceiveNext(ctx context.Context) (*Frame, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if !s.IsOpen() {
		return nil, &TransportError{Op: "receive", Err: ErrNotConnected}
	}

	// A gorilla read cannot be resumed after its deadline fires, so a
	// cancelled receive takes the session down with it.
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	_, data, err := s.conn.ReadMessage()
	stop()
	if err != nil {
		s.markClosed()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &TransportError{Op: "receive", Err: ctxErr}
		}
		return nil, &TransportError{Op: "receive", Err: err}
	}
	return decodeFrame(data)
}

// IsOpen reports whether the session can still carry frames.
func (s *Session) IsOpen() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.open
}

// Close sends a close frame and releases the connection. Safe to call twice.
func (s *Session) Close() error {
	s.stateMu.Lock()
	wasOpen := s.open
	s.open = false
	s.stateMu.Unlock()

	s.cancel()
	<-s.done

	if wasOpen {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	if err := s.conn.Close(); err != nil && wasOpen {
		return fmt.Errorf("deriv close: %w", err)
	}
	return nil
}

func (s *Session) markClosed() {
	s.stateMu.Lock()
	s.open = false
	s.stateMu.Unlock()
}

// keepalive sends the venue's application level ping. The pong replies are
// ordinary frames that no waiter matches.
func (s *Session) keepalive(ctx context.Context) {
	defer close(s.done)
	if s.cfg.PingInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	ping := []byte(`{"ping":1}`)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(ctx, ping); err != nil {
				s.cfg.Logger.Warn("deriv keepalive failed", applogger.Error(err))
				// wakes a reader blocked on the dead link
				_ = s.conn.Close()
				return
			}
		}
	}
}
