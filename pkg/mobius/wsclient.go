package mobius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler receives the raw payload of a push event.
type Handler func(data json.RawMessage)

// Callback receives the outcome of one RPC call. Exactly one of result and
// err is meaningful.
type Callback func(result json.RawMessage, err error)

type Options struct {
	URL              string
	UserAgent        string
	Subprotocol      string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

type pendingCall struct {
	cmd string
	cb  Callback
}

// WSClient is the framed RPC transport to the upstream trade server.
// Replies and push events are dispatched from the Listen goroutine, so
// handlers and callbacks never run concurrently with each other.
// It does not reconnect: after a read error it emits EventClose and stops.
type WSClient struct {
	opts   Options
	logger *zap.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	nextID   int64
	pending  map[int64]pendingCall
	handlers map[string][]Handler
}

// NewWSClient creates a new WebSocket client with the given options and logger.
func NewWSClient(opts Options, logger *zap.Logger) *WSClient {
	if opts.Subprotocol == "" {
		opts.Subprotocol = "trader"
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &WSClient{
		opts:     opts,
		logger:   logger,
		pending:  make(map[int64]pendingCall),
		handlers: make(map[string][]Handler),
	}
}

// On registers h for the named push event.
func (c *WSClient) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// IsOpen reports whether a connection is currently established.
func (c *WSClient) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the upstream and emits EventOpen. It does not start the listener.
func (c *WSClient) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		Subprotocols:     []string{c.opts.Subprotocol},
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		c.logger.Error("Failed to connect to upstream", zap.String("url", c.opts.URL), zap.Error(err))
		return fmt.Errorf("dial upstream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("Upstream connected", zap.String("url", c.opts.URL))
	c.emit(EventOpen, nil)
	return nil
}

// Listen reads frames until the connection fails or ctx is cancelled.
// On exit every pending call completes with ErrClosed and EventClose is emitted.
func (c *WSClient) Listen(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var readErr error
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		c.dispatch(msg)
	}

	c.shutdown(conn)

	if ctx.Err() != nil {
		return nil
	}
	c.logger.Error("Upstream read error", zap.Error(readErr))
	return fmt.Errorf("upstream read: %w", readErr)
}

// Send issues the named RPC. When cb is nil the call is fire-and-forget and
// any reply is dropped.
func (c *WSClient) Send(cmd string, payload any, cb Callback) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	if cb != nil {
		c.pending[id] = pendingCall{cmd: cmd, cb: cb}
	}
	c.mu.Unlock()

	b, err := json.Marshal(Request{ID: id, Cmd: cmd, Data: payload})
	if err == nil {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
		err = conn.WriteMessage(websocket.TextMessage, b)
		c.writeMu.Unlock()
	}
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	c.logger.Debug("rpc sent", zap.String("cmd", cmd), zap.Int64("id", id))
	return nil
}

// Close closes the connection. Listen observes the close and shuts down.
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *WSClient) dispatch(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.logger.Warn("failed to decode upstream frame", zap.Error(err))
		return
	}

	if env.Event != "" {
		c.emit(env.Event, env.Data)
		return
	}

	c.mu.Lock()
	call, ok := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("reply without pending call", zap.Int64("id", env.ID))
		return
	}

	if !isNull(env.Error) {
		call.cb(nil, &RPCError{Cmd: call.cmd, Raw: env.Error})
		return
	}
	call.cb(env.Result, nil)
}

func (c *WSClient) emit(event string, data json.RawMessage) {
	c.mu.Lock()
	hs := make([]Handler, len(c.handlers[event]))
	copy(hs, c.handlers[event])
	c.mu.Unlock()

	for _, h := range hs {
		h(data)
	}
}

func (c *WSClient) shutdown(conn *websocket.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[int64]pendingCall)
	c.mu.Unlock()

	for _, call := range pending {
		call.cb(nil, ErrClosed)
	}
	c.emit(EventClose, nil)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// IsClosed reports whether err means the upstream connection is gone.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrNotConnected)
}
