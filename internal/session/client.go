package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tradegateway/internal/memorystore"
	"tradegateway/pkg/mobius"

	"go.uber.org/zap"
)

// Transport is the framed RPC connection the session runs over.
// *mobius.WSClient implements it.
type Transport interface {
	Send(cmd string, payload any, cb mobius.Callback) error
	On(event string, h mobius.Handler)
	IsOpen() bool
}

type connectAttempt struct {
	done chan struct{}
	err  error
}

// Client owns the single upstream session: its state, the mirror of
// symbols, currencies and orders, and the order commands.
//
// Mirror updates and state transitions only happen from transport events,
// which the transport delivers one at a time.
type Client struct {
	transport Transport
	creds     Credentials
	logger    *zap.Logger

	instruments *memorystore.InstrumentStore
	orders      *memorystore.OrderStore

	mu       sync.Mutex
	state    State
	attempt  *connectAttempt
	authSent bool

	closeEvents closeEvents
}

// New builds the session and registers its transport handlers. It does not
// start the handshake; call Connect.
func New(transport Transport, creds Credentials, logger *zap.Logger) *Client {
	c := &Client{
		transport:   transport,
		creds:       creds,
		logger:      logger,
		instruments: memorystore.NewInstrumentStore(),
		orders:      memorystore.NewOrderStore(),
	}

	transport.On(mobius.EventOpen, c.onOpen)
	transport.On(mobius.EventInit, c.onInit)
	transport.On(mobius.EventServerNotify, c.onServerNotify)
	transport.On(mobius.EventClose, c.onDisconnect)

	return c
}

// Connect returns once the session is initialized. Concurrent callers share
// one handshake. If ctx ends first, Connect returns ctx.Err() while the
// handshake continues for other callers.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}

	sendAuth := false
	if c.attempt == nil {
		c.attempt = &connectAttempt{done: make(chan struct{})}
		c.state = StateConnecting
		c.authSent = false
		if c.transport.IsOpen() {
			c.authSent = true
			sendAuth = true
		}
		c.logger.Info("session connecting")
	}
	a := c.attempt
	c.mu.Unlock()

	if sendAuth {
		c.authenticate()
	}

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Status() Status {
	symbols, currencies := c.instruments.Counts()
	return Status{
		State:      c.State().String(),
		Symbols:    symbols,
		Currencies: currencies,
		Orders:     c.orders.Count(),
	}
}

// Orders returns a copy of the mirrored orders.
func (c *Client) Orders() []mobius.Order {
	return c.orders.GetAll()
}

func (c *Client) onOpen(json.RawMessage) {
	c.mu.Lock()
	send := c.state == StateConnecting && !c.authSent
	if send {
		c.authSent = true
	}
	c.mu.Unlock()

	if send {
		c.authenticate()
	}
}

func (c *Client) authenticate() {
	err := c.transport.Send(mobius.CmdAuth, mobius.AuthParams{
		Login:    c.creds.Login,
		Password: c.creds.Password,
	}, c.onAuthReply)
	if err != nil {
		c.failConnect(err)
	}
}

func (c *Client) onAuthReply(result json.RawMessage, err error) {
	if err != nil {
		c.failConnect(err)
		return
	}

	var jwt string
	if err := json.Unmarshal(result, &jwt); err != nil {
		c.failConnect(fmt.Errorf("decode auth token: %w", err))
		return
	}

	// Login has no reply worth waiting for; the init push confirms it.
	err = c.transport.Send(mobius.CmdLogin, mobius.LoginParams{
		JWT:             jwt,
		AccountNumberID: c.creds.AccountNumberID,
	}, nil)
	if err != nil {
		c.failConnect(err)
	}
}

// failConnect releases every pending Connect with err and allows a new attempt.
func (c *Client) failConnect(err error) {
	c.mu.Lock()
	a := c.attempt
	if a == nil {
		c.mu.Unlock()
		return
	}
	c.attempt = nil
	c.state = StateNotConnected
	c.authSent = false
	a.err = err
	close(a.done)
	c.mu.Unlock()

	c.logger.Error("session handshake failed", zap.Error(err))
}

func (c *Client) onInit(data json.RawMessage) {
	var init mobius.InitData
	if err := json.Unmarshal(data, &init); err != nil {
		c.logger.Error("failed to decode init snapshot", zap.Error(err))
		return
	}

	c.instruments.Replace(init.Symbols, init.Currencies)
	c.orders.Replace(init.Orders)

	c.mu.Lock()
	c.state = StateConnected
	if a := c.attempt; a != nil {
		c.attempt = nil
		close(a.done)
	}
	c.mu.Unlock()

	c.logger.Info("session connected",
		zap.Int("symbols", len(init.Symbols)),
		zap.Int("currencies", len(init.Currencies)),
		zap.Int("orders", len(init.Orders)),
	)
}

// onDisconnect does not reconnect and leaves a Connected session marked
// Connected; commands issued afterwards fail at the transport.
func (c *Client) onDisconnect(json.RawMessage) {
	c.logger.Warn("upstream disconnected")
	c.failConnect(mobius.ErrClosed)
}
