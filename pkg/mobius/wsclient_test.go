package mobius

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUpstream answers each request through reply and can push frames.
type fakeUpstream struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	reqs  chan Request
}

func newFakeUpstream(t *testing.T, reply func(Request) *Envelope) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		conns: make(chan *websocket.Conn, 1),
		reqs:  make(chan Request, 16),
	}
	upgrader := websocket.Upgrader{Subprotocols: []string{"trader"}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			f.reqs <- req
			if env := reply(req); env != nil {
				_ = conn.WriteJSON(env)
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func startClient(t *testing.T, f *fakeUpstream) (*WSClient, <-chan error) {
	t.Helper()
	c := NewWSClient(Options{URL: f.url(), UserAgent: "test"}, zap.NewNop())

	opened := make(chan struct{}, 1)
	c.On(EventOpen, func(json.RawMessage) { opened <- struct{}{} })

	require.NoError(t, c.Connect(context.Background()))
	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("open event not emitted")
	}

	done := make(chan error, 1)
	go func() { done <- c.Listen(context.Background()) }()
	return c, done
}

func TestSendReceivesResult(t *testing.T) {
	f := newFakeUpstream(t, func(req Request) *Envelope {
		return &Envelope{ID: req.ID, Result: json.RawMessage(`"jwt-token"`)}
	})
	c, _ := startClient(t, f)

	got := make(chan string, 1)
	err := c.Send(CmdAuth, AuthParams{Login: "l", Password: "p"}, func(result json.RawMessage, err error) {
		var token string
		if err == nil {
			_ = json.Unmarshal(result, &token)
		}
		got <- token
	})
	require.NoError(t, err)

	select {
	case token := <-got:
		assert.Equal(t, "jwt-token", token)
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}

	req := <-f.reqs
	assert.Equal(t, CmdAuth, req.Cmd)
	assert.EqualValues(t, 1, req.ID)
}

func TestSendPassesUpstreamErrorThrough(t *testing.T) {
	f := newFakeUpstream(t, func(req Request) *Envelope {
		return &Envelope{ID: req.ID, Error: json.RawMessage(`{"Code":134,"Message":"NotEnoughMoney"}`)}
	})
	c, _ := startClient(t, f)

	got := make(chan error, 1)
	require.NoError(t, c.Send(CmdOrderOpen, OrderOpenParams{}, func(_ json.RawMessage, err error) {
		got <- err
	}))

	err := <-got
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.JSONEq(t, `{"Code":134,"Message":"NotEnoughMoney"}`, string(rpcErr.Raw))

	b, err := json.Marshal(rpcErr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Code":134,"Message":"NotEnoughMoney"}`, string(b))
}

func TestNullErrorIsSuccess(t *testing.T) {
	f := newFakeUpstream(t, func(req Request) *Envelope {
		return &Envelope{ID: req.ID, Result: json.RawMessage(`[]`), Error: json.RawMessage(`null`)}
	})
	c, _ := startClient(t, f)

	got := make(chan error, 1)
	require.NoError(t, c.Send(CmdOrderClose, OrderCloseParams{}, func(_ json.RawMessage, err error) {
		got <- err
	}))
	assert.NoError(t, <-got)
}

func TestPushEventDispatch(t *testing.T) {
	f := newFakeUpstream(t, func(Request) *Envelope { return nil })
	c, _ := startClient(t, f)

	got := make(chan ServerNotify, 1)
	c.On(EventServerNotify, func(data json.RawMessage) {
		var n ServerNotify
		_ = json.Unmarshal(data, &n)
		got <- n
	})

	conn := <-f.conns
	require.NoError(t, conn.WriteJSON(map[string]any{
		"Event": EventServerNotify,
		"Data":  map[string]any{"Cmd": NotifyOrderOpen, "Result": map[string]any{"Ticket": 9, "Comment": "#1"}},
	}))

	select {
	case n := <-got:
		assert.Equal(t, NotifyOrderOpen, n.Cmd)
		assert.EqualValues(t, 9, n.Result.Ticket)
	case <-time.After(time.Second):
		t.Fatal("push not dispatched")
	}
}

func TestDisconnectFailsPendingCalls(t *testing.T) {
	f := newFakeUpstream(t, func(Request) *Envelope { return nil })
	c, done := startClient(t, f)

	closed := make(chan struct{}, 1)
	c.On(EventClose, func(json.RawMessage) { closed <- struct{}{} })

	got := make(chan error, 1)
	require.NoError(t, c.Send(CmdOrderOpen, OrderOpenParams{}, func(_ json.RawMessage, err error) {
		got <- err
	}))
	<-f.reqs

	conn := <-f.conns
	require.NoError(t, conn.Close())

	select {
	case err := <-got:
		assert.True(t, IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("pending call was not failed")
	}
	<-closed
	assert.Error(t, <-done)
	assert.False(t, c.IsOpen())

	assert.ErrorIs(t, c.Send(CmdOrderOpen, nil, nil), ErrNotConnected)
}

func TestParseTradeCmd(t *testing.T) {
	assert.Equal(t, TradeCmdBuy, ParseTradeCmd(0))
	assert.Equal(t, TradeCmdSell, ParseTradeCmd(1))
	assert.Equal(t, TradeCmdSell, ParseTradeCmd(7))
}
