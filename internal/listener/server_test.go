package listener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradegateway/config"
	"tradegateway/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const token = "secret-token"

type stubSession struct {
	mu    sync.Mutex
	state session.State
	subs  int
}

func (s *stubSession) Connect(context.Context) error { return nil }

func (s *stubSession) OrderOpen(_ context.Context, req session.OrderOpenRequest) ([]session.OpenedOrder, error) {
	if req.SymbolName != "EURUSD" {
		return nil, session.ErrSymbolNotFound
	}
	return []session.OpenedOrder{{Ticket: 7, OpenPrice: 1.2345, Volume: 1.5}}, nil
}

func (s *stubSession) OrderSetTicket(context.Context, session.SetTicketRequest) error { return nil }

func (s *stubSession) OrderClose(context.Context, session.OrderCloseRequest) ([]session.ClosedOrder, error) {
	return nil, session.ErrOrderNotFound
}

func (s *stubSession) SubscribeClose(func(session.CloseNotification)) func() {
	s.mu.Lock()
	s.subs++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.subs--
		s.mu.Unlock()
	}
}

func (s *stubSession) Status() session.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.Status{State: s.state.String(), Symbols: 2, Currencies: 1, Orders: 3}
}

func newTestServer(t *testing.T, sess *stubSession) *httptest.Server {
	t.Helper()
	srv := NewServer(config.ServerConfig{Port: 1, AuthToken: token}, sess, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame string) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(msg, &m))
	return m
}

func TestRejectsMissingOrWrongToken(t *testing.T) {
	ts := newTestServer(t, &stubSession{state: session.StateConnected})

	for _, tok := range []string{"", "Bearer " + token, "wrong"} {
		header := http.Header{}
		if tok != "" {
			header.Set("Authorization", tok)
		}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token %q", tok)
		resp.Body.Close()
	}
}

func TestRelayRoundTrip(t *testing.T) {
	ts := newTestServer(t, &stubSession{state: session.StateConnected})
	conn := dial(t, ts)

	pong := roundTrip(t, conn, `{"id":1,"cmd":"Ping"}`)
	assert.JSONEq(t, `"Pong"`, string(pong["cmd"]))
	assert.NotContains(t, pong, "id")

	resp := roundTrip(t, conn, `{"id":2,"cmd":"OrderOpen","props":{"SymbolName":"EURUSD","Volume":1.5,"TradeCmd":0,"Price":1.2345}}`)
	assert.JSONEq(t, `"Response"`, string(resp["cmd"]))
	assert.JSONEq(t, `2`, string(resp["id"]))
	assert.JSONEq(t, `[{"Ticket":7,"OpenPrice":1.2345,"Volume":1.5}]`, string(resp["result"]))

	failed := roundTrip(t, conn, `{"id":3,"cmd":"OrderClose","props":{"MobiusTicket":1,"SymbolName":"EURUSD"}}`)
	assert.JSONEq(t, `"response_3"`, string(failed["cmd"]))
	assert.JSONEq(t, `"OrderNotFound"`, string(failed["error"]))
}

func TestDisconnectReleasesSubscription(t *testing.T) {
	sess := &stubSession{state: session.StateConnected}
	ts := newTestServer(t, sess)
	conn := dial(t, ts)

	roundTrip(t, conn, `{"cmd":"Ping"}`)
	sess.mu.Lock()
	assert.Equal(t, 1, sess.subs)
	sess.mu.Unlock()

	conn.Close()
	assert.Eventually(t, func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.subs == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	sess := &stubSession{state: session.StateConnected}
	ts := newTestServer(t, sess)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status session.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, session.Status{State: "connected", Symbols: 2, Currencies: 1, Orders: 3}, status)
}

func TestHealthNotConnected(t *testing.T) {
	ts := newTestServer(t, &stubSession{state: session.StateConnecting})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := NewServer(config.ServerConfig{Port: 18791, AuthToken: token}, &stubSession{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
