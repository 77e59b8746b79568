package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/mirror"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// mockStreamServer accepts notification stream connections and hands each
// one to the test.
type mockStreamServer struct {
	t      *testing.T
	server *httptest.Server
	token  string
	conns  chan *websocket.Conn
	dials  atomic.Int32
	reject atomic.Bool
}

func newMockStreamServer(t *testing.T, token string) *mockStreamServer {
	m := &mockStreamServer{t: t, token: token, conns: make(chan *websocket.Conn, 8)}
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", m.handleConnect)
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockStreamServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	m.dials.Add(1)
	if m.reject.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if m.token != "" && r.Header.Get("Authorization") != "Bearer "+m.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		m.t.Logf("WebSocket accept error: %v", err)
		return
	}
	m.conns <- conn

	// Drain until the client goes away.
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func (m *mockStreamServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-m.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection from listener")
		return nil
	}
}

func (m *mockStreamServer) send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := EncodeFrame(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

type storeSink struct {
	store *mirror.Store[domain.Notification]
}

func (s storeSink) Receive(ctx context.Context, n domain.Notification) error {
	return s.store.Add(ctx, n)
}

func newStore(t *testing.T) *mirror.Store[domain.Notification] {
	t.Helper()
	s, err := mirror.Open[domain.Notification](context.Background(), domain.ResourceNotifications, mirror.NewMemoryStorage())
	require.NoError(t, err)
	return s
}

func TestListener_ReceivesNotificationsIntoMirror(t *testing.T) {
	srv := newMockStreamServer(t, "secret")
	store := newStore(t)
	older := testutil.NewTestNotification("older")
	require.NoError(t, store.Add(context.Background(), older))

	l := NewListener(Config{URL: srv.server.URL, Token: "secret"}, storeSink{store}, zaptest.NewLogger(t))
	var mu sync.Mutex
	var got []string
	l.OnNotification(func(n domain.Notification) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n.Title)
	})

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	conn := srv.nextConn(t)
	require.Eventually(t, func() bool { return l.Status() == StatusConnected }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, l.ConnectedSince())

	fresh := testutil.NewTestNotification("Budget exceeded")
	srv.send(t, conn, EventNotification, fresh)

	require.Eventually(t, func() bool { return store.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{fresh.ID, older.ID}, domain.IDs(store.List()))
	assert.Equal(t, 1, l.UnreadCount())
	mu.Lock()
	assert.Equal(t, []string{"Budget exceeded"}, got)
	mu.Unlock()
}

func TestListener_UnreadCountEvent(t *testing.T) {
	srv := newMockStreamServer(t, "")
	l := NewListener(Config{URL: srv.server.URL}, nil, zaptest.NewLogger(t))
	l.SetUnreadCount(2)

	counts := make(chan int, 4)
	l.OnUnreadCount(func(n int) { counts <- n })

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	conn := srv.nextConn(t)

	srv.send(t, conn, EventUnreadCount, map[string]int{"count": 7})
	select {
	case n := <-counts:
		assert.Equal(t, 7, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no unread count callback")
	}
	assert.Equal(t, 7, l.UnreadCount())
}

func TestListener_IgnoresUnknownEvents(t *testing.T) {
	srv := newMockStreamServer(t, "")
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewListener(Config{URL: srv.server.URL}, nil, zap.New(core))

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	conn := srv.nextConn(t)

	srv.send(t, conn, "presence", map[string]string{"user": "u1"})
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte("not json")))
	srv.send(t, conn, EventUnreadCount, map[string]int{"count": 1})

	require.Eventually(t, func() bool { return l.UnreadCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("Ignoring unknown notification event").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to parse notification frame").Len())
	assert.Equal(t, StatusConnected, l.Status())
}

func TestListener_GivesUpAfterAttemptsAndReconnectsManually(t *testing.T) {
	srv := newMockStreamServer(t, "")
	srv.reject.Store(true)
	l := NewListener(Config{URL: srv.server.URL, ReconnectAttempts: 2, ReconnectDelay: 5 * time.Millisecond}, nil, zaptest.NewLogger(t))

	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool { return l.Err() != nil }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, l.Err(), ErrReconnectExhausted)
	require.Eventually(t, func() bool { return l.Status() == StatusDisconnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), srv.dials.Load())

	// It stays down on its own.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), srv.dials.Load())

	srv.reject.Store(false)
	require.NoError(t, l.Reconnect(context.Background()))
	defer l.Stop()
	srv.nextConn(t)
	require.Eventually(t, func() bool { return l.Status() == StatusConnected }, time.Second, 5*time.Millisecond)
	assert.NoError(t, l.Err())
}

func TestListener_RejectedTokenExhaustsAttempts(t *testing.T) {
	srv := newMockStreamServer(t, "right")
	l := NewListener(Config{URL: srv.server.URL, Token: "wrong", ReconnectAttempts: 1, ReconnectDelay: time.Millisecond}, nil, zaptest.NewLogger(t))

	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool { return l.Err() != nil }, 2*time.Second, 5*time.Millisecond)
	l.Stop()
	assert.ErrorIs(t, l.Err(), ErrReconnectExhausted)
	assert.Equal(t, int32(2), srv.dials.Load())
}

func TestListener_ReconnectsAfterDrop(t *testing.T) {
	srv := newMockStreamServer(t, "")
	l := NewListener(Config{URL: srv.server.URL, ReconnectDelay: 5 * time.Millisecond}, nil, zaptest.NewLogger(t))

	statuses := make(chan Status, 16)
	l.OnStatus(func(s Status) { statuses <- s })

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	first := srv.nextConn(t)
	require.NoError(t, first.Close(websocket.StatusGoingAway, "restart"))

	srv.nextConn(t)
	require.Eventually(t, func() bool { return l.Status() == StatusConnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), srv.dials.Load())

	var seen []Status
	for len(statuses) > 0 {
		seen = append(seen, <-statuses)
	}
	assert.Contains(t, seen, StatusReconnecting)
}

func TestListener_StartTwiceFails(t *testing.T) {
	srv := newMockStreamServer(t, "")
	l := NewListener(Config{URL: srv.server.URL}, nil, zaptest.NewLogger(t))
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	assert.ErrorIs(t, l.Start(context.Background()), ErrRunning)
}

func TestListener_StopDisconnects(t *testing.T) {
	srv := newMockStreamServer(t, "")
	l := NewListener(Config{URL: srv.server.URL}, nil, zaptest.NewLogger(t))
	require.NoError(t, l.Start(context.Background()))
	srv.nextConn(t)
	require.Eventually(t, func() bool { return l.Status() == StatusConnected }, time.Second, 5*time.Millisecond)

	l.Stop()
	assert.Equal(t, StatusDisconnected, l.Status())
	assert.NoError(t, l.Err())
}
