// Package notify keeps a WebSocket open to the server's notification stream,
// pushes received notifications into the local mirror and tracks the unread
// count.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Status represents the current state of the notification stream.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// ErrReconnectExhausted is reported once every reconnect attempt failed. The
// listener then stays down until Reconnect is called.
var ErrReconnectExhausted = errors.New("notification stream: reconnect attempts exhausted")

// ErrRunning is returned by Start when the listener is already running.
var ErrRunning = errors.New("notification stream already running")

// Default reconnect policy.
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
)

// Config holds the connection settings.
type Config struct {
	// URL is the WebSocket base URL; the stream lives at URL + "/notifications".
	URL               string
	Token             string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// Sink receives pushed notifications. *reconcile.Resource satisfies it.
type Sink interface {
	Receive(ctx context.Context, n domain.Notification) error
}

// Listener maintains the notification stream.
type Listener struct {
	url    string
	token  string
	tries  int
	delay  time.Duration
	sink   Sink
	logger *zap.Logger

	mu             sync.RWMutex
	status         Status
	unread         int
	lastErr        error
	connectedSince *time.Time
	onNotification []func(domain.Notification)
	onUnread       []func(int)
	onStatus       []func(Status)
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewListener creates a stopped listener. sink may be nil.
func NewListener(cfg Config, sink Sink, logger *zap.Logger) *Listener {
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		url:    strings.TrimRight(cfg.URL, "/") + "/" + domain.ResourceNotifications,
		token:  cfg.Token,
		tries:  cfg.ReconnectAttempts,
		delay:  cfg.ReconnectDelay,
		sink:   sink,
		logger: logger.Named("notify"),
		status: StatusDisconnected,
	}
}

// OnNotification registers a callback for every received notification.
// Callbacks run on the listener goroutine.
func (l *Listener) OnNotification(fn func(domain.Notification)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onNotification = append(l.onNotification, fn)
}

// OnUnreadCount registers a callback for unread count changes.
func (l *Listener) OnUnreadCount(fn func(int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUnread = append(l.onUnread, fn)
}

// OnStatus registers a callback for connection status changes.
func (l *Listener) OnStatus(fn func(Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStatus = append(l.onStatus, fn)
}

// Start runs the connection loop in the background until Stop is called or
// ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return ErrRunning
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.lastErr = nil

	go func() {
		defer close(done)
		l.run(ctx)
	}()
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	done := l.done
	l.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Reconnect restarts the loop with a fresh attempt budget.
func (l *Listener) Reconnect(ctx context.Context) error {
	l.Stop()
	l.logger.Info("Reconnecting notification stream")
	return l.Start(ctx)
}

func (l *Listener) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Err returns why the listener last stopped trying, if it did.
func (l *Listener) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

func (l *Listener) UnreadCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unread
}

// SetUnreadCount seeds the count, typically from the REST endpoint.
func (l *Listener) SetUnreadCount(n int) {
	l.setUnread(func(int) int { return n })
}

// ConnectedSince returns when the current connection was established.
func (l *Listener) ConnectedSince() *time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connectedSince
}

func (l *Listener) run(ctx context.Context) {
	defer l.setStatus(StatusDisconnected)

	attempt := 0
	for {
		if attempt == 0 {
			l.setStatus(StatusConnecting)
		} else {
			l.setStatus(StatusReconnecting)
		}

		connected, err := l.connectAndServe(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempt = 0
		}
		if attempt >= l.tries {
			l.logger.Error("Notification stream gave up",
				zap.Error(err),
				zap.Int("attempts", attempt),
			)
			l.mu.Lock()
			l.lastErr = fmt.Errorf("%w: %v", ErrReconnectExhausted, err)
			l.mu.Unlock()
			return
		}
		attempt++

		l.setStatus(StatusReconnecting)
		l.logger.Warn("Notification stream disconnected, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", l.delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.delay):
		}
	}
}

// connectAndServe dials once and reads frames until the connection drops.
// connected reports whether the handshake succeeded.
func (l *Listener) connectAndServe(ctx context.Context) (connected bool, err error) {
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if l.token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+l.token)
	}
	conn, _, err := websocket.Dial(ctx, l.url, opts)
	if err != nil {
		return false, fmt.Errorf("connecting to %s: %w", l.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	now := time.Now()
	l.mu.Lock()
	l.connectedSince = &now
	l.mu.Unlock()
	l.setStatus(StatusConnected)
	l.logger.Info("Notification stream connected", zap.String("url", l.url))

	return true, l.messageLoop(ctx, conn)
}

func (l *Listener) messageLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("websocket read error: %w", err)
		}
		l.handle(ctx, data)
	}
}

func (l *Listener) handle(ctx context.Context, data []byte) {
	f, err := parseFrame(data)
	if err != nil {
		l.logger.Error("Failed to parse notification frame", zap.Error(err))
		return
	}

	switch f.Event {
	case EventNotification:
		var n domain.Notification
		if err := json.Unmarshal(f.Data, &n); err != nil {
			l.logger.Error("Failed to decode notification", zap.Error(err))
			return
		}
		if l.sink != nil {
			if err := l.sink.Receive(ctx, n); err != nil {
				l.logger.Warn("Failed to store notification", zap.String("id", n.ID), zap.Error(err))
			}
		}
		if !n.Read {
			l.setUnread(func(cur int) int { return cur + 1 })
		}
		l.mu.RLock()
		handlers := append([]func(domain.Notification){}, l.onNotification...)
		l.mu.RUnlock()
		for _, fn := range handlers {
			fn(n)
		}
	case EventUnreadCount:
		var c unreadCountData
		if err := json.Unmarshal(f.Data, &c); err != nil {
			l.logger.Error("Failed to decode unread count", zap.Error(err))
			return
		}
		l.setUnread(func(int) int { return c.Count })
	default:
		l.logger.Warn("Ignoring unknown notification event", zap.String("event", f.Event))
	}
}

func (l *Listener) setUnread(next func(cur int) int) {
	l.mu.Lock()
	prev := l.unread
	l.unread = next(prev)
	n := l.unread
	handlers := append([]func(int){}, l.onUnread...)
	l.mu.Unlock()
	if n == prev {
		return
	}
	for _, fn := range handlers {
		fn(n)
	}
}

func (l *Listener) setStatus(s Status) {
	l.mu.Lock()
	if l.status == s {
		l.mu.Unlock()
		return
	}
	l.status = s
	if s != StatusConnected {
		l.connectedSince = nil
	}
	handlers := append([]func(Status){}, l.onStatus...)
	l.mu.Unlock()
	for _, fn := range handlers {
		fn(s)
	}
}
