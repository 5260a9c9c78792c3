package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/courtline/rally/pkg/logger"
)

// Error codes reported through the OnError callback.
const (
	CodeReconnectExhausted = 1001
	CodeWriteFailed        = 1002
)

var (
	ErrClosed        = errors.New("realtime: manager closed")
	ErrNoCredential  = errors.New("realtime: credential and user id required")
	ErrNotConnected  = errors.New("realtime: not connected")
	errAlreadyOnline = errors.New("realtime: already connected")
)

// Options configures the connection manager.
type Options struct {
	URL                  string
	Token                string
	UserID               string
	HandshakeTimeout     time.Duration
	MaxReconnectAttempts int
	// ReconnectInitialDelay seeds the exponential backoff between
	// reconnect attempts. Defaults to one second.
	ReconnectInitialDelay time.Duration
}

// Manager owns the process-wide realtime connection. At most one live
// websocket exists at a time; it is established lazily on first Connect,
// survives room switches, and is torn down only by Close. All writes are
// serialized under the manager mutex (gorilla allows a single writer).
type Manager struct {
	opts   Options
	dialer *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	dialing     bool
	closed      bool
	desiredRoom string
	joinedRoom  string
	handlers    map[EventType][]Handler
	onError     func(code int, msg string)

	done chan struct{}
}

func NewManager(opts Options) *Manager {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}
	if opts.ReconnectInitialDelay <= 0 {
		opts.ReconnectInitialDelay = time.Second
	}
	return &Manager{
		opts:     opts,
		dialer:   &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		handlers: make(map[EventType][]Handler),
		done:     make(chan struct{}),
	}
}

// OnEvent registers a handler for an event type. Register before Connect.
func (m *Manager) OnEvent(t EventType, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = append(m.handlers[t], h)
}

// OnError registers the callback invoked when reconnection is exhausted or
// a write fails terminally.
func (m *Manager) OnError(f func(code int, msg string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = f
}

// Connected reports whether a live connection currently exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connect establishes the connection if it does not exist yet. Idempotent
// while online. A pending Join issued before Connect executes as soon as
// the connection is up, provided its room is still the desired one.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.dial(ctx); err != nil {
		if errors.Is(err, errAlreadyOnline) {
			return nil
		}
		return err
	}
	m.fireConnected()
	return nil
}

func (m *Manager) dial(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	// A dial already in progress counts as online: concurrent Connect
	// calls (or Connect racing the reconnect goroutine) coalesce into
	// the single connection the winner establishes.
	if m.connected || m.dialing {
		m.mu.Unlock()
		return errAlreadyOnline
	}
	if m.opts.Token == "" || m.opts.UserID == "" {
		m.mu.Unlock()
		return ErrNoCredential
	}
	m.dialing = true
	url := m.opts.URL
	m.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.opts.Token)
	header.Set("X-User-ID", m.opts.UserID)

	conn, _, err := m.dialer.DialContext(ctx, url, header)

	m.mu.Lock()
	m.dialing = false
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("realtime: dialing %s: %w", url, err)
	}
	if m.closed || m.connected {
		wasClosed := m.closed
		m.mu.Unlock()
		conn.Close()
		if wasClosed {
			return ErrClosed
		}
		return errAlreadyOnline
	}
	m.conn = conn
	m.connected = true
	m.joinedRoom = ""

	// Execute the deferred join only if its room is still wanted.
	if m.desiredRoom != "" {
		if err := m.sendLocked("join_room", m.desiredRoom); err == nil {
			m.joinedRoom = m.desiredRoom
		}
	}
	m.mu.Unlock()

	logger.InfoCF("realtime", "Connected", map[string]any{"url": url})
	go m.readPump(conn)
	return nil
}

// fireConnected dispatches the synthetic connected event outside the lock.
func (m *Manager) fireConnected() {
	m.dispatch(Event{Type: EventConnected})
}

// Join expresses interest in a room. A previously joined room is left
// first; a duplicate join for the current room is a no-op. While offline
// the join is not queued as a frame: the desired room is remembered and
// (re)issued when the connected signal fires.
func (m *Manager) Join(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.desiredRoom = roomID
	if !m.connected {
		logger.DebugCF("realtime", "Join deferred until connect", map[string]any{"room": roomID})
		return
	}
	if m.joinedRoom == roomID {
		return
	}
	if m.joinedRoom != "" {
		_ = m.sendLocked("leave_room", m.joinedRoom)
	}
	if err := m.sendLocked("join_room", roomID); err != nil {
		return
	}
	m.joinedRoom = roomID
}

// Leave emits a leave for the room. Safe to call while disconnected.
func (m *Manager) Leave(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.desiredRoom == roomID {
		m.desiredRoom = ""
	}
	if !m.connected || m.joinedRoom != roomID {
		return
	}
	_ = m.sendLocked("leave_room", roomID)
	m.joinedRoom = ""
}

func (m *Manager) sendLocked(event, roomID string) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	frame := map[string]any{
		"event": event,
		"data": map[string]string{
			"room_id": roomID,
			"user_id": m.opts.UserID,
		},
	}
	if err := m.conn.WriteJSON(frame); err != nil {
		logger.WarnCF("realtime", "Write failed", map[string]any{
			"event": event, "room": roomID, "error": err.Error(),
		})
		return err
	}
	return nil
}

// Close tears the connection down permanently. No reconnection follows.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.connected = false
	close(m.done)
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// readPump reads frames until the connection drops, dispatching decoded
// events to registered handlers.
func (m *Manager) readPump(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			m.onDisconnect(conn, err)
			return
		}
		ev, ok := decodeEvent(frame)
		if !ok {
			logger.DebugCF("realtime", "Skipping unknown frame", map[string]any{
				"size": len(frame),
			})
			continue
		}
		m.dispatch(ev)
	}
}

func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	handlers := append([]Handler(nil), m.handlers[ev.Type]...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (m *Manager) onDisconnect(conn *websocket.Conn, cause error) {
	m.mu.Lock()
	if m.closed || m.conn != conn {
		// Explicit Close, or a stale pump from a replaced connection.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.connected = false
	m.joinedRoom = ""
	m.mu.Unlock()

	logger.WarnCF("realtime", "Connection lost", map[string]any{"error": cause.Error()})
	go m.reconnect()
}

// reconnect retries the dial with exponential backoff, bounded by
// MaxReconnectAttempts. Success re-fires the connected signal, which
// re-issues room interest and lets the session refetch history.
func (m *Manager) reconnect() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.opts.ReconnectInitialDelay
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for attempt := 1; attempt <= m.opts.MaxReconnectAttempts; attempt++ {
		select {
		case <-m.done:
			return
		case <-time.After(bo.NextBackOff()):
		}

		err := m.dial(context.Background())
		if err == nil || errors.Is(err, errAlreadyOnline) {
			if err == nil {
				m.fireConnected()
			}
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		logger.WarnCF("realtime", "Reconnect attempt failed", map[string]any{
			"attempt": attempt, "error": err.Error(),
		})
	}

	m.mu.Lock()
	onError := m.onError
	m.mu.Unlock()

	logger.ErrorCF("realtime", "Reconnect attempts exhausted", map[string]any{
		"attempts": m.opts.MaxReconnectAttempts,
	})
	if onError != nil {
		onError(CodeReconnectExhausted, "realtime reconnect attempts exhausted")
	}
}
