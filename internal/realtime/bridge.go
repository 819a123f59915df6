// Package realtime keeps one Socket.IO connection to the ElectroPhobia event
// server and fans its change events out to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/electrophobia/epterm/internal/observability"
)

// State is the connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives an event name and its raw payload. Handlers run on the
// bridge's reader goroutine and must not block.
type Handler func(event string, payload json.RawMessage)

// Options configure a Bridge.
type Options struct {
	// URL is the event server origin, e.g. http://localhost:5000.
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Dialer            *websocket.Dialer
	HandshakeTimeout  time.Duration
}

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
	defaultHandshakeTimeout  = 10 * time.Second
)

// Bridge owns the shared connection. It connects when the first consumer
// acquires it and disconnects when the last one releases it.
type Bridge struct {
	endpoint string
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	refs     int
	gen      uint64
	running  bool
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	nextID   uint64
	handlers map[string]map[uint64]Handler
	watchers []func(State)
	pending  []State
	draining bool
}

// New validates opts. It does not connect.
func New(opts Options) (*Bridge, error) {
	endpoint, err := Endpoint(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	}
	return &Bridge{
		endpoint: endpoint,
		opts:     opts,
		log:      observability.WithFields("component", "realtime"),
		handlers: make(map[string]map[uint64]Handler),
	}, nil
}

// Endpoint turns an http(s) origin into the Engine.IO websocket URL.
func Endpoint(origin string) (string, error) {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" {
		return "", errors.New("realtime url required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse realtime url %q: %w", origin, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("parse realtime url %q: unsupported scheme %q", origin, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse realtime url %q: missing host", origin)
	}
	u.Path = "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// State returns the current connection state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnStateChange registers fn for every transition.
func (b *Bridge) OnStateChange(fn func(State)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.watchers = append(b.watchers, fn)
	b.mu.Unlock()
}

// Subscribe registers h for event and returns the matching unsubscribe.
func (b *Bridge) Subscribe(event string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[uint64]Handler)
	}
	b.handlers[event][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[event], id)
			if len(b.handlers[event]) == 0 {
				delete(b.handlers, event)
			}
		})
	}
}

// Acquire registers a consumer. The first one starts the connection; a later
// one restarts it if reconnection was abandoned.
func (b *Bridge) Acquire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs++
	if !b.running {
		b.startLocked()
	}
}

// Release drops a consumer. The last one tears the connection down.
func (b *Bridge) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 {
		b.stopLocked()
	}
}

// Consumers returns the current reference count.
func (b *Bridge) Consumers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

// Close drops every consumer and waits for the connection goroutine to exit.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.refs = 0
	done := b.done
	b.stopLocked()
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (b *Bridge) startLocked() {
	b.gen++
	b.running = true
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(ctx, b.gen, b.done)
}

func (b *Bridge) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
		b.done = nil
	}
	b.running = false
	b.gen++
	b.transitionLocked(Disconnected)
}

func (b *Bridge) setState(gen uint64, s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	b.transitionLocked(s)
}

func (b *Bridge) transitionLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.pending = append(b.pending, s)
	if !b.draining {
		b.draining = true
		go b.drain()
	}
}

// drain delivers transitions to watchers in order, off the caller's goroutine.
func (b *Bridge) drain() {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		s := b.pending[0]
		b.pending = b.pending[1:]
		watchers := append([]func(State){}, b.watchers...)
		b.mu.Unlock()

		for _, fn := range watchers {
			fn(s)
		}
	}
}

func (b *Bridge) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	b.setState(gen, Connecting)
	sess, err := b.dial(ctx)
	if err != nil && ctx.Err() == nil {
		b.log.Warn("connect failed", "endpoint", b.endpoint, "err", err)
		sess, err = b.reconnect(ctx)
	}
	for err == nil {
		b.setState(gen, Connected)
		b.log.Info("connected", "endpoint", b.endpoint, "sid", sess.hs.SID)
		err = b.serve(ctx, sess)
		if ctx.Err() != nil {
			break
		}
		b.log.Warn("connection lost", "err", err)
		b.setState(gen, Connecting)
		sess, err = b.reconnect(ctx)
	}
	if ctx.Err() == nil {
		b.log.Error("giving up on realtime connection", "attempts", b.opts.ReconnectAttempts, "err", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen == b.gen {
		b.running = false
		if b.cancel != nil {
			b.cancel()
		}
		b.cancel = nil
		b.done = nil
		b.transitionLocked(Disconnected)
	}
}

// reconnect makes up to ReconnectAttempts dials, each after ReconnectDelay.
func (b *Bridge) reconnect(ctx context.Context) (*session, error) {
	attempts := b.opts.ReconnectAttempts
	if attempts == 0 {
		return nil, errors.New("reconnection disabled")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(b.opts.ReconnectDelay):
	}

	var sess *session
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(b.opts.ReconnectDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := b.dial(ctx)
		if err != nil {
			b.log.Debug("reconnect attempt failed", "err", err)
			return retry.RetryableError(err)
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// session is one established connection. Writes go through send.
type session struct {
	conn    *websocket.Conn
	hs      Handshake
	writeMu sync.Mutex
}

func (s *session) send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// extendDeadline arms the heartbeat timeout after every frame.
func (s *session) extendDeadline() error {
	timeout := s.hs.HeartbeatTimeout()
	if timeout == 0 {
		return s.conn.SetReadDeadline(time.Time{})
	}
	return s.conn.SetReadDeadline(time.Now().Add(timeout))
}

// dial opens the websocket and completes the Engine.IO and namespace handshakes.
func (b *Bridge) dial(ctx context.Context) (*session, error) {
	conn, _, err := b.opts.Dialer.DialContext(ctx, b.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.endpoint, err)
	}
	// The handshake reads only honour deadlines, so closing the conn is what
	// unblocks them when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	fail := func(err error) (*session, error) {
		stop()
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(b.opts.HandshakeTimeout))

	_, frame, err := conn.ReadMessage()
	if err != nil {
		return fail(fmt.Errorf("read open packet: %w", err))
	}
	hs, err := DecodeOpen(frame)
	if err != nil {
		return fail(err)
	}
	sess := &session{conn: conn, hs: hs}
	if err := sess.send([]byte{PacketMessage, SocketConnect}); err != nil {
		return fail(fmt.Errorf("namespace connect: %w", err))
	}
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fail(fmt.Errorf("await namespace connect: %w", err))
		}
		switch {
		case len(frame) >= 2 && frame[0] == PacketMessage && frame[1] == SocketConnect:
			b.log.Debug("handshake complete", "sid", hs.SID, "ping_interval_ms", hs.PingInterval)
			if !stop() {
				return fail(ctx.Err())
			}
			if err := sess.extendDeadline(); err != nil {
				return fail(err)
			}
			return sess, nil
		case len(frame) >= 2 && frame[0] == PacketMessage && frame[1] == SocketConnectError:
			return fail(connectError(frame))
		case len(frame) == 1 && frame[0] == PacketPing:
			if err := sess.send([]byte{PacketPong}); err != nil {
				return fail(err)
			}
		}
	}
}

func (b *Bridge) serve(ctx context.Context, sess *session) error {
	stop := context.AfterFunc(ctx, func() {
		_ = sess.send([]byte{PacketMessage, SocketDisconnect})
		_ = sess.conn.Close()
	})
	defer func() {
		if stop() {
			_ = sess.conn.Close()
		}
	}()

	for {
		_, frame, err := sess.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := sess.extendDeadline(); err != nil {
			return err
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case PacketPing:
			if err := sess.send([]byte{PacketPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		case PacketClose:
			return errors.New("server closed the transport")
		case PacketMessage:
			if len(frame) >= 2 && frame[1] == SocketDisconnect {
				return errors.New("server disconnected the namespace")
			}
			if len(frame) >= 2 && frame[1] == SocketEvent {
				b.dispatch(frame)
			}
		}
	}
}

func (b *Bridge) dispatch(frame []byte) {
	name, payload, err := DecodeEvent(frame)
	if err != nil {
		b.log.Warn("dropping malformed event", "err", err)
		return
	}
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers[name]))
	for _, h := range b.handlers[name] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	b.log.Debug("event", "name", name, "handlers", len(handlers))
	for _, h := range handlers {
		h(name, payload)
	}
}

// ChangeEvents are the events the server emits when a record of kind changes.
func ChangeEvents(kind string) []string {
	return []string{kind + ":created", kind + ":updated", kind + ":deleted"}
}

// Watch acquires the bridge and subscribes fn to every change event of kind.
// The returned stop unsubscribes and releases; calling it again is a no-op.
func (b *Bridge) Watch(kind string, fn func(event string)) (stop func()) {
	handler := func(event string, _ json.RawMessage) { fn(event) }
	var unsubs []func()
	for _, event := range ChangeEvents(kind) {
		unsubs = append(unsubs, b.Subscribe(event, handler))
	}
	b.Acquire()

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, unsub := range unsubs {
				unsub()
			}
			b.Release()
		})
	}
}
