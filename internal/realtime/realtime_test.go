package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	*httptest.Server
	requests atomic.Int32
	accepted atomic.Int32
	reject   atomic.Bool
	pongs    chan struct{}

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{pongs: make(chan struct{}, 8)}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		if fs.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		open, _ := EncodeOpen(Handshake{SID: "sid-1", Upgrades: []string{}, PingInterval: 25000, PingTimeout: 20000})
		if err := conn.WriteMessage(websocket.TextMessage, open); err != nil {
			return
		}
		if _, msg, err := conn.ReadMessage(); err != nil || string(msg) != "40" {
			_ = conn.Close()
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.accepted.Add(1)
		err = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"ns-1"}`))
		fs.mu.Unlock()
		if err != nil {
			return
		}

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "3" {
				fs.pongs <- struct{}{}
			}
		}
	}))
	t.Cleanup(fs.Server.Close)
	return fs
}

func (fs *fakeServer) emit(t *testing.T, frame string) {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, c := range fs.conns {
		require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
}

func (fs *fakeServer) dropAll() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, c := range fs.conns {
		_ = c.Close()
	}
	fs.conns = nil
}

func newTestBridge(t *testing.T, url string, attempts int) (*Bridge, chan State) {
	t.Helper()
	b, err := New(Options{URL: url, ReconnectAttempts: attempts, ReconnectDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	states := make(chan State, 64)
	b.OnStateChange(func(s State) { states <- s })
	t.Cleanup(b.Close)
	return b, states
}

func waitState(t *testing.T, states <-chan State, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5000", "ws://localhost:5000/socket.io/?EIO=4&transport=websocket"},
		{"https://backend.example.com/", "wss://backend.example.com/socket.io/?EIO=4&transport=websocket"},
		{"localhost:5000", "ws://localhost:5000/socket.io/?EIO=4&transport=websocket"},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "ftp://host", "http://"} {
		_, err := Endpoint(bad)
		require.Error(t, err, bad)
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		frame   string
		name    string
		payload string
	}{
		{`42["blog:created",{"_id":"b1"}]`, "blog:created", `{"_id":"b1"}`},
		{`42["product:deleted"]`, "product:deleted", ""},
		{`42/admin,["project:updated","p1"]`, "project:updated", `"p1"`},
		{`4217["experience:created",null]`, "experience:created", "null"},
	}
	for _, tt := range tests {
		name, payload, err := DecodeEvent([]byte(tt.frame))
		require.NoError(t, err, tt.frame)
		require.Equal(t, tt.name, name)
		require.Equal(t, tt.payload, string(payload))
	}

	for _, bad := range []string{"2", `42[]`, `42{`, `42[1]`, `40{}`} {
		_, _, err := DecodeEvent([]byte(bad))
		require.Error(t, err, bad)
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent("blog:deleted", map[string]string{"_id": "b1"})
	require.NoError(t, err)
	require.Equal(t, `42["blog:deleted",{"_id":"b1"}]`, string(frame))

	frame, err = EncodeEvent("ping", nil)
	require.NoError(t, err)
	require.Equal(t, `42["ping"]`, string(frame))

	_, err = EncodeEvent("", nil)
	require.Error(t, err)
}

func TestOpenPacket(t *testing.T) {
	frame, err := EncodeOpen(Handshake{SID: "abc", PingInterval: 100, PingTimeout: 50})
	require.NoError(t, err)
	hs, err := DecodeOpen(frame)
	require.NoError(t, err)
	require.Equal(t, "abc", hs.SID)
	require.Equal(t, 150*time.Millisecond, hs.HeartbeatTimeout())

	_, err = DecodeOpen([]byte(`40`))
	require.Error(t, err)
}

func TestBridge_DeliversEventsUntilUnsubscribed(t *testing.T) {
	fs := newFakeServer(t)
	b, states := newTestBridge(t, fs.URL, 2)

	created := make(chan json.RawMessage, 4)
	updated := make(chan struct{}, 4)
	unsubscribe := b.Subscribe("blog:created", func(_ string, payload json.RawMessage) { created <- payload })
	b.Subscribe("blog:updated", func(string, json.RawMessage) { updated <- struct{}{} })

	b.Acquire()
	waitState(t, states, Connected)

	fs.emit(t, `42["blog:created",{"_id":"b1"}]`)
	select {
	case payload := <-created:
		require.JSONEq(t, `{"_id":"b1"}`, string(payload))
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}

	unsubscribe()
	unsubscribe()
	fs.emit(t, `42["blog:created",{"_id":"b2"}]`)
	fs.emit(t, `42["blog:updated",{"_id":"b1"}]`)
	select {
	case <-updated:
	case <-time.After(3 * time.Second):
		t.Fatal("updated event not delivered")
	}
	require.Empty(t, created)
}

func TestBridge_ReferenceCountsOneConnection(t *testing.T) {
	fs := newFakeServer(t)
	b, states := newTestBridge(t, fs.URL, 2)

	require.Equal(t, Disconnected, b.State())
	b.Acquire()
	b.Acquire()
	waitState(t, states, Connected)
	require.Equal(t, int32(1), fs.accepted.Load())

	b.Release()
	require.Equal(t, 1, b.Consumers())
	require.Equal(t, Connected, b.State())

	b.Release()
	require.Equal(t, 0, b.Consumers())
	require.Equal(t, Disconnected, b.State())

	b.Release()
	require.Equal(t, 0, b.Consumers())

	b.Acquire()
	waitState(t, states, Connected)
	require.Equal(t, int32(2), fs.accepted.Load())
}

func TestBridge_CloseDuringHandshakeReturnsPromptly(t *testing.T) {
	upgraded := make(chan struct{}, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		upgraded <- struct{}{}
		// Never send the open packet; wait for the client to hang up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	b, states := newTestBridge(t, srv.URL, 0)
	b.Acquire()
	waitState(t, states, Connecting)
	select {
	case <-upgraded:
	case <-time.After(3 * time.Second):
		t.Fatal("server never upgraded the connection")
	}

	start := time.Now()
	b.Close()
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, Disconnected, b.State())
}

func TestBridge_AnswersPing(t *testing.T) {
	fs := newFakeServer(t)
	b, states := newTestBridge(t, fs.URL, 2)
	b.Acquire()
	waitState(t, states, Connected)

	fs.emit(t, "2")
	select {
	case <-fs.pongs:
	case <-time.After(3 * time.Second):
		t.Fatal("no pong")
	}
}

func TestBridge_ReconnectsAfterTransportLoss(t *testing.T) {
	fs := newFakeServer(t)
	b, states := newTestBridge(t, fs.URL, 3)
	b.Acquire()
	waitState(t, states, Connected)

	fs.dropAll()
	waitState(t, states, Connecting)
	waitState(t, states, Connected)
	require.Equal(t, int32(2), fs.accepted.Load())
	require.Equal(t, Connected, b.State())
}

func TestBridge_GivesUpAfterReconnectAttempts(t *testing.T) {
	fs := newFakeServer(t)
	fs.reject.Store(true)
	b, states := newTestBridge(t, fs.URL, 2)

	b.Acquire()
	waitState(t, states, Connecting)
	waitState(t, states, Disconnected)
	require.Equal(t, int32(3), fs.requests.Load())
	require.Equal(t, Disconnected, b.State())
	require.Equal(t, 1, b.Consumers())

	fs.reject.Store(false)
	b.Acquire()
	waitState(t, states, Connected)
	require.Equal(t, 2, b.Consumers())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "disconnected", Disconnected.String())
	require.Equal(t, "connecting", Connecting.String())
	require.Equal(t, "connected", Connected.String())
}

func TestBridge_WatchSubscribesChangeEventsAndReleases(t *testing.T) {
	fs := newFakeServer(t)
	b, states := newTestBridge(t, fs.URL, 2)

	events := make(chan string, 8)
	stop := b.Watch("blog", func(event string) { events <- event })
	waitState(t, states, Connected)
	require.Equal(t, 1, b.Consumers())

	fs.emit(t, `42["project:created",{}]`)
	fs.emit(t, `42["blog:deleted",{"_id":"b1"}]`)
	select {
	case got := <-events:
		require.Equal(t, "blog:deleted", got)
	case <-time.After(3 * time.Second):
		t.Fatal("blog:deleted not delivered")
	}

	stop()
	stop()
	require.Equal(t, 0, b.Consumers())
	require.Equal(t, Disconnected, b.State())
	require.Equal(t, []string{"blog:created", "blog:updated", "blog:deleted"}, ChangeEvents("blog"))
}
