package stomp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker is a minimal STOMP endpoint over a real websocket, enough to
// accept a handshake and exchange frames with the client under test.
type fakeBroker struct {
	t        *testing.T
	upgrader websocket.Upgrader
	refuse   bool

	mu       sync.Mutex
	conn     *websocket.Conn
	received chan *Frame // frames after CONNECT
	connects chan *Frame // CONNECT frames
}

func newFakeBroker(t *testing.T) *fakeBroker {
	return &fakeBroker{
		t:        t,
		received: make(chan *Frame, 16),
		connects: make(chan *Frame, 4),
	}
}

func (b *fakeBroker) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	connect, err := Unmarshal(data)
	if err != nil || connect.Command != CmdConnect {
		conn.Close()
		return
	}
	b.connects <- connect

	if b.refuse {
		errFrame := NewFrame(CmdError, HdrMessage, "bad credentials")
		conn.WriteMessage(websocket.TextMessage, errFrame.Marshal())
		conn.Close()
		return
	}
	conn.WriteMessage(websocket.TextMessage, NewFrame(CmdConnected, "version", "1.2").Marshal())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := Unmarshal(data)
		if err != nil {
			b.t.Errorf("broker got malformed frame: %v", err)
			return
		}
		b.received <- frame
	}
}

func (b *fakeBroker) push(f *Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NoError(b.t, b.conn.WriteMessage(websocket.TextMessage, f.Marshal()))
}

func (b *fakeBroker) nextFrame(t *testing.T) *Frame {
	select {
	case f := <-b.received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame at broker")
		return nil
	}
}

func startBroker(t *testing.T, b *fakeBroker) string {
	srv := httptest.NewServer(http.HandlerFunc(b.handler))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestDialHandshake(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	conn, err := Dial(context.Background(), url, Options{Token: "tok-123"})
	require.NoError(t, err)
	defer conn.Close()

	connect := <-broker.connects
	assert.Equal(t, "1.2", connect.Header(HdrAcceptVersion))
	assert.Equal(t, "Bearer tok-123", connect.Header(HdrAuthorization))
	assert.Equal(t, "0,0", connect.Header(HdrHeartBeat))
}

func TestDialRefusedByBroker(t *testing.T) {
	broker := newFakeBroker(t)
	broker.refuse = true
	url := startBroker(t, broker)

	_, err := Dial(context.Background(), url, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestSubscribeDispatch(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	conn, err := Dial(context.Background(), url, Options{})
	require.NoError(t, err)
	defer conn.Close()

	got := make(chan *Frame, 1)
	subID, err := conn.Subscribe("/topic/chat.r1.messages", func(f *Frame) {
		got <- f
	})
	require.NoError(t, err)

	sub := broker.nextFrame(t)
	assert.Equal(t, CmdSubscribe, sub.Command)
	assert.Equal(t, subID, sub.Header(HdrID))
	assert.Equal(t, "/topic/chat.r1.messages", sub.Header(HdrDestination))

	msg := NewFrame(CmdMessage, HdrSubscription, subID, HdrDestination, "/topic/chat.r1.messages")
	msg.Body = []byte(`{"id":"m1","content":"hello"}`)
	broker.push(msg)

	select {
	case f := <-got:
		assert.JSONEq(t, `{"id":"m1","content":"hello"}`, string(f.Body))
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestMessageForUnknownSubscriptionDropped(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	conn, err := Dial(context.Background(), url, Options{})
	require.NoError(t, err)
	defer conn.Close()

	invoked := make(chan struct{}, 1)
	subID, err := conn.Subscribe("/topic/known", func(*Frame) { invoked <- struct{}{} })
	require.NoError(t, err)
	broker.nextFrame(t)

	stray := NewFrame(CmdMessage, HdrSubscription, "not-"+subID)
	broker.push(stray)

	select {
	case <-invoked:
		t.Fatal("handler invoked for foreign subscription")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendJSON(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	conn, err := Dial(context.Background(), url, Options{})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SendJSON("/app/chat.send.r1", map[string]string{"content": "hi"}))

	frame := broker.nextFrame(t)
	assert.Equal(t, CmdSend, frame.Command)
	assert.Equal(t, "/app/chat.send.r1", frame.Header(HdrDestination))
	assert.Equal(t, "application/json", frame.Header(HdrContentType))
	assert.JSONEq(t, `{"content":"hi"}`, string(frame.Body))
}

func TestUnsubscribe(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	conn, err := Dial(context.Background(), url, Options{})
	require.NoError(t, err)
	defer conn.Close()

	subID, err := conn.Subscribe("/topic/x", func(*Frame) {})
	require.NoError(t, err)
	broker.nextFrame(t)

	require.NoError(t, conn.Unsubscribe(subID))
	frame := broker.nextFrame(t)
	assert.Equal(t, CmdUnsubscribe, frame.Command)
	assert.Equal(t, subID, frame.Header(HdrID))

	assert.ErrorIs(t, conn.Unsubscribe(subID), ErrNoSubscription)
}

func TestErrorFrameReportsOnce(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	errs := make(chan error, 4)
	conn, err := Dial(context.Background(), url, Options{OnError: func(e error) { errs <- e }})
	require.NoError(t, err)
	defer conn.Close()

	broker.push(NewFrame(CmdError, HdrMessage, "session torn down"))

	select {
	case e := <-errs:
		assert.Contains(t, e.Error(), "session torn down")
	case <-time.After(2 * time.Second):
		t.Fatal("OnError never invoked")
	}
	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit")
	}
	// Operations after failure report the closed state.
	assert.ErrorIs(t, conn.SendJSON("/app/x", struct{}{}), ErrConnClosed)
}

func TestCloseSuppressesOnError(t *testing.T) {
	broker := newFakeBroker(t)
	url := startBroker(t, broker)

	errs := make(chan error, 4)
	conn, err := Dial(context.Background(), url, Options{OnError: func(e error) { errs <- e }})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close()) // idempotent

	select {
	case e := <-errs:
		t.Fatalf("OnError after deliberate close: %v", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in, wantURL, wantHost string
	}{
		{"http://localhost:8082/ws-chat", "ws://localhost:8082/ws-chat/websocket", "localhost"},
		{"https://chat.example.com/ws-chat", "wss://chat.example.com/ws-chat/websocket", "chat.example.com"},
		{"ws://localhost:8082/ws-chat/websocket", "ws://localhost:8082/ws-chat/websocket", "localhost"},
		{"http://localhost:8082/ws-chat/", "ws://localhost:8082/ws-chat/websocket", "localhost"},
	}
	for _, tc := range cases {
		gotURL, gotHost, err := NormalizeEndpoint(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.wantURL, gotURL, tc.in)
		assert.Equal(t, tc.wantHost, gotHost, tc.in)
	}

	for _, bad := range []string{"ftp://x/ws", "://", "http://"} {
		_, _, err := NormalizeEndpoint(bad)
		assert.Error(t, err, bad)
	}
}
