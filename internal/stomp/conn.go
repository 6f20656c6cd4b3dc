package stomp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultHandshakeTimeout = 10 * time.Second

var (
	ErrConnClosed     = errors.New("stomp: connection closed")
	ErrNoSubscription = errors.New("stomp: no such subscription")
)

// Handler receives MESSAGE frames for one subscription.
type Handler func(*Frame)

// Options configures Dial.
type Options struct {
	// Token, when set, is sent as a bearer credential on the CONNECT frame.
	Token string
	// OnError is invoked once when the connection fails after a successful
	// handshake (transport error or broker ERROR frame). It is not invoked
	// on a deliberate Close.
	OnError func(error)
	// HandshakeTimeout bounds the CONNECT/CONNECTED exchange.
	HandshakeTimeout time.Duration
	Logger           *zap.Logger
}

// Conn is a STOMP 1.2 client connection over a websocket transport.
// All methods are safe for concurrent use.
type Conn struct {
	ws      *websocket.Conn
	logger  *zap.Logger
	onError func(error)

	writeMu sync.Mutex // serializes websocket writes

	mu     sync.Mutex
	subs   map[string]Handler // subscription id -> handler
	closed bool

	done chan struct{}
}

// Dial opens the websocket transport, performs the STOMP handshake and
// starts the read loop. The endpoint may be an http(s) SockJS base URL;
// it is normalized to the raw-websocket form before dialing.
func Dial(ctx context.Context, endpoint string, opts Options) (*Conn, error) {
	wsURL, host, err := NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stomp: dial %s: %w", wsURL, err)
	}

	connect := NewFrame(CmdConnect,
		HdrAcceptVersion, "1.2",
		HdrHost, host,
		HdrHeartBeat, "0,0",
	)
	if opts.Token != "" {
		connect.Headers[HdrAuthorization] = "Bearer " + opts.Token
	}
	if err := ws.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		ws.Close()
		return nil, fmt.Errorf("stomp: write CONNECT: %w", err)
	}

	ws.SetReadDeadline(time.Now().Add(timeout))
	reply, err := readFrame(ws)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("stomp: handshake: %w", err)
	}
	switch reply.Command {
	case CmdConnected:
		// ok
	case CmdError:
		ws.Close()
		return nil, fmt.Errorf("stomp: broker refused connection: %s", reply.Header(HdrMessage))
	default:
		ws.Close()
		return nil, fmt.Errorf("%w: unexpected %s during handshake", ErrMalformedFrame, reply.Command)
	}
	ws.SetReadDeadline(time.Time{})

	c := &Conn{
		ws:      ws,
		logger:  logger,
		onError: opts.OnError,
		subs:    make(map[string]Handler),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Subscribe registers a handler for a destination and returns the
// subscription id to use with Unsubscribe.
func (c *Conn) Subscribe(destination string, h Handler) (string, error) {
	id := uuid.NewString()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrConnClosed
	}
	c.subs[id] = h
	c.mu.Unlock()

	frame := NewFrame(CmdSubscribe, HdrID, id, HdrDestination, destination)
	if err := c.writeFrame(frame); err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return "", err
	}
	c.logger.Debug("subscribed", zap.String("destination", destination), zap.String("id", id))
	return id, nil
}

// Unsubscribe tears down one subscription. Unknown ids return
// ErrNoSubscription.
func (c *Conn) Unsubscribe(id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if _, ok := c.subs[id]; !ok {
		c.mu.Unlock()
		return ErrNoSubscription
	}
	delete(c.subs, id)
	c.mu.Unlock()

	return c.writeFrame(NewFrame(CmdUnsubscribe, HdrID, id))
}

// SendJSON publishes a JSON-encoded body to a destination. No receipt is
// requested; delivery is fire-and-forget.
func (c *Conn) SendJSON(destination string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stomp: encode body: %w", err)
	}
	frame := NewFrame(CmdSend, HdrDestination, destination, HdrContentType, "application/json")
	frame.Body = body
	return c.writeFrame(frame)
}

// Close sends DISCONNECT and closes the transport. It is safe to call
// multiple times; the error callback is suppressed for a deliberate close.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.subs = make(map[string]Handler)
	c.mu.Unlock()

	// Best effort; the broker may already be gone.
	c.writeMu.Lock()
	c.ws.WriteMessage(websocket.TextMessage, NewFrame(CmdDisconnect).Marshal())
	c.writeMu.Unlock()
	return c.ws.Close()
}

// Done is closed when the read loop exits, for either reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writeFrame(f *Frame) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, f.Marshal())
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		frame, err := readFrame(c.ws)
		if err != nil {
			c.fail(fmt.Errorf("stomp: read: %w", err))
			return
		}
		if frame.IsHeartbeat() {
			continue
		}
		switch frame.Command {
		case CmdMessage:
			c.dispatch(frame)
		case CmdReceipt:
			// Receipts are never requested; ignore.
		case CmdError:
			c.fail(fmt.Errorf("stomp: broker error: %s", frame.Header(HdrMessage)))
			return
		default:
			c.logger.Warn("unexpected frame", zap.String("command", frame.Command))
		}
	}
}

func (c *Conn) dispatch(frame *Frame) {
	id := frame.Header(HdrSubscription)
	c.mu.Lock()
	h := c.subs[id]
	c.mu.Unlock()
	if h == nil {
		c.logger.Debug("message for unknown subscription", zap.String("id", id))
		return
	}
	h(frame)
}

// fail closes the transport after an unexpected error and reports it once,
// unless the connection was deliberately closed.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.subs = make(map[string]Handler)
	c.mu.Unlock()

	c.ws.Close()
	if !wasClosed && c.onError != nil {
		c.onError(err)
	}
}

func readFrame(ws *websocket.Conn) (*Frame, error) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
