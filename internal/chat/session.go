package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"consult-client/internal/models"
	"consult-client/internal/stomp"
)

// Default reconnect delay. Fixed interval, no backoff growth and no attempt
// cap: reconnection runs until Disconnect or a successful handshake.
const DefaultReconnectDelay = 5 * time.Second

var (
	ErrNotConnected     = errors.New("chat: not connected")
	ErrAlreadyConnected = errors.New("chat: already connected")
)

// State is the session connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// TokenSource supplies the bearer credential for the CONNECT frame. The
// token is re-read on every (re)connect attempt so a refreshed credential
// is picked up without restarting the session.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// ConnectionInfo is passed to OnOpen after each successful handshake.
type ConnectionInfo struct {
	Endpoint    string
	ConnectedAt time.Time
}

// Callbacks receives session lifecycle notifications. OnTopicsReady fires
// after every successful handshake, before OnOpen, so the caller can redo
// its subscriptions (they do not outlive a connection). OnError fires once
// per failed attempt or transport drop; the session keeps retrying on its
// own, so repeated OnError calls are the caller's reconnecting signal.
type Callbacks struct {
	OnTopicsReady func()
	OnOpen        func(ConnectionInfo)
	OnError       func(error)
}

// transport is the subset of the STOMP connection the session uses.
// Narrowed to an interface so tests can substitute a fake broker.
type transport interface {
	Subscribe(destination string, h stomp.Handler) (string, error)
	Unsubscribe(id string) error
	SendJSON(destination string, v any) error
	Close() error
}

type dialFunc func(ctx context.Context, onConnError func(error)) (transport, error)

// Config holds session construction parameters.
type Config struct {
	// Endpoint is the SockJS base URL of the chat broker.
	Endpoint string
	// ReconnectDelay overrides DefaultReconnectDelay when positive.
	ReconnectDelay time.Duration
	// HandshakeTimeout bounds each connection attempt.
	HandshakeTimeout time.Duration
}

// Session owns at most one live broker connection and multiplexes per-room
// message streams over it. One session per user; construct with NewSession,
// tear down with Disconnect. The session is safe for concurrent use.
type Session struct {
	endpoint       string
	reconnectDelay time.Duration
	tokens         TokenSource
	logger         *zap.Logger
	dial           dialFunc

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped on Disconnect to orphan in-flight attempts
	conn      transport
	cb        Callbacks
	reconnect *time.Timer

	// Single active room. Re-subscribing to a new room tears down the
	// previous room's subscriptions so they cannot accumulate.
	activeRoom string
	roomSubs   []string
}

// NewSession builds a session. No I/O happens until Connect.
func NewSession(cfg Config, tokens TokenSource, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	s := &Session{
		endpoint:       cfg.Endpoint,
		reconnectDelay: delay,
		tokens:         tokens,
		logger:         logger,
	}
	s.dial = func(ctx context.Context, onConnError func(error)) (transport, error) {
		token := ""
		if tokens != nil {
			t, err := tokens.Token()
			if err != nil {
				return nil, err
			}
			token = t
		}
		return stomp.Dial(ctx, cfg.Endpoint, stomp.Options{
			Token:            token,
			OnError:          onConnError,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Logger:           logger,
		})
	}
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the connection loop. A second call while connecting or
// connected is a no-op; exactly one transport is ever active. Callbacks are
// captured on the first effective call.
func (s *Session) Connect(cb Callbacks) {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		s.logger.Debug("connect ignored, session already active", zap.Stringer("state", s.state))
		return
	}
	s.state = StateConnecting
	s.cb = cb
	gen := s.gen
	s.mu.Unlock()

	go s.attempt(gen)
}

// attempt performs one dial+handshake. On failure it reports the error and
// arms the reconnect timer; on success it promotes the session to Connected.
func (s *Session) attempt(gen uint64) {
	conn, err := s.dial(context.Background(), func(connErr error) {
		s.transportLost(gen, connErr)
	})

	s.mu.Lock()
	if gen != s.gen || s.state != StateConnecting {
		// Disconnect won the race; discard whatever we got.
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		cb := s.cb
		s.armReconnectLocked(gen)
		s.mu.Unlock()
		s.logger.Warn("chat connect failed", zap.Error(err))
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	s.conn = conn
	s.state = StateConnected
	cb := s.cb
	s.mu.Unlock()

	s.logger.Info("chat connected", zap.String("endpoint", s.endpoint))
	if cb.OnTopicsReady != nil {
		cb.OnTopicsReady()
	}
	if cb.OnOpen != nil {
		cb.OnOpen(ConnectionInfo{Endpoint: s.endpoint, ConnectedAt: time.Now()})
	}
}

// transportLost handles an established connection dropping.
func (s *Session) transportLost(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateConnecting
	s.activeRoom = ""
	s.roomSubs = nil
	cb := s.cb
	s.armReconnectLocked(gen)
	s.mu.Unlock()

	s.logger.Warn("chat transport lost", zap.Error(err))
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

func (s *Session) armReconnectLocked(gen uint64) {
	s.reconnect = time.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		stale := gen != s.gen || s.state != StateConnecting
		s.mu.Unlock()
		if stale {
			return
		}
		s.attempt(gen)
	})
}

// Disconnect tears down the transport and all subscription state. Safe to
// call repeatedly and when never connected. Pending reconnects are cancelled.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.gen++
	s.state = StateDisconnected
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	conn := s.conn
	s.conn = nil
	s.activeRoom = ""
	s.roomSubs = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.logger.Info("chat disconnected")
}

// InitRoom asks the broker for the room shared with counterpartID. The room
// id arrives at most once per call through onRoomReady; the transient
// initiation subscription is dropped as soon as it fires. Returns
// ErrNotConnected when no transport is active.
func (s *Session) InitRoom(counterpartID string, onRoomReady func(roomID string)) error {
	conn, err := s.transportOrErr()
	if err != nil {
		return err
	}

	var (
		once  sync.Once
		ready = make(chan struct{})
		subID string
	)
	subID, err = conn.Subscribe(topicInit(counterpartID), func(f *stomp.Frame) {
		var resp models.RoomInitResponse
		if err := json.Unmarshal(f.Body, &resp); err != nil {
			s.logger.Warn("bad room init payload", zap.Error(err))
			return
		}
		once.Do(func() {
			<-ready // subID is assigned before ready closes
			if err := conn.Unsubscribe(subID); err != nil && !errors.Is(err, stomp.ErrConnClosed) {
				s.logger.Debug("init topic unsubscribe", zap.Error(err))
			}
			onRoomReady(resp.RoomID)
		})
	})
	if err != nil {
		return err
	}
	close(ready)
	return conn.SendJSON(destInit(counterpartID), models.RoomInitRequest{CounterpartID: counterpartID})
}

// SubscribeRoom attaches onEvent to the room's message and update streams
// and requests the room history (which arrives through the same message
// stream, unordered). Only one room is active at a time: subscribing to a
// new room first tears down the previous room's subscriptions.
func (s *Session) SubscribeRoom(roomID string, onEvent EventHandler) error {
	conn, err := s.transportOrErr()
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.roomSubs
	s.roomSubs = nil
	s.activeRoom = ""
	s.mu.Unlock()
	for _, id := range prev {
		if err := conn.Unsubscribe(id); err != nil && !errors.Is(err, stomp.ErrConnClosed) {
			s.logger.Debug("room unsubscribe", zap.Error(err))
		}
	}

	msgSub, err := conn.Subscribe(topicMessages(roomID), func(f *stomp.Frame) {
		m, ok := s.decodeMessage(f)
		if !ok {
			return
		}
		onEvent(Event{Kind: EventNewMessage, Message: m})
	})
	if err != nil {
		return err
	}
	updSub, err := conn.Subscribe(topicUpdates(roomID), func(f *stomp.Frame) {
		m, ok := s.decodeMessage(f)
		if !ok {
			return
		}
		onEvent(classifyUpdate(m))
	})
	if err != nil {
		conn.Unsubscribe(msgSub)
		return err
	}

	s.mu.Lock()
	s.activeRoom = roomID
	s.roomSubs = []string{msgSub, updSub}
	s.mu.Unlock()

	// Fire-and-forget; history interleaves with live messages on the
	// message stream and the consumer merges by id.
	return conn.SendJSON(destHistory(roomID), models.HistoryRequest{RoomID: roomID})
}

// ActiveRoom returns the room currently subscribed, or "".
func (s *Session) ActiveRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRoom
}

// Send publishes a new message to the room. Fire-and-forget: no receipt is
// awaited and delivery is not confirmed.
func (s *Session) Send(roomID string, req models.SendMessageRequest) error {
	conn, err := s.transportOrErr()
	if err != nil {
		return err
	}
	return conn.SendJSON(destSend(roomID), req)
}

// Edit publishes a content revision for an existing message id.
func (s *Session) Edit(roomID, messageID, newContent string) error {
	conn, err := s.transportOrErr()
	if err != nil {
		return err
	}
	return conn.SendJSON(destEdit(roomID), models.EditMessageRequest{MessageID: messageID, Content: newContent})
}

// Delete publishes a deletion intent for a message id.
func (s *Session) Delete(roomID, messageID string) error {
	conn, err := s.transportOrErr()
	if err != nil {
		return err
	}
	return conn.SendJSON(destDelete(roomID), models.DeleteMessageRequest{MessageID: messageID})
}

func (s *Session) transportOrErr() (transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

func (s *Session) decodeMessage(f *stomp.Frame) (models.Message, bool) {
	var m models.Message
	if err := json.Unmarshal(f.Body, &m); err != nil {
		s.logger.Warn("bad message payload", zap.Error(err))
		return models.Message{}, false
	}
	return m, true
}
