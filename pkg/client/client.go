package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of the collaboration connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectInterval    = time.Second
	defaultMaxReconnectInterval = 30 * time.Second
	defaultPingInterval         = 30 * time.Second
	defaultPongTimeout          = 10 * time.Second
)

// Config configures one collaboration session.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the collaboration server.
	URL string

	// UserID and UserName identify the local participant. They come from
	// the session layer; the coordinator never authenticates users itself.
	UserID   string
	UserName string

	// MaxReconnectAttempts bounds recovery from an unintentional close.
	// After this many failed attempts the connection stays closed until
	// Connect is called again.
	MaxReconnectAttempts int

	// ReconnectInterval seeds the exponential backoff between attempts;
	// MaxReconnectInterval caps it.
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration

	// PingInterval is how often a liveness probe is sent while open.
	// A pong must arrive within PongTimeout or the connection is treated
	// as dead and the reconnection path runs.
	PingInterval time.Duration
	PongTimeout  time.Duration

	// RejoinRooms re-joins previously active rooms after a successful
	// reconnection. Locks are never re-acquired automatically.
	RejoinRooms bool

	Telemetry Telemetry
	Logger    *logrus.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxReconnectInterval == 0 {
		cfg.MaxReconnectInterval = defaultMaxReconnectInterval
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout == 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = NopTelemetry{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return cfg
}

// wsSession is one established socket. A new session is created per
// (re)connection so stale goroutines can never touch a newer socket.
type wsSession struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	done     chan struct{}
	lostOnce sync.Once
	pongCh   chan int64
}

// Client coordinates one real-time collaboration session: presence, locks,
// cursors, update broadcast, and conflict resolution over a persistent
// WebSocket. Construct with New, then Connect; every session owns its own
// state, so independent sessions never share anything.
type Client struct {
	cfg       Config
	log       *logrus.Logger
	telemetry Telemetry
	bus       *eventBus

	mu               sync.Mutex
	state            State
	sess             *wsSession
	done             chan struct{}
	reconnectAttempt int

	rooms     map[string]*roomState
	locks     map[string]structs.Lock
	cursors   map[string]Cursor
	entities  map[string]*entityState
	conflicts map[string]*Conflict
	pending   map[string]*pendingRequest
}

// New builds a disconnected client. No socket is opened until Connect.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:       cfg,
		log:       cfg.Logger,
		telemetry: cfg.Telemetry,
		bus:       &eventBus{log: cfg.Logger},
		state:     StateDisconnected,
		rooms:     make(map[string]*roomState),
		locks:     make(map[string]structs.Lock),
		cursors:   make(map[string]Cursor),
		entities:  make(map[string]*entityState),
		conflicts: make(map[string]*Conflict),
		pending:   make(map[string]*pendingRequest),
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempt returns the current reconnection attempt counter. It is
// zero while the connection is healthy.
func (c *Client) ReconnectAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempt
}

// Connect establishes the socket and returns once the transport is open.
// Calling Connect on an already open or connecting client is an error;
// calling it after Disconnect or after reconnection gave up starts a fresh
// session.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateOpen, StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.done = make(chan struct{})
	c.reconnectAttempt = 0
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("connect to collaboration server: %w", err)
	}

	if !c.installSession(conn) {
		return ErrClosed
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", c.cfg.UserID)
	q.Set("userName", c.cfg.UserName)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// installSession adopts a freshly dialed socket, unless Disconnect ran
// while the dial was in flight. Disconnect is the single cancellation
// point, so a closed client never comes back open behind the caller.
func (c *Client) installSession(conn *websocket.Conn) bool {
	sess := &wsSession{
		conn:   conn,
		done:   make(chan struct{}),
		pongCh: make(chan int64, 1),
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.sess = sess
	c.state = StateOpen
	c.reconnectAttempt = 0
	c.mu.Unlock()

	go c.readLoop(sess)
	go c.heartbeat(sess)

	c.report(EventConnected, map[string]any{"userId": c.cfg.UserID})
	c.bus.emit(EventConnected, nil)
	return true
}

// Disconnect closes the session deterministically. It is idempotent and is
// the single cancellation point: heartbeat and reconnect tasks stop, every
// pending request is rejected, and all room, lock, cursor, and conflict
// state is cleared.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateDisconnected {
		// Nothing to tear down; a session that never opened (or was
		// already closed) does not emit a disconnected event.
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	sess := c.sess
	c.sess = nil
	done := c.done
	c.done = nil
	c.clearAllLocked(ErrClosed)
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if sess != nil {
		sess.lostOnce.Do(func() {
			close(sess.done)
			sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "disconnect"),
				time.Now().Add(time.Second))
			sess.conn.Close()
		})
	}

	c.report(EventDisconnected, map[string]any{"userId": c.cfg.UserID})
	c.bus.emit(EventDisconnected, nil)
}

// send writes one frame. It fails rather than queue when the connection is
// not open; buffering during disconnect is out of scope by design of the
// protocol, callers re-send after reconnection if delivery matters.
func (c *Client) send(msg structs.Message) error {
	c.mu.Lock()
	sess := c.sess
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || sess == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", msg.Type, err)
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	return sess.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) readLoop(sess *wsSession) {
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			c.connectionLost(sess, err)
			return
		}
		c.dispatch(sess, raw)
	}
}

// dispatch routes one inbound frame. A malformed frame is logged and
// dropped; it never takes the connection down. Frame types the coordinator
// does not own are republished verbatim so UI-level consumers can extend
// behavior without core changes.
func (c *Client) dispatch(sess *wsSession, raw []byte) {
	var msg structs.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.WithError(err).Warn("Dropping malformed frame")
		return
	}

	switch msg.Type {
	case structs.TypePong:
		select {
		case sess.pongCh <- msg.Timestamp:
		default:
		}
	case structs.TypeJoined:
		c.handleJoined(msg)
	case structs.TypeUserJoined:
		c.handleUserJoined(msg)
	case structs.TypeUserLeft:
		c.handleUserLeft(msg)
	case structs.TypeLockAcquired:
		c.handleLockAcquired(msg)
	case structs.TypeLockFailed:
		c.handleLockFailed(msg)
	case structs.TypeLockReleased:
		c.handleLockReleased(msg)
	case structs.TypeCursor:
		c.handleCursor(msg)
	case structs.TypeUpdate:
		c.handleUpdate(msg)
	case structs.TypeFieldOperation:
		c.bus.emit(structs.TypeFieldOperation, msg)
	default:
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err == nil {
			c.bus.emit(msg.Type, generic)
		}
	}
}

// heartbeat proves liveness while the session is open. A ping that goes
// unanswered within the pong timeout is treated as a dead connection and
// runs the same path as an unintentional close.
func (c *Client) heartbeat(sess *wsSession) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			if err := c.send(structs.Message{Type: structs.TypePing, Timestamp: time.Now().UnixMilli()}); err != nil {
				return
			}
			timeout := time.NewTimer(c.cfg.PongTimeout)
			select {
			case <-sess.pongCh:
				timeout.Stop()
			case <-sess.done:
				timeout.Stop()
				return
			case <-timeout.C:
				c.report(EventPingTimeout, map[string]any{"userId": c.cfg.UserID})
				c.bus.emit(EventPingTimeout, nil)
				// Closing the socket makes the read loop run the
				// unintentional-close path exactly once.
				sess.conn.Close()
				return
			}
		}
	}
}

// connectionLost handles an unintentional close of the given session. Lock
// and cursor mirrors are stale without a live server feed, so they are
// dropped immediately; pending requests are rejected rather than left to
// hang. Runs at most once per session.
func (c *Client) connectionLost(sess *wsSession, cause error) {
	sess.lostOnce.Do(func() {
		close(sess.done)
		sess.conn.Close()

		c.mu.Lock()
		if c.sess == sess {
			c.sess = nil
		}
		if c.state == StateClosed {
			// Explicit Disconnect already tore everything down.
			c.mu.Unlock()
			return
		}
		c.log.WithError(cause).Warn("Connection lost, scheduling reconnection")
		c.state = StateReconnecting
		c.clearVolatileLocked()
		c.mu.Unlock()

		go c.reconnectLoop()
	})
}

func (c *Client) reconnectLoop() {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = c.cfg.MaxReconnectInterval
	b.MaxElapsedTime = 0

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			return
		}
		c.state = StateReconnecting
		c.reconnectAttempt = attempt
		done := c.done
		c.mu.Unlock()

		c.report(EventReconnecting, map[string]any{"attempt": attempt})
		c.bus.emit(EventReconnecting, ReconnectingEvent{Attempt: attempt})

		select {
		case <-done:
			return
		case <-time.After(b.NextBackOff()):
		}

		conn, err := c.dial(context.Background())
		if err != nil {
			c.log.WithError(err).Warnf("Reconnection attempt %d failed", attempt)
			continue
		}

		if !c.installSession(conn) {
			return
		}
		if c.cfg.RejoinRooms {
			c.rejoinRooms()
		}
		return
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	done := c.done
	c.done = nil
	c.clearAllLocked(ErrClosed)
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	c.report(EventReconnectFailed, map[string]any{"attempts": c.cfg.MaxReconnectAttempts})
	c.bus.emit(EventReconnectFailed, ReconnectFailedEvent{Attempts: c.cfg.MaxReconnectAttempts})
}

func (c *Client) rejoinRooms() {
	c.mu.Lock()
	refs := make([]*roomState, 0, len(c.rooms))
	for _, rs := range c.rooms {
		refs = append(refs, rs)
	}
	c.mu.Unlock()

	for _, rs := range refs {
		err := c.send(structs.Message{
			Type:       structs.TypeJoin,
			EntityType: rs.entityType,
			EntityID:   rs.entityID,
			UserID:     c.cfg.UserID,
			UserName:   c.cfg.UserName,
		})
		if err != nil {
			c.log.WithError(err).Warnf("Failed to rejoin %s", structs.EntityKey(rs.entityType, rs.entityID))
		}
	}
}

// clearVolatileLocked drops state that is meaningless without a live
// connection. Conflicts and tracked versions survive so that divergent
// offline edits still surface after a reconnect. Caller holds c.mu.
func (c *Client) clearVolatileLocked() {
	c.rejectPendingLocked(ErrNotConnected)
	c.locks = make(map[string]structs.Lock)
	c.cursors = make(map[string]Cursor)
	if c.cfg.RejoinRooms {
		for _, rs := range c.rooms {
			rs.users = nil
		}
	} else {
		c.rooms = make(map[string]*roomState)
	}
}

// clearAllLocked resets every piece of session state. Caller holds c.mu.
func (c *Client) clearAllLocked(reject error) {
	c.rejectPendingLocked(reject)
	c.rooms = make(map[string]*roomState)
	c.locks = make(map[string]structs.Lock)
	c.cursors = make(map[string]Cursor)
	c.entities = make(map[string]*entityState)
	c.conflicts = make(map[string]*Conflict)
}
