// Package channel owns the persistent control connection between the
// device and the operator console. A Channel drives the connection state
// machine, performs the hello handshake, recovers from transport loss with
// capped exponential backoff, and dispatches decoded inbound messages and
// state transitions to subscribed handlers in arrival order.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/roomlink/internal/wire"
	"pkt.systems/roomlink/schema"
)

const (
	// DefaultBaseDelay is the initial reconnect delay.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the reconnect delay.
	DefaultMaxDelay = 30 * time.Second
	// DefaultPort is the console control port.
	DefaultPort = 9876
	// DefaultPath is the console control endpoint path.
	DefaultPath = "/control"
)

// Conn is one established transport connection. Implementations must
// support one concurrent reader and serialized writers.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer establishes transport connections to the console.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// Config controls a Channel.
type Config struct {
	// Dialer establishes connections. Defaults to a websocket dialer.
	Dialer Dialer
	// Port and Path locate the control endpoint on the console host.
	Port int
	Path string
	// BaseDelay and MaxDelay bound the reconnect backoff schedule.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// DisableReconnect turns unexpected transport loss into a terminal
	// failure instead of a reconnect cycle.
	DisableReconnect bool
	Logger           pslog.Logger
}

// Channel is one control connection lifecycle owner. Connection state and
// the reconnect schedule are written only by the run loop of the current
// generation; callers observe state via State/IsConnected and Subscribe.
type Channel struct {
	cfg Config
	log pslog.Logger

	mu      sync.Mutex
	state   schema.ConnState
	reason  error
	creds   schema.Credentials
	gen     uint64
	cancel  context.CancelFunc
	conn    Conn
	subs    map[int]schema.Handler
	nextSub int
	waiters []chan error
	settled bool

	dispatchMu sync.Mutex

	dropped        atomic.Uint64
	decodeFailures atomic.Uint64
}

// New constructs a disconnected Channel.
func New(cfg Config) *Channel {
	if cfg.Dialer == nil {
		cfg.Dialer = NewWSDialer(WSConfig{})
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = DefaultMaxDelay
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Channel{
		cfg:   cfg,
		log:   log,
		state: schema.StateDisconnected,
		subs:  make(map[int]schema.Handler),
	}
}

// State returns the current connection state.
func (c *Channel) State() schema.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the most recently completed transition
// reached Connected.
func (c *Channel) IsConnected() bool {
	return c.State() == schema.StateConnected
}

// Reason returns the error attached to the current state, if any.
func (c *Channel) Reason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Dropped returns the number of outbound messages dropped by Send.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// DecodeFailures returns the number of inbound frames that failed to decode.
func (c *Channel) DecodeFailures() uint64 {
	return c.decodeFailures.Load()
}

// Subscribe registers a handler for inbound messages and state
// transitions and returns a disposer. Handlers are invoked in
// registration order; within one handler, events arrive in wire order.
func (c *Channel) Subscribe(h schema.Handler) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Connect opens the channel with the given credentials and blocks until
// the attempt reaches a terminal state: nil once the handshake has been
// sent on an established transport, an error if the attempt failed or was
// torn down. Connect is a no-op when already connected (or connecting)
// with the same credentials; different credentials tear down the prior
// lifecycle and start fresh.
func (c *Channel) Connect(ctx context.Context, creds schema.Credentials) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.creds == creds {
		switch c.state {
		case schema.StateConnected:
			c.mu.Unlock()
			return nil
		case schema.StateConnecting, schema.StateReconnecting:
			w := make(chan error, 1)
			c.waiters = append(c.waiters, w)
			c.mu.Unlock()
			select {
			case err := <-w:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.creds = creds
	c.settled = false
	w := make(chan error, 1)
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	go c.run(runCtx, gen, creds)

	select {
	case err := <-w:
		return err
	case <-ctx.Done():
		// Tear down only the attempt this call started; a newer
		// generation belongs to someone else.
		c.abort(gen)
		return ctx.Err()
	}
}

// abort tears down the lifecycle identified by gen if it is still the
// current one.
func (c *Channel) abort(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	waiters, changed := c.teardownLocked()
	c.mu.Unlock()
	c.finishTeardown(waiters, changed)
}

// Disconnect tears the channel down: it cancels any in-flight attempt and
// pending reconnect timer and transitions to Disconnected. A completing
// attempt from a prior generation can no longer change state. Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	waiters, changed := c.teardownLocked()
	c.mu.Unlock()
	c.finishTeardown(waiters, changed)
}

func (c *Channel) teardownLocked() ([]chan error, bool) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	changed := c.state != schema.StateDisconnected
	c.state = schema.StateDisconnected
	c.reason = nil
	c.creds = schema.Credentials{}
	waiters := c.waiters
	c.waiters = nil
	return waiters, changed
}

func (c *Channel) finishTeardown(waiters []chan error, changed bool) {
	for _, w := range waiters {
		w <- schema.ErrChannelClosed
	}
	if changed {
		c.dispatch(schema.Event{Kind: schema.EventState, Source: schema.SourceChannel, State: schema.StateDisconnected})
	}
}

// Send transmits a message when connected. Anything else is a counted
// drop: stale control traffic must not be queued and replayed into a
// later session.
func (c *Channel) Send(m schema.Message) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == schema.StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.dropped.Add(1)
		c.log.Trace("send dropped while not connected", "type", m.MessageType())
		return
	}
	data, err := wire.Encode(m)
	if err != nil {
		c.dropped.Add(1)
		c.log.Warn("send encode failed", "type", m.MessageType(), "err", err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		// The read loop observes the loss and drives reconnection.
		c.dropped.Add(1)
		c.log.Debug("send write failed", "type", m.MessageType(), "err", err)
	}
}

func (c *Channel) run(ctx context.Context, gen uint64, creds schema.Credentials) {
	log := c.log.With("host", creds.Host)
	bo := newBackoff(c.cfg.BaseDelay, c.cfg.MaxDelay)
	url := c.endpoint(creds.Host)
	for {
		if !c.setState(gen, schema.StateConnecting, nil) {
			return
		}
		conn, err := c.cfg.Dialer.DialContext(ctx, url)
		if err == nil {
			err = c.handshake(conn, creds)
			if err == nil {
				if !c.adoptConn(gen, conn) {
					_ = conn.Close()
					return
				}
				if !c.setState(gen, schema.StateConnected, nil) {
					_ = conn.Close()
					return
				}
				bo.Reset()
				c.settle(gen, nil)
				log.Info("control channel connected")
				err = c.readLoop(conn, gen)
			}
			_ = conn.Close()
			c.releaseConn(gen, conn)
		}
		if ctx.Err() != nil {
			// Torn down by the caller; Disconnect owns the final state.
			return
		}
		if errors.Is(err, schema.ErrHandshakeRejected) {
			log.Warn("console rejected pairing", "err", err)
			c.setState(gen, schema.StateFailed, err)
			c.settle(gen, err)
			return
		}
		if !c.isSettled(gen) {
			c.setState(gen, schema.StateFailed, err)
			c.settle(gen, err)
			return
		}
		if c.cfg.DisableReconnect {
			c.setState(gen, schema.StateFailed, err)
			return
		}
		if !c.setState(gen, schema.StateReconnecting, err) {
			return
		}
		delay := bo.Next()
		log.Debug("reconnect scheduled", "attempt", bo.Attempt(), "delay", delay, "err", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) handshake(conn Conn, creds schema.Credentials) error {
	frame, err := wire.Encode(schema.Hello{Role: schema.RoleDevice, Token: creds.Token})
	if err != nil {
		return err
	}
	return conn.WriteMessage(frame)
}

func (c *Channel) readLoop(conn Conn, gen uint64) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := wire.Decode(data)
		if err != nil {
			// A single corrupted frame must not terminate the channel.
			c.decodeFailures.Add(1)
			c.log.Warn("dropping undecodable frame", "err", err)
			continue
		}
		if !c.currentGen(gen) {
			return schema.ErrChannelClosed
		}
		c.dispatch(schema.Event{Kind: schema.EventMessage, Source: schema.SourceChannel, Message: msg})
	}
}

func (c *Channel) endpoint(host string) string {
	return fmt.Sprintf("ws://%s:%d%s", host, c.cfg.Port, c.cfg.Path)
}

// setState records a transition and dispatches it. Returns false when gen
// is no longer current, in which case nothing is written or dispatched.
func (c *Channel) setState(gen uint64, state schema.ConnState, reason error) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.reason = reason
	c.mu.Unlock()
	event := schema.Event{Kind: schema.EventState, Source: schema.SourceChannel, State: state}
	if reason != nil {
		event.Reason = reason.Error()
	}
	c.dispatch(event)
	return true
}

func (c *Channel) adoptConn(gen uint64, conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.conn = conn
	return true
}

func (c *Channel) releaseConn(gen uint64, conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen && c.conn == conn {
		c.conn = nil
	}
}

func (c *Channel) currentGen(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Channel) isSettled(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && c.settled
}

// settle resolves pending Connect calls for the current generation.
func (c *Channel) settle(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.settled = true
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, w := range waiters {
		w <- err
	}
}

// dispatch delivers one event to every subscribed handler. Delivery is
// serialized so each handler observes events in the order they occurred.
func (c *Channel) dispatch(event schema.Event) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]schema.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.subs[id])
	}
	c.mu.Unlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	for _, h := range handlers {
		c.invoke(h, event)
	}
}

func (c *Channel) invoke(h schema.Handler, event schema.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("event handler panicked", "kind", event.Kind, "panic", r)
		}
	}()
	h(event)
}
