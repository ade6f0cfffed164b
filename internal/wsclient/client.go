// Package wsclient maintains a long-lived WebSocket connection to a
// streaming backend: dials, reconnects with bounded exponential backoff and
// delivers decoded frames to a single Listener.
package wsclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptstream/promptstream/internal/frame"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Option configures Client.
type Option func(*Client)

// WithDialer sets custom Dialer. By default WebsocketDialer is used.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithScheduler sets Scheduler used for deferred reconnects.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}

// WithLogger sets logger. By default global zerolog logger is used.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client owns at most one live connection at a time.
type Client struct {
	cfg       Config
	listener  Listener
	dialer    Dialer
	scheduler Scheduler
	logger    zerolog.Logger
	limiter   *rate.Limiter

	mu        sync.Mutex
	state     State
	conn      *connection // non-nil only while connecting or open.
	nextID    uint64
	closedID  uint64 // last connection which went through onClosed.
	retries   int
	exhausted bool
	manual    bool // Disconnect was called after the last Connect.
	timer     Timer
	timerSeq  uint64
}

type connection struct {
	id        uint64
	ctx       context.Context
	cancel    context.CancelFunc
	transport Transport
}

// New creates Client. It does not connect, call Connect for that.
func New(cfg Config, listener Listener, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if listener == nil {
		listener = ListenerFuncs{}
	}
	c := &Client{
		cfg:       cfg,
		listener:  listener,
		scheduler: timeScheduler{},
		logger:    log.Logger,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(cfg)
	}
	if cfg.SendRateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SendRateLimit), cfg.SendRateBurst)
	}
	c.logger = c.logger.With().Str("component", "wsclient").Str("url", cfg.URL).Logger()
	connectionsGauge.WithLabelValues(StateIdle.String()).Inc()
	return c, nil
}

// State returns current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns current state together with reconnect bookkeeping.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state,
		Retries:    c.retries,
		MaxRetries: c.cfg.MaxRetries,
		Exhausted:  c.exhausted,
	}
}

// Connect starts a new connection unless one is already connecting or open.
// It never blocks, the outcome is reported to Listener.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.logger.Debug().Str("state", c.state.String()).Msg("connection already exists")
		return
	}
	c.manual = false
	c.exhausted = false
	c.stopTimerLocked()
	c.startLocked()
}

// Disconnect closes the connection on caller's request. Pending reconnect
// is cancelled and no further events from the closed connection are
// delivered. Client stays closed until Connect is called.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	if c.state != StateIdle {
		c.setStateLocked(StateClosed)
	}
	var transport Transport
	if conn != nil {
		conn.cancel()
		transport = conn.transport
	}
	c.mu.Unlock()

	if transport != nil {
		if err := transport.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("error closing transport")
		}
	}
	if conn != nil {
		c.logger.Info().Uint64("conn", conn.id).Msg("disconnected")
	}
}

// Send serializes msg and writes it as one text frame. It returns ErrNotOpen
// without touching the transport when there is no open connection.
func (c *Client) Send(msg frame.Message) error {
	c.mu.Lock()
	var transport Transport
	if c.conn != nil && c.state == StateOpen {
		transport = c.conn.transport
	}
	c.mu.Unlock()

	if transport == nil {
		sendRejectedTotal.WithLabelValues("not_open").Inc()
		c.logger.Error().Str("action", msg.Action()).Msg("cannot send message, connection is not open")
		return ErrNotOpen
	}
	if c.limiter != nil && !c.limiter.Allow() {
		sendRejectedTotal.WithLabelValues("rate_limit").Inc()
		return ErrRateLimited
	}
	data, err := msg.Encode()
	if err != nil {
		sendRejectedTotal.WithLabelValues("encode").Inc()
		return fmt.Errorf("wsclient: encode message: %w", err)
	}
	if err := transport.WriteMessage(data); err != nil {
		c.logger.Error().Err(err).Msg("error sending message")
		return &TransportError{Op: "write", Err: err}
	}
	messagesSentTotal.Inc()
	return nil
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	connectionsGauge.WithLabelValues(c.state.String()).Dec()
	connectionsGauge.WithLabelValues(s.String()).Inc()
	c.state = s
}

func (c *Client) stopTimerLocked() {
	c.timerSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) startLocked() {
	c.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{id: c.nextID, ctx: ctx, cancel: cancel}
	c.conn = conn
	c.setStateLocked(StateConnecting)
	c.logger.Info().Uint64("conn", conn.id).Int("attempt", c.retries).Msg("connecting")
	go c.run(conn)
}

// run is the only source of events for conn.
func (c *Client) run(conn *connection) {
	transport, err := c.dialer.Dial(conn.ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		dialTotal.WithLabelValues("error").Inc()
		tErr := &TransportError{Op: "dial", Err: err}
		c.onFailed(conn, tErr, CloseEvent{Code: closeAbnormal, Err: tErr})
		return
	}
	dialTotal.WithLabelValues("ok").Inc()
	if !c.onOpened(conn, transport) {
		_ = transport.Close()
		return
	}
	for {
		data, err := transport.ReadMessage()
		if err != nil {
			_ = transport.Close()
			ev := closeEventFromError(err)
			if ev.Clean() {
				c.onClosed(conn, ev)
			} else {
				c.onFailed(conn, &TransportError{Op: "read", Err: err}, ev)
			}
			return
		}
		c.onMessage(conn, data)
	}
}

func (c *Client) isLive(conn *connection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *Client) onOpened(conn *connection, transport Transport) bool {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return false
	}
	conn.transport = transport
	c.retries = 0
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.logger.Info().Uint64("conn", conn.id).Msg("connection opened")
	c.listener.OnOpen()
	return true
}

func (c *Client) onMessage(conn *connection, data []byte) {
	if !c.isLive(conn) {
		return
	}
	messagesReceivedTotal.Inc()
	f, err := frame.Parse(data)
	if err != nil {
		parseErrorsTotal.Inc()
		c.logger.Warn().Err(err).Int("size", len(data)).Msg("error parsing message")
	}
	c.listener.OnMessage(f)
}

func (c *Client) onFailed(conn *connection, err error, ev CloseEvent) {
	if !c.isLive(conn) {
		return
	}
	c.logger.Warn().Err(err).Uint64("conn", conn.id).Msg("transport error")
	c.listener.OnError(err)
	c.onClosed(conn, ev)
}

func (c *Client) onClosed(conn *connection, ev CloseEvent) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	conn.cancel()
	c.conn = nil
	c.closedID = conn.id
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	c.logger.Info().Uint64("conn", conn.id).Int("code", ev.Code).Str("reason", ev.Reason).Msg("connection closed")
	c.listener.OnClose(ev)
	c.scheduleReconnect(conn)
}

// scheduleReconnect runs after OnClose was delivered so that events of the
// next connection never interleave with the previous one.
func (c *Client) scheduleReconnect(conn *connection) {
	c.mu.Lock()
	if c.manual || c.conn != nil || c.timer != nil || c.closedID != conn.id {
		c.mu.Unlock()
		return
	}
	if c.retries >= c.cfg.MaxRetries {
		c.exhausted = true
		maxRetries := c.cfg.MaxRetries
		c.mu.Unlock()
		reconnectsExhaustedTotal.Inc()
		c.logger.Error().Int("max_retries", maxRetries).Msg("maximum reconnect attempts reached")
		c.listener.OnError(fmt.Errorf("%w (%d attempts)", ErrReconnectExhausted, maxRetries))
		return
	}
	c.retries++
	attempt := c.retries
	delay := c.cfg.Backoff.Delay(attempt)
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.reconnect(seq)
	})
	c.mu.Unlock()

	reconnectsScheduledTotal.Inc()
	c.logger.Info().
		Int("attempt", attempt).
		Int("max_retries", c.cfg.MaxRetries).
		Str("delay", delay.String()).
		Msg("attempting to reconnect")
}

func (c *Client) reconnect(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.timerSeq || c.timer == nil {
		return
	}
	c.timer = nil
	if c.manual || c.conn != nil {
		return
	}
	c.startLocked()
}
