// Package subscription binds one consumer to one wsclient.Client for the
// lifetime of a scope and keeps track of the backend session identifier.
package subscription

import (
	"context"
	"errors"
	"sync"

	"github.com/promptstream/promptstream/internal/frame"
	"github.com/promptstream/promptstream/internal/wsclient"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyOpen returned from Run when Subscription is already open.
var ErrAlreadyOpen = errors.New("subscription: already open")

// Consumer receives every inbound frame. It runs on the connection read
// goroutine and must contain its own failures.
type Consumer func(f frame.Frame)

// Config of Subscription.
type Config struct {
	// Client configures the underlying connection. Client.URL is the endpoint.
	Client wsclient.Config
}

// Option configures Subscription.
type Option func(*Subscription)

// WithClientOptions passes options to every wsclient.Client created by Open.
func WithClientOptions(opts ...wsclient.Option) Option {
	return func(s *Subscription) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithLogger sets logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Subscription) {
		s.logger = l
	}
}

// Snapshot is a read-only view of Subscription state.
type Snapshot struct {
	Connected    bool
	ConnectionID string
	Err          error
	Exhausted    bool
	State        wsclient.State
}

// Subscription owns at most one client between Open and Close.
type Subscription struct {
	cfg        Config
	clientOpts []wsclient.Option
	logger     zerolog.Logger

	mu           sync.Mutex
	opened       bool
	owned        *wsclient.Client // for teardown, kept across reconnects.
	held         *wsclient.Client // send target, cleared on close.
	consumer     Consumer
	connected    bool
	connectionID string
	err          error
	exhausted    bool
	failed       chan struct{}
}

// New creates Subscription. Nothing is dialed until Open.
func New(cfg Config, opts ...Option) (*Subscription, error) {
	if err := cfg.Client.Validate(); err != nil {
		return nil, err
	}
	s := &Subscription{
		cfg:    cfg,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "subscription").Logger()
	return s, nil
}

// Open creates a client bound to consumer and starts connecting. It is a
// no-op returning false when Subscription is already open.
func (s *Subscription) Open(consumer Consumer) bool {
	return s.open(consumer) == nil
}

func (s *Subscription) open(consumer Consumer) error {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		s.logger.Debug().Msg("subscription already open")
		return ErrAlreadyOpen
	}
	b := &binding{s: s}
	opts := append([]wsclient.Option{wsclient.WithLogger(s.logger)}, s.clientOpts...)
	client, err := wsclient.New(s.cfg.Client, b, opts...)
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("error creating client")
		return err
	}
	b.client = client
	s.opened = true
	s.owned = client
	s.held = client
	s.consumer = consumer
	s.connected = false
	s.connectionID = ""
	s.err = nil
	s.exhausted = false
	s.failed = make(chan struct{})
	s.mu.Unlock()

	client.Connect()
	return nil
}

// Close disconnects the owned client, drops all state and allows Open again.
// Safe to call many times.
func (s *Subscription) Close() {
	s.mu.Lock()
	client := s.owned
	s.opened = false
	s.owned = nil
	s.held = nil
	s.consumer = nil
	s.connected = false
	s.connectionID = ""
	s.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
}

// Send forwards msg to the held client. Without a held client it does
// nothing and returns nil.
func (s *Subscription) Send(msg frame.Message) error {
	s.mu.Lock()
	client := s.held
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Send(msg)
}

// Run opens Subscription and blocks until ctx is done or reconnect attempts
// run out. Subscription is closed on return.
func (s *Subscription) Run(ctx context.Context, consumer Consumer) error {
	if err := s.open(consumer); err != nil {
		return err
	}
	defer s.Close()
	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-failed:
		return s.Err()
	}
}

// Failed returns a channel closed when the current client gave up
// reconnecting. Nil before the first Open.
func (s *Subscription) Failed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Subscription) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Connected:    s.connected,
		ConnectionID: s.connectionID,
		Err:          s.err,
		Exhausted:    s.exhausted,
		State:        wsclient.StateIdle,
	}
	client := s.owned
	s.mu.Unlock()
	if client != nil {
		snap.State = client.State()
	}
	return snap
}

// ConnectionID returns the last session identifier reported by the backend,
// empty when there is none.
func (s *Subscription) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

func (s *Subscription) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Err returns the last error reported by the client.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// binding delivers events of one client. Events of a client which is no
// longer owned are dropped.
type binding struct {
	s      *Subscription
	client *wsclient.Client
}

func (b *binding) OnOpen() {
	s := b.s
	s.mu.Lock()
	if s.owned != b.client {
		s.mu.Unlock()
		return
	}
	s.held = b.client
	s.connected = true
	s.mu.Unlock()

	s.logger.Debug().Msg("requesting connection details")
	if err := b.client.Send(frame.Handshake()); err != nil {
		s.logger.Error().Err(err).Msg("error sending handshake")
		s.mu.Lock()
		if s.owned == b.client {
			s.err = err
		}
		s.mu.Unlock()
	}
}

func (b *binding) OnMessage(f frame.Frame) {
	s := b.s
	s.mu.Lock()
	if s.owned != b.client {
		s.mu.Unlock()
		return
	}
	if id, ok := f.ConnectionID(); ok && id != s.connectionID {
		s.connectionID = id
		s.logger.Info().Str("connection_id", id).Msg("session established")
	}
	consumer := s.consumer
	s.mu.Unlock()
	if consumer != nil {
		consumer(f)
	}
}

func (b *binding) OnClose(_ wsclient.CloseEvent) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owned != b.client {
		return
	}
	s.connected = false
	s.connectionID = ""
	s.held = nil
}

func (b *binding) OnError(err error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owned != b.client {
		return
	}
	s.err = err
	if errors.Is(err, wsclient.ErrReconnectExhausted) && !s.exhausted {
		s.exhausted = true
		close(s.failed)
	}
}
