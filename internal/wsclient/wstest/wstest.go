// Package wstest provides in-memory Dialer, Transport and Scheduler
// implementations to drive wsclient in tests without network and real time.
package wstest

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/promptstream/promptstream/internal/wsclient"

	"github.com/gorilla/websocket"
)

// Transport is an in-memory wsclient.Transport.
type Transport struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	incoming chan []byte
	dropCh   chan error
	closeCh  chan struct{}
	writeErr error
}

// NewTransport creates Transport.
func NewTransport() *Transport {
	return &Transport{
		incoming: make(chan []byte, 64),
		dropCh:   make(chan error, 1),
		closeCh:  make(chan struct{}),
	}
}

// Deliver queues an inbound frame.
func (t *Transport) Deliver(data []byte) {
	t.incoming <- data
}

// Drop makes ReadMessage fail with a close error carrying code.
func (t *Transport) Drop(code int) {
	select {
	case t.dropCh <- &websocket.CloseError{Code: code}:
	default:
	}
}

// FailWrites makes subsequent writes return err.
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns copies of frames written so far.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := make([][]byte, len(t.written))
	copy(res, t.written)
	return res
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) ReadMessage() ([]byte, error) {
	select {
	case data := <-t.incoming:
		return data, nil
	case err := <-t.dropCh:
		return nil, err
	case <-t.closeCh:
		return nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (t *Transport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return websocket.ErrCloseSent
	}
	if t.writeErr != nil {
		return t.writeErr
	}
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	t.written = append(t.written, dataCopy)
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.closeCh)
	return nil
}

// Dialer is a scripted wsclient.Dialer. Each Dial consumes the next scripted
// error, nil entries and dials past the script succeed.
type Dialer struct {
	mu         sync.Mutex
	script     []error
	dials      int
	transports chan *Transport
}

// NewDialer creates Dialer with scripted dial results.
func NewDialer(script ...error) *Dialer {
	return &Dialer{
		script:     script,
		transports: make(chan *Transport, 64),
	}
}

// Dials returns number of Dial calls.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Transports returns channel of successfully dialed transports in order.
func (d *Dialer) Transports() <-chan *Transport {
	return d.transports
}

func (d *Dialer) Dial(ctx context.Context, _ string, _ http.Header) (wsclient.Transport, error) {
	d.mu.Lock()
	n := d.dials
	d.dials++
	var err error
	if n < len(d.script) {
		err = d.script[n]
	}
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	t := NewTransport()
	d.transports <- t
	return t, nil
}

// Timer is a task registered in Scheduler.
type Timer struct {
	s       *Scheduler
	Delay   time.Duration
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *Timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Scheduler is a manual clock. Tasks run only when time is advanced, never
// inside AfterFunc.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*Timer
}

// NewScheduler creates Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) wsclient.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{s: s, Delay: d, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns timers neither stopped nor fired, earliest first.
func (s *Scheduler) Pending() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*Timer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			res = append(res, t)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].at < res[j].at })
	return res
}

// Advance moves the clock forward by d and runs due tasks in order.
func (s *Scheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	now := s.now
	s.mu.Unlock()

	fired := 0
	for _, t := range s.Pending() {
		if t.at > now {
			break
		}
		s.mu.Lock()
		if t.stopped || t.fired {
			s.mu.Unlock()
			continue
		}
		t.fired = true
		s.mu.Unlock()
		t.f()
		fired++
	}
	return fired
}
