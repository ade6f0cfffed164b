package wsclient_test

import (
	"errors"
	"testing"
	"time"

	"github.com/promptstream/promptstream/internal/frame"
	"github.com/promptstream/promptstream/internal/wsclient"
	"github.com/promptstream/promptstream/internal/wsclient/wstest"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

type event struct {
	kind  string
	frame frame.Frame
	close wsclient.CloseEvent
	err   error
}

type recordingListener struct {
	events chan event
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan event, 128)}
}

func (l *recordingListener) OnOpen() {
	l.events <- event{kind: "open"}
}

func (l *recordingListener) OnMessage(f frame.Frame) {
	l.events <- event{kind: "message", frame: f}
}

func (l *recordingListener) OnClose(e wsclient.CloseEvent) {
	l.events <- event{kind: "close", close: e}
}

func (l *recordingListener) OnError(err error) {
	l.events <- event{kind: "error", err: err}
}

func (l *recordingListener) expect(t *testing.T, kind string) event {
	t.Helper()
	select {
	case e := <-l.events:
		require.Equal(t, kind, e.kind, "unexpected event: %+v", e)
		return e
	case <-time.After(waitTimeout):
		require.Fail(t, "timeout waiting for event", kind)
	}
	return event{}
}

func (l *recordingListener) expectNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-l.events:
		require.Fail(t, "unexpected event", "%+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

type testCase struct {
	client    *wsclient.Client
	listener  *recordingListener
	dialer    *wstest.Dialer
	scheduler *wstest.Scheduler
}

func newTestCase(t *testing.T, cfg wsclient.Config, script ...error) *testCase {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "ws://example.com/ws"
	}
	tc := &testCase{
		listener:  newRecordingListener(),
		dialer:    wstest.NewDialer(script...),
		scheduler: wstest.NewScheduler(),
	}
	c, err := wsclient.New(cfg, tc.listener,
		wsclient.WithDialer(tc.dialer),
		wsclient.WithScheduler(tc.scheduler),
		wsclient.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	tc.client = c
	t.Cleanup(c.Disconnect)
	return tc
}

func (tc *testCase) transport(t *testing.T) *wstest.Transport {
	t.Helper()
	select {
	case tr := <-tc.dialer.Transports():
		return tr
	case <-time.After(waitTimeout):
		require.Fail(t, "timeout waiting for transport")
	}
	return nil
}

func (tc *testCase) pendingDelay(t *testing.T) time.Duration {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(tc.scheduler.Pending()) == 1
	}, waitTimeout, time.Millisecond)
	return tc.scheduler.Pending()[0].Delay
}

var errDial = errors.New("connection refused")

func TestClientInitialState(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	status := tc.client.Status()
	require.Equal(t, wsclient.StateIdle, status.State)
	require.Equal(t, wsclient.DefaultMaxRetries, status.MaxRetries)
	require.Equal(t, 0, tc.dialer.Dials())
}

func TestClientConnectOpen(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	require.Equal(t, wsclient.StateOpen, tc.client.State())
	require.Equal(t, 1, tc.dialer.Dials())
}

func TestClientConnectIdempotent(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tc.client.Connect()
	tc.listener.expectNone(t)
	require.Equal(t, 1, tc.dialer.Dials())
}

func TestClientSendNotOpen(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	err := tc.client.Send(frame.Handshake())
	require.ErrorIs(t, err, wsclient.ErrNotOpen)

	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)
	tr.Drop(websocket.CloseAbnormalClosure)
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")

	err = tc.client.Send(frame.Handshake())
	require.ErrorIs(t, err, wsclient.ErrNotOpen)
	require.Empty(t, tr.Written())
}

func TestClientSend(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	require.NoError(t, tc.client.Send(frame.NewMessage("ping", "").With("n", 1)))
	written := tr.Written()
	require.Len(t, written, 1)
	require.JSONEq(t, `{"action":"ping","n":1}`, string(written[0]))

	err := tc.client.Send(frame.NewMessage("bad", "").With("ch", make(chan int)))
	require.Error(t, err)
	require.Len(t, tr.Written(), 1)

	tr.FailWrites(errors.New("broken pipe"))
	err = tc.client.Send(frame.NewMessage("ping", ""))
	var tErr *wsclient.TransportError
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, "write", tErr.Op)
}

func TestClientSendRateLimit(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{SendRateLimit: 0.001, SendRateBurst: 1})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	require.NoError(t, tc.client.Send(frame.NewMessage("a", "")))
	require.ErrorIs(t, tc.client.Send(frame.NewMessage("b", "")), wsclient.ErrRateLimited)
}

func TestClientMessages(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	tr.Deliver([]byte(`{"connectionId":"id1"}`))
	tr.Deliver([]byte(`{"chunk":"a"}`))
	e := tc.listener.expect(t, "message")
	id, _ := e.frame.ConnectionID()
	require.Equal(t, "id1", id)
	e = tc.listener.expect(t, "message")
	chunk, _ := e.frame.Chunk()
	require.Equal(t, "a", chunk)
}

func TestClientMalformedFrame(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	tr.Deliver([]byte(`{"chunk":`))
	e := tc.listener.expect(t, "message")
	msg, ok := e.frame.Error()
	require.True(t, ok)
	require.Equal(t, frame.ParseErrorMessage, msg)
	tc.listener.expectNone(t)
	require.Equal(t, wsclient.StateOpen, tc.client.State())

	tr.Deliver([]byte(`{"done":true}`))
	e = tc.listener.expect(t, "message")
	require.True(t, e.frame.Done())
}

func TestClientReconnectAfterDrop(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	tr.Drop(websocket.CloseAbnormalClosure)
	e := tc.listener.expect(t, "error")
	var tErr *wsclient.TransportError
	require.ErrorAs(t, e.err, &tErr)
	e = tc.listener.expect(t, "close")
	require.Equal(t, websocket.CloseAbnormalClosure, e.close.Code)
	require.False(t, e.close.Clean())

	require.Equal(t, time.Second, tc.pendingDelay(t))
	status := tc.client.Status()
	require.Equal(t, wsclient.StateClosed, status.State)
	require.Equal(t, 1, status.Retries)

	require.Equal(t, 1, tc.scheduler.Advance(time.Second))
	tc.listener.expect(t, "open")
	require.Equal(t, 2, tc.dialer.Dials())
	status = tc.client.Status()
	require.Equal(t, wsclient.StateOpen, status.State)
	require.Equal(t, 0, status.Retries)
}

func TestClientReconnectAfterCleanClose(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	tr.Drop(websocket.CloseNormalClosure)
	e := tc.listener.expect(t, "close")
	require.True(t, e.close.Clean())
	require.Nil(t, e.close.Err)
	require.Equal(t, time.Second, tc.pendingDelay(t))
}

func TestClientDropsBelowBudgetRecover(t *testing.T) {
	const maxRetries = 5
	for drops := 1; drops < maxRetries; drops++ {
		script := []error{nil}
		for i := 0; i < drops-1; i++ {
			script = append(script, errDial)
		}
		tc := newTestCase(t, wsclient.Config{MaxRetries: maxRetries}, script...)
		tc.client.Connect()
		tc.listener.expect(t, "open")
		tc.transport(t).Drop(websocket.CloseAbnormalClosure)
		tc.listener.expect(t, "error")
		tc.listener.expect(t, "close")

		for i := 1; i < drops; i++ {
			tc.scheduler.Advance(tc.pendingDelay(t))
			tc.listener.expect(t, "error")
			tc.listener.expect(t, "close")
		}
		require.Equal(t, drops, tc.client.Status().Retries)
		tc.scheduler.Advance(tc.pendingDelay(t))
		tc.listener.expect(t, "open")
		require.Equal(t, 0, tc.client.Status().Retries)
		require.False(t, tc.client.Status().Exhausted)
	}
}

func TestClientBackoffDelays(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{}, nil, errDial, errDial, errDial, errDial, errDial)
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tc.transport(t).Drop(websocket.CloseAbnormalClosure)
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")

	expected := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	for i, delay := range expected {
		require.Equal(t, delay, tc.pendingDelay(t), "attempt %d", i+1)
		tc.scheduler.Advance(delay)
		tc.listener.expect(t, "error")
		tc.listener.expect(t, "close")
	}
	e := tc.listener.expect(t, "error")
	require.ErrorIs(t, e.err, wsclient.ErrReconnectExhausted)
	require.Empty(t, tc.scheduler.Pending())
	require.Equal(t, 6, tc.dialer.Dials())
}

// Open, then three unexpected closes with maxRetries=2: two reconnect attempts
// after 1s and 2s, then terminal closed state.
func TestClientRetryBudgetScenario(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{MaxRetries: 2}, nil, errDial, errDial)
	tc.client.Connect()
	tc.listener.expect(t, "open")

	tc.transport(t).Drop(websocket.CloseAbnormalClosure)
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	require.Equal(t, 1000*time.Millisecond, tc.pendingDelay(t))
	require.Equal(t, 0, tc.scheduler.Advance(999*time.Millisecond))
	require.Equal(t, 1, tc.dialer.Dials())
	require.Equal(t, 1, tc.scheduler.Advance(time.Millisecond))

	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	require.Equal(t, 2, tc.dialer.Dials())
	require.Equal(t, 2000*time.Millisecond, tc.pendingDelay(t))
	require.Equal(t, 1, tc.scheduler.Advance(2000*time.Millisecond))

	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	e := tc.listener.expect(t, "error")
	require.ErrorIs(t, e.err, wsclient.ErrReconnectExhausted)

	status := tc.client.Status()
	require.Equal(t, wsclient.StateClosed, status.State)
	require.True(t, status.Exhausted)
	require.Empty(t, tc.scheduler.Pending())
	tc.scheduler.Advance(time.Hour)
	tc.listener.expectNone(t)
	require.Equal(t, 3, tc.dialer.Dials())
}

func TestClientConnectAfterExhausted(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{MaxRetries: 1}, nil, errDial)
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tc.transport(t).Drop(websocket.CloseAbnormalClosure)
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	tc.scheduler.Advance(tc.pendingDelay(t))
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	e := tc.listener.expect(t, "error")
	require.ErrorIs(t, e.err, wsclient.ErrReconnectExhausted)

	tc.client.Connect()
	require.False(t, tc.client.Status().Exhausted)
	tc.listener.expect(t, "open")
	require.Equal(t, 0, tc.client.Status().Retries)
}

func TestClientDisconnectCancelsReconnect(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tc.transport(t).Drop(websocket.CloseAbnormalClosure)
	tc.listener.expect(t, "error")
	tc.listener.expect(t, "close")
	tc.pendingDelay(t)

	tc.client.Disconnect()
	require.Empty(t, tc.scheduler.Pending())
	tc.scheduler.Advance(time.Minute)
	tc.listener.expectNone(t)
	require.Equal(t, 1, tc.dialer.Dials())
	require.Equal(t, wsclient.StateClosed, tc.client.State())
}

func TestClientDisconnectSuppressesEvents(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tr := tc.transport(t)

	tc.client.Disconnect()
	require.Equal(t, wsclient.StateClosed, tc.client.State())
	require.True(t, tr.Closed())
	tc.listener.expectNone(t)
	require.Empty(t, tc.scheduler.Pending())
	require.ErrorIs(t, tc.client.Send(frame.Handshake()), wsclient.ErrNotOpen)
}

func TestClientDisconnectThenConnect(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Connect()
	tc.listener.expect(t, "open")
	tc.client.Disconnect()
	tc.client.Connect()
	tc.listener.expect(t, "open")
	require.Equal(t, 2, tc.dialer.Dials())
	require.Equal(t, wsclient.StateOpen, tc.client.State())
}

func TestClientDisconnectIdle(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{})
	tc.client.Disconnect()
	require.Equal(t, wsclient.StateIdle, tc.client.State())
}

func TestClientDialFailure(t *testing.T) {
	tc := newTestCase(t, wsclient.Config{}, errDial)
	tc.client.Connect()
	e := tc.listener.expect(t, "error")
	require.ErrorIs(t, e.err, errDial)
	var tErr *wsclient.TransportError
	require.ErrorAs(t, e.err, &tErr)
	require.Equal(t, "dial", tErr.Op)
	e = tc.listener.expect(t, "close")
	require.Equal(t, websocket.CloseAbnormalClosure, e.close.Code)
	require.Equal(t, time.Second, tc.pendingDelay(t))
}

func TestClientInvalidConfig(t *testing.T) {
	testCases := []wsclient.Config{
		{},
		{URL: "http://example.com"},
		{URL: "ws://"},
		{URL: "ws://example.com", MaxRetries: -1},
		{URL: "ws://example.com", Backoff: wsclient.Backoff{BaseDelay: time.Second, MaxDelay: time.Millisecond}},
		{URL: "ws://example.com", SendRateLimit: -1},
	}
	for _, cfg := range testCases {
		_, err := wsclient.New(cfg, nil)
		require.ErrorIs(t, err, wsclient.ErrInvalidConfig, cfg.URL)
	}
}

func TestListenerFuncs(t *testing.T) {
	var opened bool
	l := wsclient.ListenerFuncs{Open: func() { opened = true }}
	l.OnOpen()
	l.OnMessage(frame.Frame{})
	l.OnClose(wsclient.CloseEvent{})
	l.OnError(errDial)
	require.True(t, opened)
}
