package subscription

import (
	"context"
	"errors"
	"sync"
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

type frameRecorder struct {
	mu     sync.Mutex
	frames []frame.Frame
}

func (r *frameRecorder) consume(f frame.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *frameRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) get(i int) frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[i]
}

type testCase struct {
	sub       *Subscription
	dialer    *wstest.Dialer
	scheduler *wstest.Scheduler
	recorder  *frameRecorder
}

func newTestCase(t *testing.T, maxRetries int, script ...error) *testCase {
	t.Helper()
	tc := &testCase{
		dialer:    wstest.NewDialer(script...),
		scheduler: wstest.NewScheduler(),
		recorder:  &frameRecorder{},
	}
	sub, err := New(Config{
		Client: wsclient.Config{URL: "ws://example.com/ws", MaxRetries: maxRetries},
	}, WithLogger(zerolog.Nop()), WithClientOptions(
		wsclient.WithDialer(tc.dialer),
		wsclient.WithScheduler(tc.scheduler),
	))
	require.NoError(t, err)
	tc.sub = sub
	t.Cleanup(sub.Close)
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

func (tc *testCase) waitPending(t *testing.T) *wstest.Timer {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(tc.scheduler.Pending()) == 1
	}, waitTimeout, time.Millisecond)
	return tc.scheduler.Pending()[0]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, waitTimeout, time.Millisecond)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, wsclient.ErrInvalidConfig)
}

func TestSubscriptionOpenOnce(t *testing.T) {
	tc := newTestCase(t, 0)
	require.True(t, tc.sub.Open(tc.recorder.consume))
	require.False(t, tc.sub.Open(tc.recorder.consume))
	tc.transport(t)
	waitFor(t, tc.sub.Connected)
	require.False(t, tc.sub.Open(tc.recorder.consume))
	require.Equal(t, 1, tc.dialer.Dials())
}

func TestSubscriptionHandshake(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	waitFor(t, func() bool { return len(tr.Written()) == 1 })
	require.JSONEq(t,
		`{"action":"getConnectionInfo","type":"connectionRequest","message":"Requesting connection details"}`,
		string(tr.Written()[0]))
}

func TestSubscriptionSessionID(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	waitFor(t, tc.sub.Connected)
	require.Empty(t, tc.sub.ConnectionID())

	tr.Deliver([]byte(`{"connectionId":"abc"}`))
	tr.Deliver([]byte(`{"chunk":"hello"}`))
	waitFor(t, func() bool { return tc.recorder.len() == 2 })
	require.Equal(t, "abc", tc.sub.ConnectionID())
	id, _ := tc.recorder.get(0).ConnectionID()
	require.Equal(t, "abc", id)
	chunk, _ := tc.recorder.get(1).Chunk()
	require.Equal(t, "hello", chunk)

	tr.Drop(websocket.CloseAbnormalClosure)
	waitFor(t, func() bool { return !tc.sub.Connected() })
	require.Empty(t, tc.sub.ConnectionID())
	require.Error(t, tc.sub.Err())
}

func TestSubscriptionMalformedFrameForwarded(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	tr.Deliver([]byte(`not json`))
	waitFor(t, func() bool { return tc.recorder.len() == 1 })
	require.True(t, tc.recorder.get(0).IsParseError())
	require.True(t, tc.sub.Connected())
}

func TestSubscriptionSend(t *testing.T) {
	tc := newTestCase(t, 0)
	require.NoError(t, tc.sub.Send(frame.NewMessage("ping", "")))

	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	waitFor(t, func() bool { return len(tr.Written()) == 1 })
	require.NoError(t, tc.sub.Send(frame.NewMessage("ping", "")))
	require.Len(t, tr.Written(), 2)

	tr.Drop(websocket.CloseAbnormalClosure)
	waitFor(t, func() bool { return !tc.sub.Connected() })
	require.NoError(t, tc.sub.Send(frame.NewMessage("ping", "")))
	require.Len(t, tr.Written(), 2)
}

func TestSubscriptionReconnectRebinds(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	tr.Deliver([]byte(`{"connectionId":"first"}`))
	waitFor(t, func() bool { return tc.sub.ConnectionID() == "first" })

	tr.Drop(websocket.CloseAbnormalClosure)
	timer := tc.waitPending(t)
	require.Equal(t, time.Second, timer.Delay)
	tc.scheduler.Advance(timer.Delay)

	tr = tc.transport(t)
	waitFor(t, tc.sub.Connected)
	waitFor(t, func() bool { return len(tr.Written()) == 1 })
	tr.Deliver([]byte(`{"connectionId":"second"}`))
	waitFor(t, func() bool { return tc.sub.ConnectionID() == "second" })
	require.NoError(t, tc.sub.Send(frame.NewMessage("ping", "")))
	require.Len(t, tr.Written(), 2)
}

func TestSubscriptionCloseCancelsReconnect(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tc.transport(t).Drop(websocket.CloseAbnormalClosure)
	tc.waitPending(t)

	tc.sub.Close()
	require.Empty(t, tc.scheduler.Pending())
	tc.scheduler.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, tc.dialer.Dials())

	snap := tc.sub.Snapshot()
	require.False(t, snap.Connected)
	require.Empty(t, snap.ConnectionID)
	require.Equal(t, wsclient.StateIdle, snap.State)
}

func TestSubscriptionCloseSuppressesFrames(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	tr := tc.transport(t)
	waitFor(t, tc.sub.Connected)
	tc.sub.Close()
	tc.sub.Close()
	require.True(t, tr.Closed())
	tr.Deliver([]byte(`{"chunk":"late"}`))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, tc.recorder.len())
}

func TestSubscriptionReopen(t *testing.T) {
	tc := newTestCase(t, 0)
	require.True(t, tc.sub.Open(tc.recorder.consume))
	tc.transport(t)
	tc.sub.Close()
	require.True(t, tc.sub.Open(tc.recorder.consume))
	tr := tc.transport(t)
	waitFor(t, tc.sub.Connected)
	tr.Deliver([]byte(`{"chunk":"x"}`))
	waitFor(t, func() bool { return tc.recorder.len() == 1 })
	require.Equal(t, 2, tc.dialer.Dials())
}

func TestSubscriptionExhausted(t *testing.T) {
	errDial := errors.New("refused")
	tc := newTestCase(t, 2, nil, errDial, errDial)
	tc.sub.Open(tc.recorder.consume)
	tc.transport(t).Drop(websocket.CloseAbnormalClosure)

	require.Equal(t, time.Second, tc.waitPending(t).Delay)
	tc.scheduler.Advance(time.Second)
	require.Equal(t, 2*time.Second, tc.waitPending(t).Delay)
	tc.scheduler.Advance(2 * time.Second)

	select {
	case <-tc.sub.Failed():
	case <-time.After(waitTimeout):
		require.Fail(t, "timeout waiting for failure")
	}
	snap := tc.sub.Snapshot()
	require.True(t, snap.Exhausted)
	require.False(t, snap.Connected)
	require.ErrorIs(t, snap.Err, wsclient.ErrReconnectExhausted)
	require.Equal(t, wsclient.StateClosed, snap.State)
	require.Empty(t, tc.scheduler.Pending())
	require.Equal(t, 3, tc.dialer.Dials())
}

func TestSubscriptionRunContextDone(t *testing.T) {
	tc := newTestCase(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tc.sub.Run(ctx, tc.recorder.consume)
	}()
	tr := tc.transport(t)
	waitFor(t, tc.sub.Connected)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		require.Fail(t, "timeout waiting for Run")
	}
	require.True(t, tr.Closed())
	require.True(t, tc.sub.Open(tc.recorder.consume))
}

func TestSubscriptionRunExhausted(t *testing.T) {
	errDial := errors.New("refused")
	tc := newTestCase(t, 1, errDial, errDial)
	done := make(chan error, 1)
	go func() {
		done <- tc.sub.Run(context.Background(), tc.recorder.consume)
	}()
	tc.scheduler.Advance(tc.waitPending(t).Delay)
	select {
	case err := <-done:
		require.ErrorIs(t, err, wsclient.ErrReconnectExhausted)
	case <-time.After(waitTimeout):
		require.Fail(t, "timeout waiting for Run")
	}
}

func TestSubscriptionRunAlreadyOpen(t *testing.T) {
	tc := newTestCase(t, 0)
	tc.sub.Open(tc.recorder.consume)
	err := tc.sub.Run(context.Background(), tc.recorder.consume)
	require.ErrorIs(t, err, ErrAlreadyOpen)
}
