package wsclient

import "time"

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs deferred reconnect attempts.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
