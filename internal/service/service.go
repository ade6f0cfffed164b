// Package service runs long-lived components together and stops all of them
// when one fails.
package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

type Service interface {
	Run(ctx context.Context) error
}

// Func adapts a function to Service.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}

// Manager manages a collection of services.
type Manager struct {
	mu       sync.Mutex
	services []Service
	group    *errgroup.Group
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds services. Services registered after Run are not started.
func (sm *Manager) Register(s ...Service) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.services = append(sm.services, s...)
}

// Run starts all registered services concurrently. The context passed to
// services is cancelled when ctx is done or any service returns an error.
func (sm *Manager) Run(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if len(sm.services) == 0 {
		return
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for _, s := range sm.services {
		s := s // per-iteration copy; go directive is 1.21 (pre-1.22 loopvar semantics)
		group.Go(func() error {
			return s.Run(groupCtx)
		})
	}
	sm.group = group
}

// Wait blocks until all services returned and reports the first error.
func (sm *Manager) Wait() error {
	sm.mu.Lock()
	group := sm.group
	sm.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}
