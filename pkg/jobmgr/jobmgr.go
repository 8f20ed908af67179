// Package jobmgr runs named background jobs with cancellation. Starting a
// job under a name that is already running cancels the old run first, so a
// job keyed by a resource always works on the latest request.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//	jm.Start("commands:123", func(ctx context.Context) error {
//	    return syncCommands(ctx, "123")
//	})
//	defer jm.Shutdown()
package jobmgr

import (
	"context"
	"sync"
)

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:commands:123
//	error:commands:123:context canceled
//	done:commands:123
//	skipped:commands:123
type StatusReporter func(string)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, replaces and tracks jobs. It is safe for concurrent use.
type Manager struct {
	parent   context.Context
	reporter StatusReporter

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a Manager whose jobs end when parent is done.
// The reporter callback may be nil.
func NewManager(parent context.Context, reporter StatusReporter) *Manager {
	return &Manager{
		parent:   parent,
		reporter: reporter,
		jobs:     make(map[string]*job),
	}
}

// Start runs runner in its own goroutine under name. A running job with the
// same name is cancelled and waited for before the new one begins. Start
// reports false and runs nothing once the parent context is done or
// Shutdown has been called.
func (m *Manager) Start(name string, runner func(ctx context.Context) error) bool {
	m.mu.Lock()
	if m.closed || m.parent.Err() != nil {
		m.mu.Unlock()
		m.report("skipped:" + name)
		return false
	}
	ctx, cancel := context.WithCancel(m.parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	prev := m.jobs[name]
	m.jobs[name] = j
	// Add under mu so it never races with Shutdown's Wait.
	m.wg.Add(1)
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	go func() {
		defer m.wg.Done()
		defer close(j.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return true
}

// Shutdown stops accepting jobs, cancels the running ones and waits for
// them to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) report(s string) {
	if m.reporter != nil {
		m.reporter(s)
	}
}
