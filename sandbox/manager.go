// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/bureau-foundation/sentry/identity"
)

// ErrUnavailable means the manager is at capacity.
type ErrUnavailable struct {
	Capacity int
}

func (e ErrUnavailable) Error() string {
	return fmt.Sprintf("sandbox: at capacity (%d)", e.Capacity)
}

// ErrNoBackend means the manager has no usable isolation backend
// (detection found neither a container, micro-VM, nor full-VM
// runtime) and refuses every allocation.
type ErrNoBackend struct{}

func (ErrNoBackend) Error() string {
	return "sandbox: no backend detected, cannot allocate sandboxes"
}

// ErrUnknownSandbox means a release was requested for a name the
// manager has no record of.
type ErrUnknownSandbox struct {
	Name string
}

func (e ErrUnknownSandbox) Error() string {
	return fmt.Sprintf("sandbox: unknown sandbox %q", e.Name)
}

// Handle is a live sandbox allocation.
type Handle struct {
	Name    string
	Backend Backend
	Caps    ResourceCaps
	Level   identity.SecurityLevel
}

// Manager allocates and releases sandbox handles, enforcing a total
// capacity and dispatching lifecycle calls to the backend detected at
// construction time.
type Manager struct {
	mu       sync.Mutex
	backend  Backend
	capacity int
	driver   Driver
	active   map[string]Handle
}

// NewManager constructs a manager bound to a detected backend and a
// maximum number of concurrently active sandboxes. It dispatches to
// ExecDriver, the production driver that shells out to the binary the
// backend was detected through.
func NewManager(backend Backend, capacity int) *Manager {
	return NewManagerWithDriver(backend, capacity, ExecDriver{})
}

// NewManagerWithDriver constructs a manager with an explicit driver,
// for tests that must not shell out to a real container/VM runtime.
func NewManagerWithDriver(backend Backend, capacity int, driver Driver) *Manager {
	return &Manager{
		backend:  backend,
		capacity: capacity,
		driver:   driver,
		active:   make(map[string]Handle),
	}
}

// Backend reports the isolation backend this manager allocates under.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Allocate reserves a sandbox under the given name for a security
// level, sized according to that level's resource caps, then dispatches
// to the configured backend to actually bring the environment up.
// Allocate fails if the name is invalid, already active, the manager
// is at capacity, no backend was detected, or the backend itself
// refuses or fails the create call — in which case the tentative
// reservation is rolled back.
func (m *Manager) Allocate(name string, level identity.SecurityLevel) (Handle, error) {
	if err := ValidateName(name); err != nil {
		return Handle{}, err
	}
	if m.backend == None {
		return Handle{}, ErrNoBackend{}
	}

	handle := Handle{
		Name:    name,
		Backend: m.backend,
		Caps:    CapsFor(level),
		Level:   level,
	}

	m.mu.Lock()
	if _, exists := m.active[name]; exists {
		m.mu.Unlock()
		return Handle{}, ErrInvalidName{Name: name, Reason: "already active"}
	}
	if len(m.active) >= m.capacity {
		m.mu.Unlock()
		return Handle{}, ErrUnavailable{Capacity: m.capacity}
	}
	m.active[name] = handle
	m.mu.Unlock()

	if _, err := m.driver.Create(context.Background(), m.backend, name, handle.Caps); err != nil {
		m.mu.Lock()
		delete(m.active, name)
		m.mu.Unlock()
		return Handle{}, fmt.Errorf("sandbox: backend create failed: %w", err)
	}

	return handle, nil
}

// Release frees a previously allocated sandbox, asking the backend to
// stop and remove it. Releasing a name that is not currently active is
// an error, not a silent no-op — callers that release twice have a
// bug worth surfacing. The active-set entry is removed before the
// backend call so that release remains effective even if the backend
// call itself fails.
func (m *Manager) Release(name string) error {
	m.mu.Lock()
	handle, exists := m.active[name]
	if !exists {
		m.mu.Unlock()
		return ErrUnknownSandbox{Name: name}
	}
	delete(m.active, name)
	m.mu.Unlock()

	if err := m.driver.Destroy(context.Background(), m.backend, handle.Name); err != nil {
		return fmt.Errorf("sandbox: backend destroy failed: %w", err)
	}
	return nil
}

// Active reports the number of currently allocated sandboxes.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// HasCapacity reports whether at least one more sandbox can be
// allocated right now.
func (m *Manager) HasCapacity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active) < m.capacity
}
