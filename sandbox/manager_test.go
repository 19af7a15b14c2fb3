// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/sentry/identity"
)

// fakeDriver is a hermetic stand-in for ExecDriver: it never shells
// out to a real container/VM runtime. failCreate, if set, is returned
// by every Create call, letting tests exercise the rollback path.
type fakeDriver struct {
	failCreate error
	destroyed  []string
}

func (f *fakeDriver) Create(ctx context.Context, backend Backend, name string, caps ResourceCaps) (string, error) {
	if f.failCreate != nil {
		return "", f.failCreate
	}
	return name, nil
}

func (f *fakeDriver) Destroy(ctx context.Context, backend Backend, id string) error {
	f.destroyed = append(f.destroyed, id)
	return nil
}

func newTestManager(backend Backend, capacity int) *Manager {
	return NewManagerWithDriver(backend, capacity, &fakeDriver{})
}

func TestAllocateAssignsCapsBySecurityLevel(t *testing.T) {
	manager := newTestManager(Container, 10)

	handle, err := manager.Allocate("peer-alice", identity.Privileged)
	if err != nil {
		t.Fatalf("Allocate() = %v, want nil", err)
	}
	if handle.Caps.CPUShares != 512 || handle.Caps.MemoryMiB != 512 {
		t.Fatalf("Allocate() caps = %+v, want 512/512", handle.Caps)
	}

	critical, err := manager.Allocate("peer-bob", identity.Critical)
	if err != nil {
		t.Fatalf("Allocate() = %v, want nil", err)
	}
	if critical.Caps.CPUShares != 1024 || critical.Caps.MemoryMiB != 1024 {
		t.Fatalf("Allocate() caps = %+v, want 1024/1024", critical.Caps)
	}
}

func TestAllocateRejectsInvalidName(t *testing.T) {
	manager := newTestManager(Container, 10)

	if _, err := manager.Allocate("has a space", identity.Privileged); err == nil {
		t.Fatal("Allocate() = nil, want error for invalid name")
	}
}

func TestAllocateEnforcesCapacity(t *testing.T) {
	manager := newTestManager(Container, 1)

	if _, err := manager.Allocate("first", identity.Privileged); err != nil {
		t.Fatalf("Allocate() = %v, want nil", err)
	}
	if _, err := manager.Allocate("second", identity.Privileged); err == nil {
		t.Fatal("Allocate() = nil, want ErrUnavailable at capacity")
	}
}

func TestReleaseFreesCapacity(t *testing.T) {
	manager := newTestManager(Container, 1)

	if _, err := manager.Allocate("first", identity.Privileged); err != nil {
		t.Fatalf("Allocate() = %v, want nil", err)
	}
	if err := manager.Release("first"); err != nil {
		t.Fatalf("Release() = %v, want nil", err)
	}
	if _, err := manager.Allocate("second", identity.Privileged); err != nil {
		t.Fatalf("Allocate() after release = %v, want nil", err)
	}
}

func TestReleaseUnknownSandboxErrors(t *testing.T) {
	manager := newTestManager(Container, 1)

	if err := manager.Release("nonexistent"); err == nil {
		t.Fatal("Release() = nil, want ErrUnknownSandbox")
	}
}

func TestAllocateRefusesWhenNoBackend(t *testing.T) {
	manager := newTestManager(None, 10)

	if _, err := manager.Allocate("peer-alice", identity.Privileged); err == nil {
		t.Fatal("Allocate() = nil, want ErrNoBackend")
	} else if _, ok := err.(ErrNoBackend); !ok {
		t.Fatalf("Allocate() error = %T, want ErrNoBackend", err)
	}

	// A None backend refuses every level, not just Privileged/Critical:
	// there is no isolation mechanism to dispatch to regardless of caps.
	if _, err := manager.Allocate("peer-bob", identity.Verified); err == nil {
		t.Fatal("Allocate() at Verified level = nil, want ErrNoBackend")
	}
	if manager.Active() != 0 {
		t.Fatalf("Active() = %d, want 0 after refused allocations", manager.Active())
	}
}

func TestAllocateRollsBackOnBackendFailure(t *testing.T) {
	driver := &fakeDriver{failCreate: errors.New("backend refused")}
	manager := NewManagerWithDriver(Container, 10, driver)

	if _, err := manager.Allocate("peer-alice", identity.Privileged); err == nil {
		t.Fatal("Allocate() = nil, want error from backend Create failure")
	}
	if manager.Active() != 0 {
		t.Fatalf("Active() = %d, want 0 after a rolled-back allocation", manager.Active())
	}
	// The name must be free again for a subsequent attempt.
	driver.failCreate = nil
	if _, err := manager.Allocate("peer-alice", identity.Privileged); err != nil {
		t.Fatalf("Allocate() after rollback = %v, want nil", err)
	}
}

func TestReleaseDispatchesToBackend(t *testing.T) {
	driver := &fakeDriver{}
	manager := NewManagerWithDriver(Container, 10, driver)

	if _, err := manager.Allocate("peer-alice", identity.Privileged); err != nil {
		t.Fatalf("Allocate() = %v, want nil", err)
	}
	if err := manager.Release("peer-alice"); err != nil {
		t.Fatalf("Release() = %v, want nil", err)
	}
	if len(driver.destroyed) != 1 || driver.destroyed[0] != "peer-alice" {
		t.Fatalf("driver.destroyed = %v, want [peer-alice]", driver.destroyed)
	}
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{name: "valid-name_123", wantErr: false},
		{name: "", wantErr: true},
		{name: "has a space", wantErr: true},
		{name: "has/slash", wantErr: true},
	}

	for _, c := range cases {
		err := ValidateName(c.name)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestDetectBackendOverride(t *testing.T) {
	if got := DetectBackend("microvm"); got != MicroVM {
		t.Fatalf("DetectBackend(microvm) = %v, want MicroVM", got)
	}
	if got := DetectBackend("none"); got != None {
		t.Fatalf("DetectBackend(none) = %v, want None", got)
	}
}
