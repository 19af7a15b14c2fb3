// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"os/exec"
)

// Driver dispatches sandbox lifecycle operations to whichever backend
// the manager was constructed with. The manager itself knows nothing
// about containers, micro-VMs, or full VMs; it only knows a name, a
// set of resource caps, and whether the driver accepted or refused
// them.
type Driver interface {
	// Create asks the backend to bring up an isolated environment
	// sized to caps, identified by the already-sanitized name. It
	// returns the backend's opaque id for the environment, or an
	// error if the backend refuses or fails.
	Create(ctx context.Context, backend Backend, name string, caps ResourceCaps) (string, error)

	// Destroy asks the backend to stop and remove a previously
	// created environment. Destroy is idempotent: destroying an id
	// the backend no longer has any record of is not an error.
	Destroy(ctx context.Context, backend Backend, id string) error
}

// binaryFor maps each probed backend to the binary detectionOrder
// found it by. There is deliberately no entry for None: a manager
// with no detected backend never reaches the driver at all.
var binaryFor = map[Backend]string{
	Container: "docker",
	MicroVM:   "firecracker",
	FullVM:    "qemu-system-x86_64",
}

// ExecDriver dispatches to the binary detection found for the active
// backend. Container environments are brought up and torn down with
// `docker run`/`docker rm`; micro-VM and full-VM environments have no
// standardized single-binary lifecycle, so Create only confirms the
// runtime is still reachable and hands back name as the opaque id.
type ExecDriver struct{}

func (ExecDriver) Create(ctx context.Context, backend Backend, name string, caps ResourceCaps) (string, error) {
	binary, ok := binaryFor[backend]
	if !ok {
		return "", fmt.Errorf("sandbox: backend %s has no execution driver", backend)
	}

	switch backend {
	case Container:
		args := []string{
			"run", "-d", "--name", name,
			"--cpu-shares", fmt.Sprintf("%d", caps.CPUShares),
			"--memory", fmt.Sprintf("%dm", caps.MemoryMiB),
			"alpine", "sleep", "infinity",
		}
		if out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput(); err != nil {
			return "", fmt.Errorf("sandbox: %s run failed: %w (%s)", binary, err, out)
		}
		return name, nil
	default:
		// firecracker/qemu provisioning is image- and network-specific
		// and out of scope here; confirm the runtime is still on PATH
		// and reachable before accepting the allocation.
		if err := exec.CommandContext(ctx, binary, "--version").Run(); err != nil {
			return "", fmt.Errorf("sandbox: %s unreachable: %w", binary, err)
		}
		return name, nil
	}
}

func (ExecDriver) Destroy(ctx context.Context, backend Backend, id string) error {
	binary, ok := binaryFor[backend]
	if !ok {
		return nil
	}
	if backend != Container {
		return nil
	}
	// docker rm -f is itself idempotent (errors on an unknown container
	// are swallowed rather than surfaced) so Destroy stays idempotent.
	_ = exec.CommandContext(ctx, binary, "rm", "-f", id).Run()
	return nil
}
