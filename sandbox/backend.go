// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "os/exec"

// Backend identifies the isolation technology a sandbox runs under.
type Backend int

const (
	// None means no isolation backend is available; a Manager bound
	// to None refuses every allocation with ErrNoBackend.
	None Backend = iota
	Container
	MicroVM
	FullVM
)

func (b Backend) String() string {
	switch b {
	case Container:
		return "container"
	case MicroVM:
		return "microvm"
	case FullVM:
		return "fullvm"
	default:
		return "none"
	}
}

// probe is one candidate backend: the binary that must be on PATH for
// it to be usable, and the Backend it activates.
type probe struct {
	binary  string
	backend Backend
}

// detectionOrder is the priority order backends are probed in:
// container runtimes are cheapest to start and most commonly
// available, so they are tried first; a full VM is the most
// expensive and is the last resort before falling back to none.
var detectionOrder = []probe{
	{binary: "docker", backend: Container},
	{binary: "firecracker", backend: MicroVM},
	{binary: "qemu-system-x86_64", backend: FullVM},
}

// DetectBackend probes the host for an isolation backend, trying each
// candidate's binary on PATH in priority order and returning the first
// one found. override, if non-empty, skips probing and forces
// the named backend ("container", "microvm", "fullvm", or "none").
func DetectBackend(override string) Backend {
	switch override {
	case "container":
		return Container
	case "microvm":
		return MicroVM
	case "fullvm":
		return FullVM
	case "none":
		return None
	}

	for _, candidate := range detectionOrder {
		if _, err := exec.LookPath(candidate.binary); err == nil {
			return candidate.backend
		}
	}
	return None
}
