// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"time"

	"github.com/bureau-foundation/sentry/identity"
	"github.com/bureau-foundation/sentry/sandbox"
)

// ConnectionState is where a SecureConnection sits in its lifecycle.
type ConnectionState int

const (
	Pending ConnectionState = iota
	Active
	Terminating
	Terminated
)

func (s ConnectionState) String() string {
	switch s {
	case Active:
		return "active"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return "pending"
	}
}

// SecureConnection is the admission controller's record of one
// admitted peer connection.
type SecureConnection struct {
	PeerID        string
	RemoteAddress string
	Identity      identity.Identity
	SecurityLevel identity.SecurityLevel
	Resource      string
	Sandbox       *sandbox.Handle
	State         ConnectionState
	EstablishedAt time.Time
	LastVerified  time.Time
}
