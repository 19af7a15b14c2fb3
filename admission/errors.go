// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import "fmt"

// ErrDenied wraps the stage that rejected a request and the
// underlying reason, so callers can distinguish "denied by policy"
// from "denied by rate limiter" without string matching.
type ErrDenied struct {
	Stage  string
	Reason error
}

func (e ErrDenied) Error() string {
	return fmt.Sprintf("admission: denied at %s: %v", e.Stage, e.Reason)
}

func (e ErrDenied) Unwrap() error {
	return e.Reason
}

// ErrPeerCapReached means the controller already has as many active
// connections as it is configured to hold.
type ErrPeerCapReached struct {
	MaxPeers int
}

func (e ErrPeerCapReached) Error() string {
	return fmt.Sprintf("admission: peer cap reached (%d)", e.MaxPeers)
}

// ErrMessageTooLarge means a message was refused at admission,
// before ever consulting the rate limiter, because it exceeded the
// configured size ceiling.
type ErrMessageTooLarge struct {
	Size    int
	MaxSize int
}

func (e ErrMessageTooLarge) Error() string {
	return fmt.Sprintf("admission: message of %d bytes exceeds the %d byte limit", e.Size, e.MaxSize)
}
