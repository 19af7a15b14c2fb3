// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a check finds no token available.
type ErrRateLimited struct {
	Key  string
	Kind string
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("ratelimit: %s rate exceeded for %q", e.Kind, e.Key)
}

// Limiter tracks two independent groups of token buckets: one keyed
// by remote address for connection attempts, one keyed by peer-id for
// messages on an established connection.
type Limiter struct {
	mu sync.Mutex

	connectionsPerMinute int
	messagesPerSecond    int

	connectionBuckets map[string]*rate.Limiter
	messageBuckets    map[string]*rate.Limiter
}

// New constructs a limiter with the given per-minute connection quota
// and per-second message quota. Both must be positive.
func New(connectionsPerMinute, messagesPerSecond int) *Limiter {
	return &Limiter{
		connectionsPerMinute: connectionsPerMinute,
		messagesPerSecond:    messagesPerSecond,
		connectionBuckets:    make(map[string]*rate.Limiter),
		messageBuckets:       make(map[string]*rate.Limiter),
	}
}

// CheckConnection consumes one token from the remote address's
// connection bucket, creating the bucket on first use. It reports
// ErrRateLimited if no token is currently available.
func (l *Limiter) CheckConnection(remoteAddress string) error {
	l.mu.Lock()
	bucket, ok := l.connectionBuckets[remoteAddress]
	if !ok {
		// connectionsPerMinute tokens per minute, burst equal to the
		// per-minute quota so a quiet address can open its full quota
		// in a single burst rather than being throttled to one every
		// few seconds.
		perSecond := rate.Limit(float64(l.connectionsPerMinute) / 60.0)
		bucket = rate.NewLimiter(perSecond, l.connectionsPerMinute)
		l.connectionBuckets[remoteAddress] = bucket
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		return ErrRateLimited{Key: remoteAddress, Kind: "connection"}
	}
	return nil
}

// CheckMessage consumes one token from the peer's message bucket,
// creating the bucket on first use.
func (l *Limiter) CheckMessage(peerID string) error {
	l.mu.Lock()
	bucket, ok := l.messageBuckets[peerID]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(l.messagesPerSecond), l.messagesPerSecond)
		l.messageBuckets[peerID] = bucket
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		return ErrRateLimited{Key: peerID, Kind: "message"}
	}
	return nil
}

// ReleasePeer removes a peer's message bucket, typically called on
// disconnect so memory does not accumulate across the lifetime of the
// daemon.
func (l *Limiter) ReleasePeer(peerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.messageBuckets, peerID)
}

// ConnectionBucketCount reports the number of distinct remote
// addresses currently tracked, for diagnostics.
func (l *Limiter) ConnectionBucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.connectionBuckets)
}
