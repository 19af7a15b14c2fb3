// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/sentry/lib/clock"
	"github.com/bureau-foundation/sentry/lib/secret"
)

const (
	keySize          = 32
	nonceSize        = 12
	logFileName      = "audit.log"
	keyFileName      = "audit.key"
	defaultRotate    = 100 * 1024 * 1024
	defaultTailCache = 1000
	defaultQueue     = 256
)

// Options configures a [Log] beyond its directory.
type Options struct {
	// RotateBytes is the file size at which the active segment is
	// rotated to a timestamped archive. Zero uses the default (100 MiB).
	RotateBytes int64

	// TailCacheEvents bounds the in-memory tail. Zero uses the default
	// (1000).
	TailCacheEvents int

	// AppendQueueDepth bounds the serializing worker's inbound queue.
	// Zero uses the default (256).
	AppendQueueDepth int

	// EnqueueTimeout bounds how long Append waits for room in the
	// worker's queue before the log degrades to read-only. Zero uses
	// the default (5s).
	EnqueueTimeout time.Duration
}

// Stats is a snapshot of [Log]'s current state.
type Stats struct {
	SizeBytes  int64
	TailEvents int
	Rotations  int
	Degraded   bool
}

type appendRequest struct {
	event  Event
	respCh chan error
}

// Log is an append-only, AEAD-encrypted, hash-chained event store.
// A single background worker owns the file; [Log.Append] enqueues and
// waits for the worker's result.
type Log struct {
	mu sync.Mutex

	directory string
	path      string
	keyPath   string

	file *os.File
	key  *secret.Buffer
	aead cipher.AEAD

	lastHash  string
	tail      []Event
	tailCache int
	rotate    int64
	rotations int
	size      int64
	degraded  bool
	closed    bool

	requests       chan appendRequest
	enqueueTimeout time.Duration
	inFlight       sync.WaitGroup

	clock  clock.Clock
	logger *slog.Logger

	workerDone chan struct{}
}

// Open opens an existing log in directory, or creates one if none
// exists. On first creation a random 32-byte key is generated and
// persisted with owner-only permissions, and last-hash is initialized
// to [GenesisHash]. On reopen, the key is read and the log file is
// rescanned to recover last-hash and the in-memory tail.
func Open(directory string, clk clock.Clock, logger *slog.Logger, opts Options) (*Log, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	rotateBytes := opts.RotateBytes
	if rotateBytes <= 0 {
		rotateBytes = defaultRotate
	}
	tailCache := opts.TailCacheEvents
	if tailCache <= 0 {
		tailCache = defaultTailCache
	}
	queueDepth := opts.AppendQueueDepth
	if queueDepth <= 0 {
		queueDepth = defaultQueue
	}
	enqueueTimeout := opts.EnqueueTimeout
	if enqueueTimeout <= 0 {
		enqueueTimeout = 5 * time.Second
	}

	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("audit: creating directory %s: %w", directory, err)
	}

	path := filepath.Join(directory, logFileName)
	keyPath := filepath.Join(directory, keyFileName)

	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		if _, err := os.Stat(path); err == nil {
			return nil, &ErrKeyInvalid{Path: keyPath, Reason: "missing while log file " + path + " exists"}
		}
	}

	key, created, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key.Bytes())
	if err != nil {
		key.Close()
		return nil, fmt.Errorf("audit: building AEAD: %w", err)
	}

	l := &Log{
		directory:      directory,
		path:           path,
		keyPath:        keyPath,
		key:            key,
		aead:           aead,
		lastHash:       GenesisHash,
		tailCache:      tailCache,
		rotate:         rotateBytes,
		requests:       make(chan appendRequest, queueDepth),
		enqueueTimeout: enqueueTimeout,
		clock:          clk,
		logger:         logger,
		workerDone:     make(chan struct{}),
	}

	if created {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			key.Close()
			return nil, fmt.Errorf("audit: creating log file %s: %w", path, err)
		}
		l.file = file
	} else {
		lastHash, tail, breakIndex, size, err := replay(path, aead, tailCache)
		if err != nil {
			key.Close()
			return nil, fmt.Errorf("audit: replaying %s: %w", path, err)
		}
		if breakIndex >= 0 {
			logger.Warn("audit log chain break detected on reopen", "index", breakIndex)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			key.Close()
			return nil, fmt.Errorf("audit: reopening log file %s: %w", path, err)
		}
		l.file = file
		l.lastHash = lastHash
		l.tail = tail
		l.size = size
	}

	go l.run()
	return l, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func loadOrCreateKey(keyPath string) (buf *secret.Buffer, created bool, err error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("audit: reading key file %s: %w", keyPath, err)
		}
		fresh := make([]byte, keySize)
		if _, err := rand.Read(fresh); err != nil {
			return nil, false, fmt.Errorf("audit: generating key: %w", err)
		}
		if err := os.WriteFile(keyPath, fresh, 0600); err != nil {
			for i := range fresh {
				fresh[i] = 0
			}
			return nil, false, fmt.Errorf("audit: writing key file %s: %w", keyPath, err)
		}
		buf, err := secret.NewFromBytes(fresh)
		if err != nil {
			return nil, false, fmt.Errorf("audit: protecting key: %w", err)
		}
		return buf, true, nil
	}

	if len(data) != keySize {
		for i := range data {
			data[i] = 0
		}
		return nil, false, &ErrKeyInvalid{Path: keyPath, Reason: fmt.Sprintf("expected %d bytes, got %d", keySize, len(data))}
	}

	buf, err = secret.NewFromBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("audit: protecting key: %w", err)
	}
	return buf, false, nil
}

// run is the serializing worker that owns the log file. It is the
// only goroutine that writes to l.file or mutates l.lastHash.
func (l *Log) run() {
	defer close(l.workerDone)
	for req := range l.requests {
		req.respCh <- l.writeRecord(req.event)
	}
}

func (l *Log) writeRecord(event Event) error {
	event.PrevHash = l.lastHash

	serialization, err := canonicalize(event)
	if err != nil {
		return fmt.Errorf("audit: serializing event: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("audit: generating nonce: %w", err)
	}

	ciphertext := l.aead.Seal(nil, nonce, serialization, nil)
	record := append(nonce, ciphertext...)
	line := base64.StdEncoding.EncodeToString(record) + "\n"

	n, err := l.file.WriteString(line)
	if err != nil {
		l.degraded = true
		return fmt.Errorf("audit: writing record: %w", err)
	}

	l.size += int64(n)
	l.lastHash = chainHash(serialization, event.PrevHash)
	l.tail = append(l.tail, event)
	if len(l.tail) > l.tailCache {
		l.tail = l.tail[len(l.tail)-l.tailCache:]
	}

	if l.size >= l.rotate {
		if err := l.rotateLocked(); err != nil {
			l.logger.Error("audit log rotation failed", "error", err)
		}
	}

	return nil
}

// rotateLocked renames the active file to a timestamped archive and
// opens a fresh active file. Must be called from the worker goroutine
// only (it is the sole writer).
func (l *Log) rotateLocked() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing active segment: %w", err)
	}

	timestamp := l.clock.Now().UTC().Format("20060102_150405")
	ext := filepath.Ext(l.path)
	archivePath := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(l.path, ext), timestamp, ext)
	if err := os.Rename(l.path, archivePath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", l.path, archivePath, err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening new active segment: %w", err)
	}
	l.file = file
	l.size = 0
	l.rotations++

	go compressArchive(archivePath, l.logger)
	return nil
}

// Append enqueues event for writing and waits for the result. The
// record is written to the file but not synced to disk.
// If the worker's queue is full for longer than the configured enqueue
// timeout, the log is marked degraded and an [ErrUnavailable] is
// returned.
func (l *Log) Append(event Event) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return &ErrUnavailable{Reason: "log is closed"}
	}
	if l.degraded {
		l.mu.Unlock()
		return &ErrUnavailable{Reason: "append backlog exceeded ceiling"}
	}
	// Registering with inFlight before releasing the lock, in the same
	// critical section as the closed check, is what lets Close safely
	// wait out every Append that has passed the check before it closes
	// l.requests — otherwise a send on a closed channel could panic.
	l.inFlight.Add(1)
	l.mu.Unlock()
	defer l.inFlight.Done()

	req := appendRequest{event: event, respCh: make(chan error, 1)}

	select {
	case l.requests <- req:
	case <-l.clock.After(l.enqueueTimeout):
		l.mu.Lock()
		l.degraded = true
		l.mu.Unlock()
		return &ErrUnavailable{Reason: "append queue full"}
	}

	return <-req.respCh
}

// Verify re-reads the log file, decrypts each record, and recomputes
// the hash chain. It reports the first index where the recorded
// prev-hash disagrees with the recomputed hash, or -1 if the chain is
// intact. Verify performs no writes.
func (l *Log) Verify() (int, error) {
	_, _, breakIndex, _, err := replay(l.path, l.aead, 0)
	if err != nil {
		return -1, err
	}
	return breakIndex, nil
}

// Stats returns a snapshot of the log's current state.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		SizeBytes:  l.size,
		TailEvents: len(l.tail),
		Rotations:  l.rotations,
		Degraded:   l.degraded,
	}
}

// Close stops the worker and releases the key buffer. Appends that
// were already in progress when Close was called are allowed to finish
// first; later calls to Append return [ErrUnavailable].
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.inFlight.Wait()
	close(l.requests)
	<-l.workerDone

	closeErr := l.file.Close()
	l.key.Close()
	return closeErr
}

// replay decrypts every record in path in order, reconstructing the
// hash chain. tailCache bounds how many trailing events are returned
// (0 means none are retained, used by Verify). Returns the final
// last-hash, the retained tail, the index of the first chain break (or
// -1), and the file size.
func replay(path string, aead cipher.AEAD, tailCache int) (lastHash string, tail []Event, breakIndex int, size int64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", nil, -1, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", nil, -1, 0, err
	}
	size = info.Size()

	lastHash = GenesisHash
	breakIndex = -1

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	index := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		record, decodeErr := base64.StdEncoding.DecodeString(string(line))
		if decodeErr != nil {
			if breakIndex < 0 {
				breakIndex = index
			}
			index++
			continue
		}
		if len(record) < nonceSize {
			if breakIndex < 0 {
				breakIndex = index
			}
			index++
			continue
		}
		nonce, ciphertext := record[:nonceSize], record[nonceSize:]
		plaintext, decryptErr := aead.Open(nil, nonce, ciphertext, nil)
		if decryptErr != nil {
			if breakIndex < 0 {
				breakIndex = index
			}
			index++
			continue
		}

		var event Event
		if err := decodeCBOR(plaintext, &event); err != nil {
			if breakIndex < 0 {
				breakIndex = index
			}
			index++
			continue
		}

		if event.PrevHash != lastHash && breakIndex < 0 {
			breakIndex = index
		}

		lastHash = chainHash(plaintext, event.PrevHash)

		if tailCache > 0 {
			tail = append(tail, event)
			if len(tail) > tailCache {
				tail = tail[len(tail)-tailCache:]
			}
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return "", nil, -1, 0, fmt.Errorf("scanning %s: %w", path, err)
	}

	return lastHash, tail, breakIndex, size, nil
}
