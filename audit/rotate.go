// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"
)

// compressArchive zstd-compresses a rotated-out segment in the
// background and removes the uncompressed copy once the compressed
// copy has been written and closed (it is not fsynced). The active segment being appended to is
// never touched by this function.
func compressArchive(path string, logger *slog.Logger) {
	if err := compressFile(path); err != nil {
		logger.Error("audit archive compression failed", "path", path, "error", err)
	}
}

func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer source.Close()

	destPath := path + ".zst"
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		dest.Close()
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, source); err != nil {
		encoder.Close()
		dest.Close()
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		dest.Close()
		return fmt.Errorf("finalizing zstd stream: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", destPath, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing uncompressed archive %s: %w", path, err)
	}
	return nil
}
