// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: development\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v, want nil", err)
	}
	if cfg.Sandbox.Capacity != 64 {
		t.Fatalf("Sandbox.Capacity = %d, want default 64", cfg.Sandbox.Capacity)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestProductionDefaultOverrideKeepsBackendAutoDetect(t *testing.T) {
	path := writeConfig(t, "environment: production\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v, want nil", err)
	}
	if cfg.Sandbox.BackendOverride != "" {
		t.Fatalf("Sandbox.BackendOverride = %q, want empty (auto-detect)", cfg.Sandbox.BackendOverride)
	}
}

func TestEnvironmentOverrideAppliesRateLimit(t *testing.T) {
	path := writeConfig(t, `
environment: staging
rate_limit:
  connections_per_minute: 100
  messages_per_second: 10
staging:
  rate_limit:
    connections_per_minute: 20
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v, want nil", err)
	}
	if cfg.RateLimit.ConnectionsPerMinute != 20 {
		t.Fatalf("RateLimit.ConnectionsPerMinute = %d, want 20 from staging override", cfg.RateLimit.ConnectionsPerMinute)
	}
	if cfg.RateLimit.MessagesPerSecond != 10 {
		t.Fatalf("RateLimit.MessagesPerSecond = %d, want unchanged base 10", cfg.RateLimit.MessagesPerSecond)
	}
}

func TestValidateRejectsInvalidBackend(t *testing.T) {
	path := writeConfig(t, "environment: development\nsandbox:\n  backend_override: made-up\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v, want nil", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for unknown backend_override")
	}
}

func TestExpandVariablesInAuditDirectory(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := writeConfig(t, "environment: development\naudit:\n  directory: \"${HOME}/audit\"\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v, want nil", err)
	}
	if cfg.Audit.Directory != "/home/tester/audit" {
		t.Fatalf("Audit.Directory = %q, want expanded ${HOME}", cfg.Audit.Directory)
	}
}
