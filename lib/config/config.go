// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the sentry daemon.
//
// Configuration is loaded from a single file specified by:
//   - SENTRY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// staging, production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the sentry daemon.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Audit configures the append-only audit log.
	Audit AuditConfig `yaml:"audit"`

	// Identity configures the identity registry.
	Identity IdentityConfig `yaml:"identity"`

	// Policy configures the policy engine.
	Policy PolicyConfig `yaml:"policy"`

	// Sandbox configures the sandbox manager.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// RateLimit configures the rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Admission configures the admission controller.
	Admission AdmissionConfig `yaml:"admission"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Audit     *AuditConfig     `yaml:"audit,omitempty"`
	Identity  *IdentityConfig  `yaml:"identity,omitempty"`
	Sandbox   *SandboxConfig   `yaml:"sandbox,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
	Admission *AdmissionConfig `yaml:"admission,omitempty"`
}

// AuditConfig configures the append-only audit log.
type AuditConfig struct {
	// Directory holds the active log file, its key file, and rotated
	// archives.
	Directory string `yaml:"directory"`

	// RotateBytes is the file size at which the active segment is
	// rotated to a timestamped archive. Default: 100 MiB.
	RotateBytes int64 `yaml:"rotate_bytes"`

	// TailCacheEvents bounds the in-memory tail kept for fast reads
	// after an append. Default: 1000.
	TailCacheEvents int `yaml:"tail_cache_events"`

	// AppendQueueDepth bounds the serializing worker's inbound queue.
	// Default: 256.
	AppendQueueDepth int `yaml:"append_queue_depth"`
}

// IdentityConfig configures the identity registry.
type IdentityConfig struct {
	// RevocationTrustFloor is the trust score below which an identity
	// is treated as revoked. Default: 10.
	RevocationTrustFloor int `yaml:"revocation_trust_floor"`

	// IssuerKeyPath, if set, points to an age-sealed private key file
	// used to countersign identities this node issues.
	IssuerKeyPath string `yaml:"issuer_key_path"`
}

// PolicyConfig configures the policy engine.
type PolicyConfig struct {
	// ExtraPoliciesFile, if set, is a YAML file of additional policies
	// appended after the built-in defaults.
	ExtraPoliciesFile string `yaml:"extra_policies_file"`
}

// SandboxConfig configures the sandbox manager.
type SandboxConfig struct {
	// Capacity is the maximum number of simultaneously active
	// sandboxes. Default: 64.
	Capacity int `yaml:"capacity"`

	// BackendOverride forces a specific backend ("container",
	// "microvm", "fullvm", "none") instead of auto-detecting one.
	// Empty means auto-detect.
	BackendOverride string `yaml:"backend_override"`
}

// RateLimitConfig configures the rate limiter. The global peer cap is
// AdmissionConfig.MaxPeers.
type RateLimitConfig struct {
	// ConnectionsPerMinute is the per-remote-address connection quota.
	// Default: 100.
	ConnectionsPerMinute int `yaml:"connections_per_minute"`

	// MessagesPerSecond is the per-peer-id message quota. Default: 10.
	MessagesPerSecond int `yaml:"messages_per_second"`
}

// AdmissionConfig configures the admission controller.
type AdmissionConfig struct {
	// MaxPeers is the global cap on concurrent admitted peers.
	// Default: 1000.
	MaxPeers int `yaml:"max_peers"`

	// MaxMessageBytes rejects messages larger than this without
	// consulting the rate limiter. Default: 10 MiB.
	MaxMessageBytes int `yaml:"max_message_bytes"`

	// VerifyInterval is how often the continuous verifier re-checks
	// live sessions. Default: 5m.
	VerifyInterval time.Duration `yaml:"verify_interval"`

	// StatusAddress is the TCP address for the diagnostic status HTTP
	// surface (GET /status); there is no test-admission endpoint.
	// Empty disables it.
	StatusAddress string `yaml:"status_address"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "state", "sentry")

	return &Config{
		Environment: Development,
		Audit: AuditConfig{
			Directory:        filepath.Join(defaultRoot, "audit"),
			RotateBytes:      100 * 1024 * 1024,
			TailCacheEvents:  1000,
			AppendQueueDepth: 256,
		},
		Identity: IdentityConfig{
			RevocationTrustFloor: 10,
		},
		Sandbox: SandboxConfig{
			Capacity: 64,
		},
		RateLimit: RateLimitConfig{
			ConnectionsPerMinute: 100,
			MessagesPerSecond:    10,
		},
		Admission: AdmissionConfig{
			MaxPeers:        1000,
			MaxMessageBytes: 10 * 1024 * 1024,
			VerifyInterval:  5 * time.Minute,
			StatusAddress:   "127.0.0.1:9600",
		},
	}
}

// Load loads configuration from the SENTRY_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if SENTRY_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("SENTRY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("SENTRY_CONFIG environment variable not set; " +
			"set it to the path of your sentry.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: no sandbox backend override, so a
		// missing backend refuses privileged admissions rather than
		// silently running unsandboxed.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Sandbox: &SandboxConfig{},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Audit != nil {
		if overrides.Audit.Directory != "" {
			c.Audit.Directory = overrides.Audit.Directory
		}
		if overrides.Audit.RotateBytes != 0 {
			c.Audit.RotateBytes = overrides.Audit.RotateBytes
		}
		if overrides.Audit.TailCacheEvents != 0 {
			c.Audit.TailCacheEvents = overrides.Audit.TailCacheEvents
		}
		if overrides.Audit.AppendQueueDepth != 0 {
			c.Audit.AppendQueueDepth = overrides.Audit.AppendQueueDepth
		}
	}

	if overrides.Identity != nil {
		if overrides.Identity.RevocationTrustFloor != 0 {
			c.Identity.RevocationTrustFloor = overrides.Identity.RevocationTrustFloor
		}
		if overrides.Identity.IssuerKeyPath != "" {
			c.Identity.IssuerKeyPath = overrides.Identity.IssuerKeyPath
		}
	}

	if overrides.Sandbox != nil {
		if overrides.Sandbox.Capacity != 0 {
			c.Sandbox.Capacity = overrides.Sandbox.Capacity
		}
		if overrides.Sandbox.BackendOverride != "" {
			c.Sandbox.BackendOverride = overrides.Sandbox.BackendOverride
		}
	}

	if overrides.RateLimit != nil {
		if overrides.RateLimit.ConnectionsPerMinute != 0 {
			c.RateLimit.ConnectionsPerMinute = overrides.RateLimit.ConnectionsPerMinute
		}
		if overrides.RateLimit.MessagesPerSecond != 0 {
			c.RateLimit.MessagesPerSecond = overrides.RateLimit.MessagesPerSecond
		}
	}

	if overrides.Admission != nil {
		if overrides.Admission.MaxPeers != 0 {
			c.Admission.MaxPeers = overrides.Admission.MaxPeers
		}
		if overrides.Admission.MaxMessageBytes != 0 {
			c.Admission.MaxMessageBytes = overrides.Admission.MaxMessageBytes
		}
		if overrides.Admission.VerifyInterval != 0 {
			c.Admission.VerifyInterval = overrides.Admission.VerifyInterval
		}
		if overrides.Admission.StatusAddress != "" {
			c.Admission.StatusAddress = overrides.Admission.StatusAddress
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Audit.Directory = expandVars(c.Audit.Directory, vars)
	c.Identity.IssuerKeyPath = expandVars(c.Identity.IssuerKeyPath, vars)
	c.Policy.ExtraPoliciesFile = expandVars(c.Policy.ExtraPoliciesFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Audit.Directory == "" {
		errs = append(errs, fmt.Errorf("audit.directory is required"))
	}

	if c.Sandbox.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.capacity must be positive"))
	}

	if c.RateLimit.ConnectionsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.connections_per_minute must be positive"))
	}
	if c.RateLimit.MessagesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.messages_per_second must be positive"))
	}

	if c.Admission.MaxPeers <= 0 {
		errs = append(errs, fmt.Errorf("admission.max_peers must be positive"))
	}

	backendValues := []string{"", "container", "microvm", "fullvm", "none"}
	if !contains(backendValues, c.Sandbox.BackendOverride) {
		errs = append(errs, fmt.Errorf("sandbox.backend_override must be one of: %v", backendValues))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	if c.Audit.Directory == "" {
		return nil
	}
	if err := os.MkdirAll(c.Audit.Directory, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Audit.Directory, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
