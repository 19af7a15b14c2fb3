// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command sentryd runs the admission controller daemon: it loads
// configuration, opens the audit log, wires the identity registry,
// policy engine, sandbox manager, and rate limiter into a controller,
// then serves the diagnostic status surface while the continuous
// verifier sweeps live sessions in the background.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/sentry/admission"
	"github.com/bureau-foundation/sentry/audit"
	"github.com/bureau-foundation/sentry/identity"
	"github.com/bureau-foundation/sentry/lib/clock"
	"github.com/bureau-foundation/sentry/lib/config"
	"github.com/bureau-foundation/sentry/lib/service"
	"github.com/bureau-foundation/sentry/policy"
	"github.com/bureau-foundation/sentry/ratelimit"
	"github.com/bureau-foundation/sentry/sandbox"
	"github.com/bureau-foundation/sentry/verify"
)

func main() {
	configPath := flag.String("config", "", "path to the sentry config file (overrides SENTRY_CONFIG)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := run(*configPath, logger); err != nil {
		logger.Error("sentryd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return fmt.Errorf("preparing paths: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clk := clock.Real()

	auditLog, err := audit.Open(cfg.Audit.Directory, clk, logger, audit.Options{
		RotateBytes:      cfg.Audit.RotateBytes,
		TailCacheEvents:  cfg.Audit.TailCacheEvents,
		AppendQueueDepth: cfg.Audit.AppendQueueDepth,
	})
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	registry := identity.NewRegistry(clk, cfg.Identity.RevocationTrustFloor)
	if cfg.Identity.IssuerKeyPath != "" {
		issuer, err := identity.LoadOrCreateIssuer(cfg.Identity.IssuerKeyPath)
		if err != nil {
			return fmt.Errorf("loading issuer key: %w", err)
		}
		defer issuer.Close()
		registry.SetIssuer(issuer)
	}

	var extraRules []policy.Rule
	if cfg.Policy.ExtraPoliciesFile != "" {
		extraRules, err = policy.LoadExtraRules(cfg.Policy.ExtraPoliciesFile)
		if err != nil {
			return fmt.Errorf("loading extra policies: %w", err)
		}
	}
	policyEngine := policy.NewEngine(extraRules)

	backend := sandbox.DetectBackend(cfg.Sandbox.BackendOverride)
	logger.Info("sandbox backend detected", "backend", backend.String())
	sandboxManager := sandbox.NewManager(backend, cfg.Sandbox.Capacity)

	limiter := ratelimit.New(cfg.RateLimit.ConnectionsPerMinute, cfg.RateLimit.MessagesPerSecond)

	controller := admission.New(
		admission.Config{
			MaxPeers:        cfg.Admission.MaxPeers,
			MaxMessageBytes: cfg.Admission.MaxMessageBytes,
		},
		registry, policyEngine, sandboxManager, limiter, auditLog, clk, logger,
	)

	verifier := verify.New(registry, clk, cfg.Admission.VerifyInterval, controller, controller.Terminate, logger)

	done := make(chan error, 2)
	if cfg.Admission.StatusAddress != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Admission.StatusAddress,
			Handler: controller.StatusHandler(),
			Logger:  logger,
		})
		go func() { done <- httpServer.Serve(ctx) }()
	} else {
		done <- nil
	}
	go func() { verifier.Run(ctx); done <- nil }()

	<-ctx.Done()
	logger.Info("sentryd shutting down")

	var firstErr error
	for range 2 {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
