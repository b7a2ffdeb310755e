// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/agentd"
	"github.com/seahorse-keys/seahorse/internal/gpgconf"
	"github.com/seahorse-keys/seahorse/internal/passcache"
	"github.com/seahorse-keys/seahorse/internal/prefs"
)

// agentState is a running agent and the collaborators wired to it.
type agentState struct {
	cfg    config
	logger *slog.Logger
	prefs  *prefs.Store
	cache  *passcache.Cache
	server *agentd.Server
	conf   *gpgconf.File
}

// runAgent starts the agent and blocks until ctx is done. ready is called
// once the socket is accepting connections.
func runAgent(ctx context.Context, cfg config, logger *slog.Logger, ready func(*agentState)) error {
	store, err := prefs.Open(cfg.dataDir)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	snap := store.Snapshot()

	cache, err := passcache.New(snap.Policy())
	if err != nil {
		return err
	}
	defer cache.Clear()

	server := agentd.NewServer(cfg.socketPath, cache)
	server.Logger = logger
	server.IdleTimeout = cfg.idleTimeout
	authorizer, err := buildAuthorizer(cfg, snap, logger)
	if err != nil {
		return err
	}
	server.Authorizer = authorizer
	server.SetAuthorize(snap.Agent.CacheAuthorize)

	a := &agentState{
		cfg:    cfg,
		logger: logger,
		prefs:  store,
		cache:  cache,
		server: server,
		conf:   gpgconf.Open(cfg.gnupgHome),
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer server.Stop()

	if cfg.publish {
		if err := a.publish(); err != nil {
			return err
		}
		defer a.unpublish()
	}

	unwatch := a.watchPrefs()
	defer unwatch()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go cache.Run(runCtx, cfg.sweepInterval)
	go func() {
		if err := store.Watch(runCtx); err != nil {
			logger.Warn("preferences will not reload automatically", "error", err)
		}
	}()

	logger.Info("seahorse-agent started",
		"socket", cfg.socketPath,
		"pid", server.Descriptor().PID,
		"cache", snap.Agent.CacheEnabled,
		"authorize", snap.Agent.CacheAuthorize)

	if ready != nil {
		ready(a)
	}

	<-ctx.Done()
	logger.Info("seahorse-agent shutting down")
	return nil
}

// buildAuthorizer picks the release authorizer. The flag wins over prefs.
// Authorization switched on without a helper denies every release.
func buildAuthorizer(cfg config, p prefs.Prefs, logger *slog.Logger) (agentd.Authorizer, error) {
	argv := cfg.authorizeCommand
	if len(argv) == 0 {
		argv = p.Agent.AuthorizeCommand
	}
	if len(argv) == 0 {
		if p.Agent.CacheAuthorize {
			logger.Warn("cache authorization is on but no authorize command is configured; cached passphrases will not be released")
		}
		return agentd.DenyAll{}, nil
	}

	auth := &agentd.CommandAuthorizer{
		Argv:    argv,
		Timeout: p.AuthorizeTimeout(),
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}
	return auth, nil
}

// watchPrefs applies preference changes to the running agent.
func (a *agentState) watchPrefs() func() {
	applyPolicy := func(prefs.Value) {
		p := a.prefs.Snapshot().Policy()
		a.cache.SetPolicy(p)
		a.logger.Info("cache policy updated", "enabled", p.Enabled, "expire", p.Expire, "ttl", p.TTL)
	}

	var ids []int
	for _, key := range []string{prefs.KeyCacheEnabled, prefs.KeyCacheExpire, prefs.KeyCacheTTL} {
		id, err := a.prefs.Notify(key, applyPolicy)
		if err == nil {
			ids = append(ids, id)
		}
	}
	id, err := a.prefs.Notify(prefs.KeyCacheAuthorize, func(v prefs.Value) {
		a.server.SetAuthorize(v.Bool)
		a.logger.Info("cache authorization updated", "authorize", v.Bool)
	})
	if err == nil {
		ids = append(ids, id)
	}

	return func() {
		for _, id := range ids {
			a.prefs.Unnotify(id)
		}
	}
}

// publish records the descriptor in gpg.conf so that tools started
// outside this shell find the agent.
func (a *agentState) publish() error {
	desc := a.server.Descriptor().String()
	if err := a.conf.SetOption(agent.OptionName, desc); err != nil {
		return fmt.Errorf("failed to publish agent in %s: %w", a.conf.Path, err)
	}
	a.logger.Debug("published agent", "file", a.conf.Path, "descriptor", desc)
	return nil
}

// unpublish removes the descriptor unless another agent replaced it.
func (a *agentState) unpublish() {
	value, found, err := a.conf.FindOption(agent.OptionName)
	if err != nil || !found {
		return
	}
	if value != a.server.Descriptor().String() {
		a.logger.Debug("gpg.conf names another agent, leaving it", "value", value)
		return
	}
	if _, err := a.conf.RemoveOption(agent.OptionName); err != nil {
		a.logger.Warn("failed to unpublish agent", "file", a.conf.Path, "error", err)
	}
}
