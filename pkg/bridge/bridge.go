/*
 * Copyright 2026 EZVIZ Bridge Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bridge assembles the EZVIZ client, state registry, poller and
// command pipeline into one service with an HTTP control surface.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/command"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/notify"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/poller"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

const readHeaderTimeout = 10 * time.Second

// Bridge is the assembled service.
type Bridge struct {
	cfg    *Config
	logger logger.Logger

	client   *ezviz.Client
	registry *registry.Registry
	poller   *poller.Poller
	commands *command.Manager
	hub      *eventHub

	httpServer  *http.Server
	unsubscribe func()

	errCh chan error
}

// New wires the service from its configuration. ctx bounds the lifetime
// of the command consumers.
func New(ctx context.Context, cfg *Config, log logger.Logger) *Bridge {
	client := ezviz.NewClient(&ezviz.ClientConfig{
		BaseURL:   cfg.BaseURL,
		AppKey:    cfg.AppKey,
		AppSecret: cfg.AppSecret,
	}, nil, log)

	reg := registry.New(log)

	var notifier poller.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWeCom(nil, cfg.WebhookURL, log)
	}

	b := &Bridge{
		cfg:      cfg,
		logger:   log.WithComponent("bridge"),
		client:   client,
		registry: reg,
		poller: poller.New(client, reg, notifier, poller.Config{
			Interval: cfg.PollInterval(),
			Devices:  cfg.Devices,
		}, log),
		commands: command.NewManager(ctx, client, reg, command.Config{}, log),
		hub:      newEventHub(log),
		errCh:    make(chan error, 2),
	}

	b.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           b.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return b
}

// Start verifies credentials, then launches the poll loop and HTTP
// server. A credential failure is fatal; the service refuses to start
// half-working.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.client.CheckCredentials(ctx); err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	b.unsubscribe = b.registry.Subscribe(b.hub.broadcast)

	go func() {
		if err := b.poller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.errCh <- err
		}
	}()

	go func() {
		b.logger.Info().Str("addr", b.cfg.ListenAddr).Msg("Starting HTTP server")

		if err := b.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.errCh <- err
		}
	}()

	return nil
}

// Err reports fatal background failures from the poll loop or HTTP
// server.
func (b *Bridge) Err() <-chan error {
	return b.errCh
}

// Stop shuts the service down: HTTP first so no new commands arrive,
// then the poller and command consumers, then the event stream.
func (b *Bridge) Stop(ctx context.Context) error {
	var firstErr error

	if err := b.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}

	if err := b.poller.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if err := b.commands.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if b.unsubscribe != nil {
		b.unsubscribe()
	}

	b.hub.close()

	b.logger.Info().Msg("Bridge stopped")

	return firstErr
}
