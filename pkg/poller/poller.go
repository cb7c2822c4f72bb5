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

// Package poller runs the periodic fetch-diff-notify cycle that reconciles
// cached device state with the backend.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

// Notifier delivers best-effort outbound notifications for a state
// change. Failures are logged and never abort the poll pass.
type Notifier interface {
	NotifyStateChange(ctx context.Context, change registry.StateChange) error
}

// Config holds the poller tunables.
type Config struct {
	// Interval between poll passes.
	Interval time.Duration

	// Devices is the operator-configured allow-list of serials. An empty
	// list makes every pass a no-op.
	Devices []string
}

// Poller periodically fetches the device list and privacy states, diffs
// them against the registry and publishes transitions.
type Poller struct {
	api      ezviz.DeviceAPI
	registry *registry.Registry
	notifier Notifier // may be nil
	cfg      Config
	clock    Clock
	logger   logger.Logger

	// passMu serializes poll passes. A tick arriving while a pass is
	// still running waits for it rather than being skipped; slow passes
	// may therefore run back to back.
	passMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a poller. notifier may be nil when no webhook is configured.
func New(api ezviz.DeviceAPI, reg *registry.Registry, notifier Notifier, cfg Config, log logger.Logger) *Poller {
	return &Poller{
		api:      api,
		registry: reg,
		notifier: notifier,
		cfg:      cfg,
		clock:    realClock{},
		logger:   log.WithComponent("poller"),
		done:     make(chan struct{}),
	}
}

// Start runs one eager pass and then polls on the configured interval
// until the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	ticker := p.clock.Ticker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.cfg.Interval).
		Int("devices", len(p.cfg.Devices)).
		Msg("Starting poller")

	p.wg.Add(1)

	func() {
		defer p.wg.Done()

		if err := p.poll(ctx); err != nil {
			p.logger.Error().Err(err).Msg("Error during initial poll")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case <-ticker.Chan():
			p.wg.Add(1)

			go func() {
				defer p.wg.Done()

				if err := p.poll(ctx); err != nil {
					p.logger.Error().Err(err).Msg("Error during poll")
				}
			}()
		}
	}
}

// Stop terminates the poll loop and waits for an in-flight pass.
func (p *Poller) Stop(_ context.Context) error {
	p.closeOnce.Do(func() {
		close(p.done)
	})

	p.wg.Wait()

	return nil
}

// poll runs one fetch-diff-notify pass. A failed pass leaves the cached
// state untouched; stale data stays available to readers.
func (p *Poller) poll(ctx context.Context) error {
	if len(p.cfg.Devices) == 0 {
		p.logger.Debug().Msg("No devices configured, skipping update")
		return nil
	}

	p.passMu.Lock()
	defer p.passMu.Unlock()

	started := p.clock.Now()

	devices, err := p.api.ListDevices(ctx)
	if err != nil {
		return err
	}

	allowed := make(map[string]struct{}, len(p.cfg.Devices))
	for _, serial := range p.cfg.Devices {
		allowed[serial] = struct{}{}
	}

	var processed, changes int

	for _, dev := range devices {
		if dev.Serial == "" {
			continue
		}

		if _, ok := allowed[dev.Serial]; !ok {
			continue
		}

		processed++

		state := registry.PrivacyStateFromBool(p.api.GetPrivacyStatus(ctx, dev.Serial))

		change := p.registry.Observe(dev.Serial, dev.Name, dev.Raw, state)
		if change == nil {
			continue
		}

		changes++
		change.Source = registry.SourcePoll

		p.logger.Info().
			Str("serial", change.Serial).
			Str("old", string(change.OldState)).
			Str("new", string(change.NewState)).
			Msg("Privacy mode changed")

		p.registry.Notify(*change)

		if p.notifier != nil {
			if err := p.notifier.NotifyStateChange(ctx, *change); err != nil {
				p.logger.Error().Err(err).Str("serial", change.Serial).
					Msg("Failed to send webhook notification")
			}
		}
	}

	p.logger.Debug().
		Int("devices", processed).
		Int("changes", changes).
		Dur("elapsed", p.clock.Now().Sub(started)).
		Msg("Poll pass completed")

	return nil
}
