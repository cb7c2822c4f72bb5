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

// Package command implements the optimistic privacy-toggle pipeline: the
// displayed state flips immediately, the remote command runs on a
// per-device FIFO queue, and non-convergence bounces the toggle back.
package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

var (
	// ErrQueueFull is returned when a device accumulates more queued
	// toggles than the queue can hold.
	ErrQueueFull = errors.New("command queue full")

	// ErrStopped is returned for commands issued after shutdown.
	ErrStopped = errors.New("command manager stopped")
)

// Config holds the pipeline tunables. Zero values select the defaults.
type Config struct {
	// VerifyAttempts bounds the convergence polls after a set call.
	VerifyAttempts int

	// VerifyDelay is the fixed delay before each convergence poll.
	VerifyDelay time.Duration

	// QueueSize bounds the per-device command queue.
	QueueSize int
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.VerifyAttempts == 0 {
		out.VerifyAttempts = 3
	}

	if out.VerifyDelay == 0 {
		out.VerifyDelay = 500 * time.Millisecond
	}

	if out.QueueSize == 0 {
		out.QueueSize = 8
	}

	return out
}

// pipeline is the per-device command state. Commands for one device
// execute strictly FIFO with at most one remote call outstanding;
// different devices proceed independently. The optimistic displayed
// state only overrides the registry while commands are pending; an idle
// pipeline always shows polled truth, so external changes (vendor app)
// surface on the next pass.
type pipeline struct {
	serial string
	queue  chan registry.PrivacyState

	mu        sync.Mutex
	displayed registry.PrivacyState
	pending   int
}

// enqueue atomically queues a command and applies the optimistic flip.
// Nothing is changed when the queue is full.
func (p *pipeline) enqueue(target registry.PrivacyState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case p.queue <- target:
		p.pending++
		p.displayed = target

		return true
	default:
		return false
	}
}

// complete retires one executed command.
func (p *pipeline) complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending--
}

// displayedState returns the optimistic state and whether any command is
// still pending.
func (p *pipeline) displayedState() (registry.PrivacyState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.displayed, p.pending > 0
}

// Manager owns all per-device pipelines.
type Manager struct {
	api      ezviz.DeviceAPI
	registry *registry.Registry
	cfg      Config
	logger   logger.Logger

	mu        sync.Mutex
	pipelines map[string]*pipeline
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates the command manager. Consumers are spawned lazily,
// one per device, under a context derived from ctx.
func NewManager(ctx context.Context, api ezviz.DeviceAPI, reg *registry.Registry, cfg Config, log logger.Logger) *Manager {
	mgrCtx, cancel := context.WithCancel(ctx)

	return &Manager{
		api:       api,
		registry:  reg,
		cfg:       cfg.withDefaults(),
		logger:    log.WithComponent("command"),
		pipelines: make(map[string]*pipeline),
		ctx:       mgrCtx,
		cancel:    cancel,
	}
}

// Toggle applies an optimistic privacy change for a device and enqueues
// the remote command. It returns once the displayed state has flipped and
// the change has been published, well within the bridge's sub-second
// acknowledgement budget. A full queue rejects the command without
// touching the displayed state.
func (m *Manager) Toggle(serial string, enable bool) error {
	target := registry.PrivacyStateFromBool(enable)

	p, err := m.pipeline(serial)
	if err != nil {
		return err
	}

	old := m.DisplayedState(serial)

	if !p.enqueue(target) {
		return ErrQueueFull
	}

	name := serial
	if rec, found := m.registry.Get(serial); found {
		name = rec.Name
	}

	m.registry.Notify(registry.StateChange{
		Serial:   serial,
		Name:     name,
		OldState: old,
		NewState: target,
		Source:   registry.SourceCommand,
	})

	return nil
}

// DisplayedState returns the optimistic state for a device with pending
// commands; an idle device always reports the registry's polled state.
func (m *Manager) DisplayedState(serial string) registry.PrivacyState {
	m.mu.Lock()
	p, ok := m.pipelines[serial]
	m.mu.Unlock()

	if ok {
		if state, pending := p.displayedState(); pending {
			return state
		}
	}

	return m.registry.ActualState(serial)
}

// Stop cancels all consumers and waits for them to exit.
func (m *Manager) Stop(_ context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	return nil
}

// pipeline returns the device's pipeline, creating it and spawning its
// single consumer on first use.
func (m *Manager) pipeline(serial string) (*pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, ErrStopped
	}

	if p, ok := m.pipelines[serial]; ok {
		return p, nil
	}

	p := &pipeline{
		serial: serial,
		queue:  make(chan registry.PrivacyState, m.cfg.QueueSize),
	}
	m.pipelines[serial] = p

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		m.consume(p)
	}()

	return p, nil
}

// consume executes one device's commands in FIFO order. Cancellation
// exits cleanly without leaving the queue blocked.
func (m *Manager) consume(p *pipeline) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case target := <-p.queue:
			m.execute(p, target)
		}
	}
}

// execute issues the remote command and drives the device to convergence
// or reverts the displayed state. The pending command is retired only
// after the registry reflects the outcome, so the displayed state never
// drops back to a stale value in between.
func (m *Manager) execute(p *pipeline, target registry.PrivacyState) {
	if m.converge(p.serial, target) {
		m.registry.ConfirmPrivacy(p.serial, target)
		p.complete()

		m.logger.Debug().
			Str("serial", p.serial).
			Str("state", string(target)).
			Msg("Privacy command confirmed")

		return
	}

	// Bounce back to the last known actual state so the operator sees
	// the command failed.
	actual := m.registry.ActualState(p.serial)

	m.logger.Warn().
		Str("serial", p.serial).
		Str("target", string(target)).
		Str("actual", string(actual)).
		Msg("Privacy command did not converge, reverting")

	name := p.serial
	if rec, found := m.registry.Get(p.serial); found {
		name = rec.Name
	}

	m.registry.Notify(registry.StateChange{
		Serial:   p.serial,
		Name:     name,
		OldState: target,
		NewState: actual,
		Source:   registry.SourceRevert,
	})

	p.complete()
}

// converge issues the set call and polls until the backend reports the
// target state, within the fixed attempt budget.
func (m *Manager) converge(serial string, target registry.PrivacyState) bool {
	if !m.api.SetPrivacy(m.ctx, serial, target.IsOn()) {
		return false
	}

	for attempt := 0; attempt < m.cfg.VerifyAttempts; attempt++ {
		select {
		case <-m.ctx.Done():
			return false
		case <-time.After(m.cfg.VerifyDelay):
		}

		if registry.PrivacyStateFromBool(m.api.GetPrivacyStatus(m.ctx, serial)) == target {
			return true
		}
	}

	return false
}
