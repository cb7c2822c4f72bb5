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

// Package registry holds the per-connection store of last-known device
// state and fans state changes out to subscribers.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
)

// PrivacyState models the privacy mode of a camera.
type PrivacyState string

const (
	// PrivacyOn means the feed is blanked.
	PrivacyOn PrivacyState = "on"
	// PrivacyOff means the camera streams normally.
	PrivacyOff PrivacyState = "off"
)

// PrivacyStateFromBool converts the backend's boolean representation.
func PrivacyStateFromBool(on bool) PrivacyState {
	if on {
		return PrivacyOn
	}

	return PrivacyOff
}

// IsOn reports whether the state is PrivacyOn.
func (s PrivacyState) IsOn() bool {
	return s == PrivacyOn
}

// ChangeSource identifies which path produced a state change.
type ChangeSource string

const (
	// SourcePoll marks changes observed by the reconciliation loop.
	SourcePoll ChangeSource = "poll"
	// SourceCommand marks optimistic changes from a toggle command.
	SourceCommand ChangeSource = "command"
	// SourceRevert marks the bounce-back after a failed command.
	SourceRevert ChangeSource = "revert"
)

// DeviceRecord is the last-known state of one device. Records are created
// when a device is first observed and never removed; devices dropped from
// the allow-list simply stop being polled.
type DeviceRecord struct {
	Serial       string                 `json:"serial"`
	Name         string                 `json:"name"`
	Info         map[string]interface{} `json:"info"`
	PrivacyState PrivacyState           `json:"privacy_state"`
}

// StateChange describes one privacy-state transition.
type StateChange struct {
	EventID   string       `json:"event_id"`
	Serial    string       `json:"serial"`
	Name      string       `json:"name"`
	OldState  PrivacyState `json:"old_state"`
	NewState  PrivacyState `json:"new_state"`
	Source    ChangeSource `json:"source"`
	Timestamp time.Time    `json:"timestamp"`
}

// Subscriber receives state changes. Callbacks run on the publishing
// goroutine and must not block.
type Subscriber func(StateChange)

// Registry is safe for concurrent use by the poll loop (writer), the
// command pipelines (writer on confirmed convergence) and entity-facing
// readers. Mutations are single-record replacements; readers may observe
// records from two different poll cycles for two different devices, which
// is accepted.
type Registry struct {
	mu      sync.RWMutex
	records map[string]DeviceRecord

	subMu  sync.RWMutex
	subs   map[int]Subscriber
	nextID int

	logger logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	return &Registry{
		records: make(map[string]DeviceRecord),
		subs:    make(map[int]Subscriber),
		logger:  log.WithComponent("registry"),
	}
}

// Observe records the state fetched for a device during a poll pass. A
// device seen for the first time is inserted silently. For a known device
// the attribute map is always refreshed; if the privacy state differs from
// the cached value the record is updated and the resulting transition is
// returned for the caller to publish.
func (r *Registry) Observe(serial, name string, info map[string]interface{}, state PrivacyState) *StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, known := r.records[serial]
	if !known {
		r.records[serial] = DeviceRecord{
			Serial:       serial,
			Name:         name,
			Info:         info,
			PrivacyState: state,
		}

		r.logger.Debug().Str("serial", serial).Str("state", string(state)).Msg("Discovered device")

		return nil
	}

	old := rec.PrivacyState
	rec.Name = name
	rec.Info = info
	rec.PrivacyState = state
	r.records[serial] = rec

	if old == state {
		return nil
	}

	return &StateChange{
		Serial:   serial,
		Name:     name,
		OldState: old,
		NewState: state,
	}
}

// ConfirmPrivacy persists a state confirmed by the command pipeline so the
// next reconciliation pass sees consistent data. It does not notify; the
// optimistic update already did.
func (r *Registry) ConfirmPrivacy(serial string, state PrivacyState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[serial]
	if !ok {
		rec = DeviceRecord{Serial: serial, Name: serial}
	}

	rec.PrivacyState = state
	r.records[serial] = rec
}

// Get returns the record for a serial.
func (r *Registry) Get(serial string) (DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[serial]

	return rec, ok
}

// ActualState returns the cached privacy state, defaulting to off for
// unknown devices.
func (r *Registry) ActualState(serial string) PrivacyState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.records[serial]; ok {
		return rec.PrivacyState
	}

	return PrivacyOff
}

// List returns all known records ordered by serial.
func (r *Registry) List() []DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DeviceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })

	return out
}

// Subscribe registers a callback for every published state change and
// returns the matching unsubscribe function.
func (r *Registry) Subscribe(fn Subscriber) func() {
	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

// Notify publishes a state change to all subscribers, stamping an event ID
// and timestamp when the caller left them empty.
func (r *Registry) Notify(change StateChange) {
	if change.EventID == "" {
		change.EventID = uuid.NewString()
	}

	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	r.subMu.RLock()
	subs := make([]Subscriber, 0, len(r.subs))

	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subMu.RUnlock()

	r.logger.Debug().
		Str("serial", change.Serial).
		Str("old", string(change.OldState)).
		Str("new", string(change.NewState)).
		Str("source", string(change.Source)).
		Msg("Publishing state change")

	for _, fn := range subs {
		fn(change)
	}
}
