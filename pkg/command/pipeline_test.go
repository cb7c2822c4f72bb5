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

package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

const waitFor = 2 * time.Second

func newTestManager(t *testing.T, api ezviz.DeviceAPI) (*Manager, *registry.Registry) {
	t.Helper()

	reg := registry.New(logger.NewTestLogger())
	mgr := NewManager(context.Background(), api, reg, Config{
		VerifyAttempts: 1,
		VerifyDelay:    time.Millisecond,
	}, logger.NewTestLogger())

	t.Cleanup(func() {
		_ = mgr.Stop(context.Background())
	})

	return mgr, reg
}

func TestToggleFlipsDisplayedStateImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).Return(true)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true)

	mgr, reg := newTestManager(t, api)

	events := make(chan registry.StateChange, 4)

	reg.Subscribe(func(change registry.StateChange) {
		events <- change
	})

	require.NoError(t, mgr.Toggle("AAA111", true))

	// The optimistic state is visible before any remote call resolves.
	assert.Equal(t, registry.PrivacyOn, mgr.DisplayedState("AAA111"))

	select {
	case change := <-events:
		assert.Equal(t, registry.SourceCommand, change.Source)
		assert.Equal(t, registry.PrivacyOff, change.OldState)
		assert.Equal(t, registry.PrivacyOn, change.NewState)
	case <-time.After(waitFor):
		t.Fatal("no optimistic state change published")
	}

	// Convergence persists the state for the next poll pass.
	require.Eventually(t, func() bool {
		return reg.ActualState("AAA111") == registry.PrivacyOn
	}, waitFor, time.Millisecond)
}

func TestDisplayedStateFollowsPollWhenIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).Return(true)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true)

	mgr, reg := newTestManager(t, api)

	require.NoError(t, mgr.Toggle("AAA111", true))

	require.Eventually(t, func() bool {
		return reg.ActualState("AAA111") == registry.PrivacyOn &&
			mgr.DisplayedState("AAA111") == registry.PrivacyOn
	}, waitFor, time.Millisecond)

	// Privacy mode flipped off externally (vendor app); a poll pass
	// records the new truth and the idle pipeline must follow it.
	change := reg.Observe("AAA111", "Porch", nil, registry.PrivacyOff)
	require.NotNil(t, change)

	assert.Equal(t, registry.PrivacyOff, mgr.DisplayedState("AAA111"))
}

func TestToggleRevertsWhenCommandFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).Return(false)

	mgr, reg := newTestManager(t, api)

	events := make(chan registry.StateChange, 4)

	reg.Subscribe(func(change registry.StateChange) {
		events <- change
	})

	require.NoError(t, mgr.Toggle("AAA111", true))

	// First the optimistic flip, then the bounce back.
	var got []registry.StateChange

	for len(got) < 2 {
		select {
		case change := <-events:
			got = append(got, change)
		case <-time.After(waitFor):
			t.Fatalf("expected 2 state changes, got %d", len(got))
		}
	}

	assert.Equal(t, registry.SourceCommand, got[0].Source)
	assert.Equal(t, registry.SourceRevert, got[1].Source)
	assert.Equal(t, registry.PrivacyOn, got[1].OldState)
	assert.Equal(t, registry.PrivacyOff, got[1].NewState)

	require.Eventually(t, func() bool {
		return mgr.DisplayedState("AAA111") == registry.PrivacyOff
	}, waitFor, time.Millisecond)
}

func TestToggleRevertsWhenVerificationNeverConverges(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).Return(true)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(false)

	mgr, _ := newTestManager(t, api)

	require.NoError(t, mgr.Toggle("AAA111", true))

	require.Eventually(t, func() bool {
		return mgr.DisplayedState("AAA111") == registry.PrivacyOff
	}, waitFor, time.Millisecond)
}

func TestTogglesExecuteInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	done := make(chan struct{})

	gomock.InOrder(
		api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).Return(true),
		api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true),
		api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", false).Return(true),
		api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").DoAndReturn(
			func(context.Context, string) bool {
				close(done)
				return false
			}),
	)

	mgr, _ := newTestManager(t, api)

	require.NoError(t, mgr.Toggle("AAA111", true))
	require.NoError(t, mgr.Toggle("AAA111", false))

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("queued commands did not run in order")
	}

	// Final revision wins.
	require.Eventually(t, func() bool {
		return mgr.DisplayedState("AAA111") == registry.PrivacyOff
	}, waitFor, time.Millisecond)
}

func TestDevicesToggleIndependently(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	// AAA111's command hangs until released; BBB222 must not wait on it.
	release := make(chan struct{})

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", true).DoAndReturn(
		func(ctx context.Context, _ string, _ bool) bool {
			select {
			case <-release:
			case <-ctx.Done():
			}

			return true
		})
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true).AnyTimes()

	api.EXPECT().SetPrivacy(gomock.Any(), "BBB222", true).Return(true)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "BBB222").Return(true)

	mgr, reg := newTestManager(t, api)
	defer close(release)

	require.NoError(t, mgr.Toggle("AAA111", true))
	require.NoError(t, mgr.Toggle("BBB222", true))

	require.Eventually(t, func() bool {
		return reg.ActualState("BBB222") == registry.PrivacyOn
	}, waitFor, time.Millisecond, "BBB222 must converge while AAA111 is blocked")
}

func TestQueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})

	var enteredOnce sync.Once

	api.EXPECT().SetPrivacy(gomock.Any(), "AAA111", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ bool) bool {
			enteredOnce.Do(func() { close(entered) })

			select {
			case <-release:
			case <-ctx.Done():
			}

			return false
		}).AnyTimes()

	reg := registry.New(logger.NewTestLogger())
	mgr := NewManager(context.Background(), api, reg, Config{
		VerifyAttempts: 1,
		VerifyDelay:    time.Millisecond,
		QueueSize:      1,
	}, logger.NewTestLogger())

	t.Cleanup(func() {
		close(release)
		_ = mgr.Stop(context.Background())
	})

	// First toggle occupies the consumer.
	require.NoError(t, mgr.Toggle("AAA111", true))

	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("consumer never picked up the first command")
	}

	// Second fills the queue, third overflows.
	require.NoError(t, mgr.Toggle("AAA111", false))

	events := make(chan registry.StateChange, 4)

	unsubscribe := reg.Subscribe(func(change registry.StateChange) {
		events <- change
	})
	defer unsubscribe()

	require.ErrorIs(t, mgr.Toggle("AAA111", true), ErrQueueFull)

	// The rejected command must leave no trace: the displayed state is
	// still the last accepted toggle and nothing was published.
	assert.Equal(t, registry.PrivacyOff, mgr.DisplayedState("AAA111"))
	assert.Empty(t, events)
}

func TestToggleAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	reg := registry.New(logger.NewTestLogger())
	mgr := NewManager(context.Background(), api, reg, Config{}, logger.NewTestLogger())

	require.NoError(t, mgr.Stop(context.Background()))
	require.ErrorIs(t, mgr.Toggle("AAA111", true), ErrStopped)
}
