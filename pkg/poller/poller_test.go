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

package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

var errBackendDown = errors.New("backend down")

// recordingNotifier captures webhook deliveries.
type recordingNotifier struct {
	changes []registry.StateChange
	err     error
}

func (n *recordingNotifier) NotifyStateChange(_ context.Context, change registry.StateChange) error {
	n.changes = append(n.changes, change)
	return n.err
}

func newTestPoller(t *testing.T, api ezviz.DeviceAPI, notifier Notifier, devices []string) (*Poller, *registry.Registry) {
	t.Helper()

	reg := registry.New(logger.NewTestLogger())
	p := New(api, reg, notifier, Config{Devices: devices}, logger.NewTestLogger())

	return p, reg
}

func TestPollEmptyAllowListIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)

	// No expectations: the backend must not be touched at all.
	api := ezviz.NewMockDeviceAPI(ctrl)

	p, _ := newTestPoller(t, api, nil, nil)

	require.NoError(t, p.poll(context.Background()))
}

func TestPollSkipsDevicesOutsideAllowList(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	api.EXPECT().ListDevices(gomock.Any()).Return([]ezviz.Device{
		{Serial: "AAA111", Name: "Porch"},
		{Serial: "BBB222", Name: "Hall"},
		{Serial: "", Name: "ghost"},
	}, nil)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(false)

	p, reg := newTestPoller(t, api, nil, []string{"AAA111"})

	require.NoError(t, p.poll(context.Background()))

	_, tracked := reg.Get("AAA111")
	assert.True(t, tracked)

	_, tracked = reg.Get("BBB222")
	assert.False(t, tracked, "devices outside the allow-list must not enter the registry")
}

func TestPollPublishesTransitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	devices := []ezviz.Device{{Serial: "AAA111", Name: "Porch"}}

	api.EXPECT().ListDevices(gomock.Any()).Return(devices, nil).Times(2)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(false)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true)

	notifier := &recordingNotifier{}
	p, reg := newTestPoller(t, api, notifier, []string{"AAA111"})

	var events []registry.StateChange

	reg.Subscribe(func(change registry.StateChange) {
		events = append(events, change)
	})

	// First pass discovers the device silently, second observes the flip.
	require.NoError(t, p.poll(context.Background()))
	require.NoError(t, p.poll(context.Background()))

	require.Len(t, events, 1)
	assert.Equal(t, registry.PrivacyOff, events[0].OldState)
	assert.Equal(t, registry.PrivacyOn, events[0].NewState)
	assert.Equal(t, registry.SourcePoll, events[0].Source)
	assert.NotEmpty(t, events[0].EventID)

	require.Len(t, notifier.changes, 1)
	assert.Equal(t, "AAA111", notifier.changes[0].Serial)
}

func TestPollKeepsCacheOnListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	devices := []ezviz.Device{{Serial: "AAA111", Name: "Porch"}}

	api.EXPECT().ListDevices(gomock.Any()).Return(devices, nil)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true)
	api.EXPECT().ListDevices(gomock.Any()).Return(nil, errBackendDown)

	p, reg := newTestPoller(t, api, nil, []string{"AAA111"})

	require.NoError(t, p.poll(context.Background()))
	require.ErrorIs(t, p.poll(context.Background()), errBackendDown)

	// Stale data stays available to readers.
	assert.Equal(t, registry.PrivacyOn, reg.ActualState("AAA111"))
}

func TestPollContinuesAfterNotifierFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := ezviz.NewMockDeviceAPI(ctrl)

	devices := []ezviz.Device{
		{Serial: "AAA111", Name: "Porch"},
		{Serial: "BBB222", Name: "Hall"},
	}

	api.EXPECT().ListDevices(gomock.Any()).Return(devices, nil).Times(2)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(false)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "BBB222").Return(false)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "AAA111").Return(true)
	api.EXPECT().GetPrivacyStatus(gomock.Any(), "BBB222").Return(true)

	notifier := &recordingNotifier{err: errBackendDown}
	p, reg := newTestPoller(t, api, notifier, []string{"AAA111", "BBB222"})

	require.NoError(t, p.poll(context.Background()))
	require.NoError(t, p.poll(context.Background()), "a failed webhook must not abort the pass")

	assert.Len(t, notifier.changes, 2, "both transitions must still be attempted")
	assert.Equal(t, registry.PrivacyOn, reg.ActualState("AAA111"))
	assert.Equal(t, registry.PrivacyOn, reg.ActualState("BBB222"))
}
