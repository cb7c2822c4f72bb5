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

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

func TestNotifyStateChangePostsTextMessage(t *testing.T) {
	var payload wecomMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWeCom(srv.Client(), srv.URL, logger.NewTestLogger())

	err := notifier.NotifyStateChange(context.Background(), registry.StateChange{
		Serial:    "AAA111",
		Name:      "Porch",
		OldState:  registry.PrivacyOff,
		NewState:  registry.PrivacyOn,
		Source:    registry.SourcePoll,
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "text", payload.MsgType)
	assert.Contains(t, payload.Text.Content, "Porch")
	assert.Contains(t, payload.Text.Content, "AAA111")
	assert.Contains(t, payload.Text.Content, "off -> on")
	assert.Contains(t, payload.Text.Content, "2026-03-14 09:26:53")
}

func TestNotifyStateChangeRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	notifier := NewWeCom(srv.Client(), srv.URL, logger.NewTestLogger())

	err := notifier.NotifyStateChange(context.Background(), registry.StateChange{Serial: "AAA111"})
	require.ErrorIs(t, err, errUnexpectedStatusCode)
}
