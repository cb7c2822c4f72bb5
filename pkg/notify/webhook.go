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

// Package notify sends best-effort webhook notifications for privacy
// state transitions.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

const webhookTimeout = 10 * time.Second

var errUnexpectedStatusCode = errors.New("unexpected status code")

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// wecomMessage is the WeCom bot text message format.
type wecomMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// WeComNotifier posts privacy transitions to a WeCom bot webhook.
// Delivery is fire-and-forget; failures are reported to the caller for
// logging only.
type WeComNotifier struct {
	httpClient HTTPClient
	webhookURL string
	logger     logger.Logger
}

// NewWeCom creates a notifier. Passing nil selects http.DefaultClient.
func NewWeCom(client HTTPClient, webhookURL string, log logger.Logger) *WeComNotifier {
	if client == nil {
		client = http.DefaultClient
	}

	return &WeComNotifier{
		httpClient: client,
		webhookURL: webhookURL,
		logger:     log.WithComponent("notify"),
	}
}

// NotifyStateChange posts a human-readable message describing the
// transition.
func (n *WeComNotifier) NotifyStateChange(ctx context.Context, change registry.StateChange) error {
	var msg wecomMessage

	msg.MsgType = "text"
	msg.Text.Content = fmt.Sprintf(
		"EZVIZ privacy mode change\nDevice: %s\nSerial: %s\nState: %s -> %s\nTime: %s",
		change.Name,
		change.Serial,
		change.OldState,
		change.NewState,
		change.Timestamp.Format("2006-01-02 15:04:05"),
	)

	body, err := json.Marshal(&msg)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	n.logger.Info().Str("serial", change.Serial).Msg("Sent webhook notification")

	return nil
}
