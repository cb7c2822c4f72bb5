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

package bridge

import (
	"errors"
	"os"
	"time"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
)

const (
	defaultPollIntervalSeconds = 20

	// maxPollIntervalSeconds caps the interval so downstream
	// home-automation hubs see state within their freshness budget.
	maxPollIntervalSeconds = 30

	defaultListenAddr = ":8090"
)

var (
	errMissingAppKey    = errors.New("app_key is required")
	errMissingAppSecret = errors.New("app_secret is required")
)

// Config is the bridge service configuration.
type Config struct {
	AppKey              string        `json:"app_key"`
	AppSecret           string        `json:"app_secret"`
	BaseURL             string        `json:"base_url,omitempty"`
	Devices             []string      `json:"devices"`
	PollIntervalSeconds int           `json:"poll_interval_seconds"`
	WebhookURL          string        `json:"webhook_url,omitempty"`
	ListenAddr          string        `json:"listen_addr"`
	Logging             logger.Config `json:"logging"`
}

// Validate normalizes defaults and checks required fields. Credentials
// may come from the EZVIZ_APP_KEY and EZVIZ_APP_SECRET environment
// variables instead of the config file.
func (c *Config) Validate() error {
	if c.AppKey == "" {
		c.AppKey = os.Getenv("EZVIZ_APP_KEY")
	}

	if c.AppSecret == "" {
		c.AppSecret = os.Getenv("EZVIZ_APP_SECRET")
	}

	if c.AppKey == "" {
		return errMissingAppKey
	}

	if c.AppSecret == "" {
		return errMissingAppSecret
	}

	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = defaultPollIntervalSeconds
	}

	if c.PollIntervalSeconds > maxPollIntervalSeconds {
		c.PollIntervalSeconds = maxPollIntervalSeconds
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	return nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
