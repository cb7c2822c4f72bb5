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

// Package ezviz provides a client for the EZVIZ Cloud China open API with
// token lifecycle management, bounded retries and privacy-mode operations.
package ezviz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bluenviron/gortsplib/v5/pkg/base"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
)

const (
	defaultChannel = 1

	// applyDelay gives device firmware time to apply a privacy change
	// before the confirmatory read. Kept short so a set call still
	// acknowledges within the bridge command budget.
	applyDelay = 200 * time.Millisecond

	// streamExpireSeconds is the validity requested for issued stream URLs.
	streamExpireSeconds = 86400

	snapshotRetries = 1
	snapshotBackoff = 500 * time.Millisecond
)

// ClientConfig holds the tunables of the API client. Zero values select
// the defaults.
type ClientConfig struct {
	BaseURL        string        `json:"base_url"`
	AppKey         string        `json:"app_key"`
	AppSecret      string        `json:"app_secret"`
	Retries        int           `json:"retries"`
	MaxConcurrent  int           `json:"max_concurrent"`
	TokenMargin    time.Duration `json:"-"`
	Timeout        time.Duration `json:"-"`
	CommandTimeout time.Duration `json:"-"`
}

func (c *ClientConfig) withDefaults() ClientConfig {
	out := *c

	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}

	if out.Retries == 0 {
		out.Retries = defaultRetries
	}

	if out.MaxConcurrent == 0 {
		out.MaxConcurrent = defaultMaxConcurrent
	}

	if out.Timeout == 0 {
		out.Timeout = defaultTimeout
	}

	if out.CommandTimeout == 0 {
		out.CommandTimeout = commandTimeout
	}

	return out
}

// Client is the typed facade over the EZVIZ Cloud endpoints. It implements
// DeviceAPI.
type Client struct {
	cfg        ClientConfig
	httpClient HTTPClient
	tokens     TokenProvider
	engine     *requestEngine
	logger     logger.Logger
}

var _ DeviceAPI = (*Client)(nil)

// NewClient creates an API client. httpClient may be shared across
// components; passing nil selects http.DefaultClient.
func NewClient(cfg *ClientConfig, httpClient HTTPClient, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resolved := cfg.withDefaults()
	clog := log.WithComponent("ezviz")
	tokens := NewTokenManager(httpClient, resolved.BaseURL, resolved.AppKey, resolved.AppSecret, resolved.TokenMargin)

	return &Client{
		cfg:        resolved,
		httpClient: httpClient,
		tokens:     tokens,
		engine:     newRequestEngine(httpClient, tokens, resolved.BaseURL, resolved.Retries, resolved.MaxConcurrent, clog),
		logger:     clog,
	}
}

// CheckCredentials verifies the application credentials by forcing a token
// fetch. Used at startup so bad credentials fail setup instead of the
// first poll.
func (c *Client) CheckCredentials(ctx context.Context) error {
	_, err := c.tokens.ForceRefresh(ctx)
	return err
}

// ListDevices fetches the account's devices. The backend returns either a
// bare list or an object with a deviceInfos field; both are normalized. An
// unrecognized shape yields an empty list and a warning instead of failing
// the caller's whole cycle.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	params := url.Values{}
	params.Set("pageStart", "0")
	params.Set("pageSize", "50")

	data, err := c.engine.do(ctx, epDeviceList, params, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}

	var devices []Device

	if err := json.Unmarshal(data, &devices); err == nil {
		return devices, nil
	}

	var wrapped deviceListWrapped

	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.DeviceInfos != nil {
		return wrapped.DeviceInfos, nil
	}

	c.logger.Warn().RawJSON("data", data).Msg("Unexpected device list format")

	return []Device{}, nil
}

// GetDeviceInfo fetches the attributes of a single device.
func (c *Client) GetDeviceInfo(ctx context.Context, serial string) (Device, error) {
	params := url.Values{}
	params.Set("deviceSerial", serial)

	data, err := c.engine.do(ctx, epDeviceInfo, params, c.cfg.Timeout)
	if err != nil {
		return Device{}, err
	}

	var dev Device

	if err := json.Unmarshal(data, &dev); err != nil {
		return Device{}, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	return dev, nil
}

// GetPrivacyStatus reports whether privacy mode is enabled. Not every
// model supports the feature, and an unsupported device is observably the
// same as "off", so a backend error folds into false.
func (c *Client) GetPrivacyStatus(ctx context.Context, serial string) bool {
	params := url.Values{}
	params.Set("deviceSerial", serial)
	params.Set("channelNo", strconv.Itoa(defaultChannel))

	data, err := c.engine.do(ctx, epPrivacyStatus, params, c.cfg.CommandTimeout)
	if err != nil {
		c.logger.Warn().Str("serial", serial).Err(err).
			Msg("Device may not support privacy mode")
		return false
	}

	var status privacyStatusData

	if err := json.Unmarshal(data, &status); err != nil {
		c.logger.Warn().Str("serial", serial).Err(err).
			Msg("Unexpected privacy status payload")
		return false
	}

	return status.Enable == 1
}

// SetPrivacy switches privacy mode and issues a confirmatory read after a
// short firmware-apply delay. A verification mismatch or error still
// reports success: returning failure here would force a visible UI revert
// even though the command likely succeeded and the next poll corrects any
// drift.
func (c *Client) SetPrivacy(ctx context.Context, serial string, enable bool) bool {
	params := url.Values{}
	params.Set("deviceSerial", serial)
	params.Set("channelNo", strconv.Itoa(defaultChannel))

	if enable {
		params.Set("enable", "1")
	} else {
		params.Set("enable", "0")
	}

	c.logger.Debug().Str("serial", serial).Bool("enable", enable).Msg("Setting privacy mode")

	if _, err := c.engine.do(ctx, epPrivacySet, params, c.cfg.CommandTimeout); err != nil {
		c.logger.Error().Str("serial", serial).Err(err).Msg("Failed to set privacy mode")
		return false
	}

	select {
	case <-ctx.Done():
		return true
	case <-time.After(applyDelay):
	}

	if got := c.GetPrivacyStatus(ctx, serial); got != enable {
		c.logger.Warn().
			Str("serial", serial).
			Bool("expected", enable).
			Bool("got", got).
			Msg("Privacy mode verification mismatch, assuming eventual convergence")
	}

	return true
}

// GetSnapshot captures a still image. The capture endpoint takes the token
// as a query parameter and answers an error JSON body with an image
// content type missing, so a non-image response carrying the token-expired
// code triggers one re-authentication with a rebuilt URL.
func (c *Client) GetSnapshot(ctx context.Context, serial string) ([]byte, string, error) {
	token, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, "", err
	}

	var lastErr error

	for attempt := 0; attempt <= snapshotRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", fmt.Errorf("%w: %w", ErrRequestFailed, ctx.Err())
			case <-time.After(snapshotBackoff):
			}
		}

		body, contentType, err := c.fetchSnapshot(ctx, serial, token)
		if err == nil {
			return body, contentType, nil
		}

		lastErr = err

		if strings.Contains(err.Error(), codeTokenExpired) {
			c.logger.Info().Str("serial", serial).Msg("Token expired during capture, refreshing")

			if token, err = c.tokens.ForceRefresh(ctx); err != nil {
				return nil, "", err
			}
		}
	}

	return nil, "", fmt.Errorf("%w: %w", ErrRequestFailed, lastErr)
}

func (c *Client) fetchSnapshot(ctx context.Context, serial, token string) ([]byte, string, error) {
	captureURL := fmt.Sprintf("%s%s?accessToken=%s&deviceSerial=%s&channelNo=%d",
		c.cfg.BaseURL, epCapture, url.QueryEscape(token), url.QueryEscape(serial), defaultChannel)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, captureURL, http.NoBody)
	if err != nil {
		return nil, "", err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")

	if !strings.Contains(contentType, "image") {
		text, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("%w: %s", errInvalidSnapshot, string(text))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return body, contentType, nil
}

// GetStreamURL issues a live stream URL. RTSP URLs are validated before
// being handed to consumers, since downstream players fail much less
// legibly on a malformed address.
func (c *Client) GetStreamURL(ctx context.Context, serial, protocol string, quality int) (string, error) {
	if protocol == "" {
		protocol = "ezopen"
	}

	params := url.Values{}
	params.Set("deviceSerial", serial)
	params.Set("channelNo", strconv.Itoa(defaultChannel))
	params.Set("protocol", protocol)
	params.Set("quality", strconv.Itoa(quality))
	params.Set("expireTime", strconv.Itoa(streamExpireSeconds))

	data, err := c.engine.do(ctx, epLiveAddress, params, c.cfg.Timeout)
	if err != nil {
		return "", err
	}

	var addr liveAddressData

	if err := json.Unmarshal(data, &addr); err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	if addr.URL == "" {
		return "", errEmptyStreamURL
	}

	if protocol == "rtsp" {
		if _, err := base.ParseURL(addr.URL); err != nil {
			return "", fmt.Errorf("%w: %w", errInvalidResponse, err)
		}
	}

	c.logger.Debug().Str("serial", serial).Str("protocol", protocol).Msg("Issued stream URL")

	return addr.URL, nil
}
