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

package ezviz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/logger"
)

// DefaultBaseURL is the EZVIZ Cloud China open API endpoint.
const DefaultBaseURL = "https://open.ys7.com/api"

const (
	epGetToken      = "/lapp/token/get"
	epDeviceList    = "/lapp/device/list"
	epDeviceInfo    = "/lapp/device/info"
	epPrivacyStatus = "/lapp/device/scene/switch/status"
	epPrivacySet    = "/lapp/device/scene/switch/set"
	epCapture       = "/lapp/device/capture"
	epLiveAddress   = "/lapp/live/address/get"
)

const (
	codeOK           = "200"
	codeTokenExpired = "10002"

	userAgent = "ezviz-bridge/1.0"

	// defaultTimeout applies to bulk calls; commandTimeout to
	// state-changing set/status calls, which must fail fast because the
	// downstream home-automation bridge has its own tight response budget.
	defaultTimeout = 8 * time.Second
	commandTimeout = 5 * time.Second

	defaultRetries       = 2
	defaultMaxConcurrent = 5
)

// defaultBackoff is indexed by retry number and clamped at the last entry.
var defaultBackoff = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

// requestEngine issues authenticated form-encoded calls with bounded
// concurrency, bounded retries and token-expiry recovery.
type requestEngine struct {
	httpClient HTTPClient
	tokens     TokenProvider
	baseURL    string
	sem        *semaphore.Weighted
	retries    int
	backoff    []time.Duration
	logger     logger.Logger
}

func newRequestEngine(client HTTPClient, tokens TokenProvider, baseURL string, retries, maxConcurrent int, log logger.Logger) *requestEngine {
	if retries < 0 {
		retries = defaultRetries
	}

	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &requestEngine{
		httpClient: client,
		tokens:     tokens,
		baseURL:    baseURL,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		retries:    retries,
		backoff:    defaultBackoff,
		logger:     log,
	}
}

// do runs one logical API call. Retryable failures are a non-200 HTTP
// status, a transport error or timeout, and the token-expired application
// code inside an otherwise successful response; that last case forces a
// token refresh before the retry, because expiry only surfaces after a
// round trip. The retry loop is bounded; the attempt count and backoff
// table are first-class parameters.
func (e *requestEngine) do(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) (json.RawMessage, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer e.sem.Release(1)

	var lastErr error

	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			wait := e.backoff[min(attempt-1, len(e.backoff)-1)]
			e.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Int("max_attempts", e.retries+1).
				Dur("backoff", wait).
				Err(lastErr).
				Msg("Retrying request")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrRequestFailed, ctx.Err())
			case <-time.After(wait):
			}
		}

		data, err := e.attempt(ctx, endpoint, params, timeout)
		if err == nil {
			return data, nil
		}

		lastErr = err
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, endpoint, lastErr)
}

// attempt performs a single round trip.
func (e *requestEngine) attempt(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) (json.RawMessage, error) {
	form := url.Values{}

	for k, vs := range params {
		for _, v := range vs {
			form[k] = append(form[k], v)
		}
	}

	token, err := e.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	form.Set("accessToken", token)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.baseURL+endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	var env envelope

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	if env.Code == codeTokenExpired {
		e.logger.Info().Str("endpoint", endpoint).Msg("Access token expired, refreshing")

		if _, refreshErr := e.tokens.ForceRefresh(ctx); refreshErr != nil {
			e.logger.Error().Err(refreshErr).Msg("Token refresh after expiry failed")
		}

		return nil, errTokenExpired
	}

	if env.Code != codeOK {
		return nil, fmt.Errorf("%w: code %s: %s", errAPIError, env.Code, env.Msg)
	}

	return env.Data, nil
}
