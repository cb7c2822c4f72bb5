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
	"sync"
	"time"
)

// DefaultTokenMargin is the minimum remaining validity a token must have
// before EnsureValid hands it out.
const DefaultTokenMargin = 30 * time.Minute

// TokenManager acquires and refreshes the access token. The mutex wraps the
// whole check-then-refresh sequence, so concurrent callers that observe an
// expired token block on a single in-flight refresh instead of each issuing
// their own network call.
type TokenManager struct {
	httpClient HTTPClient
	tokenURL   string
	appKey     string
	appSecret  string
	margin     time.Duration
	timeout    time.Duration
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a token manager for the given application
// credentials. margin <= 0 selects DefaultTokenMargin.
func NewTokenManager(client HTTPClient, baseURL, appKey, appSecret string, margin time.Duration) *TokenManager {
	if margin <= 0 {
		margin = DefaultTokenMargin
	}

	return &TokenManager{
		httpClient: client,
		tokenURL:   baseURL + epGetToken,
		appKey:     appKey,
		appSecret:  appSecret,
		margin:     margin,
		timeout:    defaultTimeout,
		now:        time.Now,
	}
}

// EnsureValid returns the cached token when it is still valid for at least
// the safety margin, refreshing it otherwise.
func (m *TokenManager) EnsureValid(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiresAt.Add(-m.margin)) {
		return m.token, nil
	}

	return m.refreshLocked(ctx)
}

// ForceRefresh unconditionally fetches a new token.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshLocked(ctx)
}

// refreshLocked performs the token request. The caller must hold m.mu.
// On failure the previous token is left in place.
func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("appKey", m.appKey)
	data.Set("appSecret", m.appSecret)

	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, m.tokenURL,
		strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w: %d", ErrAuthFailed, errUnexpectedStatusCode, resp.StatusCode)
	}

	var env envelope

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrAuthFailed, errInvalidResponse, err)
	}

	if env.Code != codeOK {
		return "", fmt.Errorf("%w: code %s: %s", ErrAuthFailed, env.Code, env.Msg)
	}

	var tok tokenData

	if err := json.Unmarshal(env.Data, &tok); err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrAuthFailed, errInvalidResponse, err)
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, errTokenMissing)
	}

	m.token = tok.AccessToken
	m.expiresAt = time.UnixMilli(tok.ExpireTime)

	return m.token, nil
}
