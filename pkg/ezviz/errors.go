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

import "errors"

var (
	// ErrAuthFailed indicates token acquisition or refresh failed. Fatal
	// during startup; recoverable later by retrying setup.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRequestFailed indicates a backend call failed after exhausting
	// the retry policy.
	ErrRequestFailed = errors.New("request failed")

	errUnexpectedStatusCode = errors.New("unexpected status code")
	errAPIError             = errors.New("API error")
	errTokenExpired         = errors.New("access token expired")
	errTokenMissing         = errors.New("no access token in response")
	errInvalidResponse      = errors.New("invalid response body")
	errInvalidSnapshot      = errors.New("invalid snapshot response")
	errEmptyStreamURL       = errors.New("empty stream URL in response")
)
