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
	"net/http"
)

//go:generate mockgen -destination=mock_ezviz.go -package=ezviz github.com/ezviz-bridge/ezviz-bridge/pkg/ezviz HTTPClient,TokenProvider,DeviceAPI

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenProvider manages the bearer credential used on every
// authenticated call.
type TokenProvider interface {
	// EnsureValid returns a token guaranteed non-expired for at least the
	// configured safety margin.
	EnsureValid(ctx context.Context) (string, error)

	// ForceRefresh unconditionally fetches a new token.
	ForceRefresh(ctx context.Context) (string, error)
}

// DeviceAPI is the typed facade over the EZVIZ Cloud endpoints consumed by
// the poller, the command pipelines and the presentation layer.
type DeviceAPI interface {
	ListDevices(ctx context.Context) ([]Device, error)
	GetDeviceInfo(ctx context.Context, serial string) (Device, error)

	// GetPrivacyStatus reports whether privacy mode is enabled. A backend
	// error is treated as "feature unsupported" and reported as off.
	GetPrivacyStatus(ctx context.Context, serial string) bool

	// SetPrivacy issues the set command and a confirmatory read. It reports
	// false only when the set call itself fails; a verification mismatch
	// still counts as success because firmware may lag beyond the
	// verification window.
	SetPrivacy(ctx context.Context, serial string, enable bool) bool

	// GetSnapshot captures a still image. The returned string is the
	// Content-Type of the image.
	GetSnapshot(ctx context.Context, serial string) ([]byte, string, error)

	// GetStreamURL issues a live stream URL for the given protocol
	// (ezopen, rtsp or hls) and quality.
	GetStreamURL(ctx context.Context, serial, protocol string, quality int) (string, error)
}
