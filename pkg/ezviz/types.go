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

import "encoding/json"

// envelope is the common response wrapper returned by every EZVIZ Cloud
// endpoint. Code "200" denotes success.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// tokenData is the payload of the token acquisition endpoint.
type tokenData struct {
	AccessToken string `json:"accessToken"`
	ExpireTime  int64  `json:"expireTime"` // ms since epoch
}

// privacyStatusData is the payload of the privacy status endpoint.
// Enable is 0 (off) or 1 (on).
type privacyStatusData struct {
	Enable int `json:"enable"`
}

// liveAddressData is the payload of the live address endpoint.
type liveAddressData struct {
	URL string `json:"url"`
}

// Device is a camera as reported by the device list endpoint. The backend
// attaches model-specific attributes, so the full object is retained in Raw
// alongside the fields the bridge needs by name.
type Device struct {
	Serial string
	Name   string
	Raw    map[string]interface{}
}

// UnmarshalJSON keeps the raw attribute map and lifts the well-known fields.
func (d *Device) UnmarshalJSON(b []byte) error {
	raw := make(map[string]interface{})
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.Raw = raw

	if s, ok := raw["deviceSerial"].(string); ok {
		d.Serial = s
	}

	if n, ok := raw["deviceName"].(string); ok {
		d.Name = n
	}

	return nil
}

// deviceListWrapped is one of the two device list response shapes.
type deviceListWrapped struct {
	DeviceInfos []Device `json:"deviceInfos"`
}
