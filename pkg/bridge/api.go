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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ezviz-bridge/ezviz-bridge/pkg/command"
	"github.com/ezviz-bridge/ezviz-bridge/pkg/registry"
)

// deviceView is one entry in the device listing: the cached registry
// record merged with the optimistic displayed state.
type deviceView struct {
	Serial       string                 `json:"serial"`
	Name         string                 `json:"name"`
	PrivacyState registry.PrivacyState  `json:"privacy_state"`
	Info         map[string]interface{} `json:"info,omitempty"`
}

// privacyRequest is the body of a privacy toggle call.
type privacyRequest struct {
	Enable bool `json:"enable"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (b *Bridge) routes() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", b.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/snapshot", b.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/stream", b.handleStreamURL).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/privacy", b.handleSetPrivacy).Methods(http.MethodPut)
	api.HandleFunc("/events", b.hub.handle).Methods(http.MethodGet)

	return r
}

// handleListDevices serves the cached device list. Privacy states come
// from the command pipeline so in-flight toggles show immediately.
func (b *Bridge) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	records := b.registry.List()

	views := make([]deviceView, 0, len(records))
	for _, rec := range records {
		views = append(views, deviceView{
			Serial:       rec.Serial,
			Name:         rec.Name,
			PrivacyState: b.commands.DisplayedState(rec.Serial),
			Info:         rec.Info,
		})
	}

	b.writeJSON(w, http.StatusOK, views)
}

// handleSnapshot fetches a still image from the camera and streams it
// through unmodified.
func (b *Bridge) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]

	image, contentType, err := b.client.GetSnapshot(r.Context(), serial)
	if err != nil {
		b.logger.Error().Err(err).Str("serial", serial).Msg("Snapshot request failed")
		b.writeError(w, http.StatusBadGateway, "snapshot unavailable")

		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(image); err != nil {
		b.logger.Error().Err(err).Str("serial", serial).Msg("Failed to write snapshot response")
	}
}

// handleStreamURL resolves a live stream address for the device. The
// protocol defaults to ezopen; quality defaults to HD.
func (b *Bridge) handleStreamURL(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]
	protocol := r.URL.Query().Get("protocol")

	quality := 1

	if q := r.URL.Query().Get("quality"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			b.writeError(w, http.StatusBadRequest, "invalid quality")
			return
		}

		quality = parsed
	}

	url, err := b.client.GetStreamURL(r.Context(), serial, protocol, quality)
	if err != nil {
		b.logger.Error().Err(err).Str("serial", serial).Msg("Stream address request failed")
		b.writeError(w, http.StatusBadGateway, "stream address unavailable")

		return
	}

	b.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleSetPrivacy enqueues an optimistic privacy toggle and returns 202:
// the displayed state has already flipped, convergence happens in the
// background.
func (b *Bridge) handleSetPrivacy(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]

	var req privacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := b.commands.Toggle(serial, req.Enable); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, command.ErrQueueFull) {
			status = http.StatusTooManyRequests
		}

		b.writeError(w, status, err.Error())

		return
	}

	b.writeJSON(w, http.StatusAccepted, map[string]string{
		"serial": serial,
		"state":  string(registry.PrivacyStateFromBool(req.Enable)),
	})
}

func (b *Bridge) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (b *Bridge) writeError(w http.ResponseWriter, status int, msg string) {
	b.writeJSON(w, status, errorResponse{Error: msg})
}
