/*
 * Copyright 2025 Carver Automation Corporation.
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

// Package registry keeps the in-memory device roster and reconciles
// discovery observations into it. All mutation happens behind one lock;
// callers get copies, never aliases into the roster.
package registry

import (
	"strings"
	"sync"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

// Roster is the shared device list. It is a cache of best-effort liveness
// observations, not a system of record: records are replaced wholesale on
// reload and mutated in place on every probe cycle, with no eviction.
type Roster struct {
	mu      sync.RWMutex
	devices []*models.DeviceRecord
	logger  logger.Logger
}

func NewRoster(log logger.Logger) *Roster {
	return &Roster{logger: log}
}

// Load replaces the roster contents, dropping any records discovery had
// grown since the last load.
func (r *Roster) Load(devices []models.DeviceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make([]*models.DeviceRecord, 0, len(devices))

	for i := range devices {
		d := devices[i]
		r.devices = append(r.devices, &d)
	}
}

// Snapshot returns a copy of every record.
func (r *Roster) Snapshot() []models.DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.DeviceRecord, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}

	return out
}

// Len returns the number of records.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// FindByIP returns a copy of the record with this exact address.
func (r *Roster) FindByIP(ip string) (models.DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d := r.findByIPLocked(ip); d != nil {
		return *d, true
	}

	return models.DeviceRecord{}, false
}

// FindByName returns a copy of the first record whose name matches
// case-insensitively.
func (r *Roster) FindByName(name string) (models.DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d := r.findByNameLocked(name); d != nil {
		return *d, true
	}

	return models.DeviceRecord{}, false
}

// Delete removes the record matching by IP or name. Records are only ever
// removed here or by a full reload.
func (r *Roster) Delete(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.devices {
		if d.IP == identity || d.MatchesName(identity) {
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			return true
		}
	}

	return false
}

// NVRNames returns the lowercased names of every NVR record, for orphan
// detection in the display layer.
func (r *Roster) NVRNames() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{})

	for _, d := range r.devices {
		if d.Kind == models.KindNVR && d.Name != "" {
			out[strings.ToLower(strings.TrimSpace(d.Name))] = struct{}{}
		}
	}

	return out
}

// CamerasOf returns copies of the cameras parented to the named NVR.
func (r *Roster) CamerasOf(nvrName string) []models.DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.DeviceRecord

	for _, d := range r.devices {
		if d.Kind == models.KindCamera && strings.EqualFold(strings.TrimSpace(d.ParentNVR), strings.TrimSpace(nvrName)) {
			out = append(out, *d)
		}
	}

	return out
}

// Reconcile folds one observation into the roster:
//
//  1. match by exact IP, then by case-insensitive name
//  2. create a new record when nothing matches
//  3. record IP drift (previous address kept for audit display)
//  4. overwrite status, method, model, channel, port, last-seen
//     unconditionally; last write wins, partial fields are not merged
//  5. set the parent NVR on first observation only
//
// Returns a copy of the resulting record and whether an IP drift was
// recorded. An observation with neither IP nor name is unaddressable and is
// dropped.
func (r *Roster) Reconcile(obs models.Observation) (models.DeviceRecord, bool) {
	if obs.IP == "" && obs.ObservedIP == "" && strings.TrimSpace(obs.Name) == "" {
		r.logger.Warn().Msg("dropping unaddressable observation")
		return models.DeviceRecord{}, false
	}

	newIP := obs.ObservedIP
	if newIP == "" {
		newIP = obs.IP
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.findByIPLocked(newIP)
	if rec == nil && obs.IP != "" {
		rec = r.findByIPLocked(obs.IP)
	}

	if rec == nil {
		rec = r.findByNameLocked(obs.Name)
	}

	if rec == nil {
		kind := obs.Kind
		if kind == "" {
			kind = models.KindCamera
		}

		rec = &models.DeviceRecord{Kind: kind, Name: obs.Name, IP: newIP}
		r.devices = append(r.devices, rec)

		r.logger.Info().Str("name", obs.Name).Str("ip", newIP).Msg("roster grew from discovery")
	}

	drifted := false

	if newIP != "" && rec.IP != "" && rec.IP != newIP {
		rec.PreviousIP = rec.IP
		rec.IP = newIP
		drifted = true

		r.logger.Info().
			Str("name", rec.Name).
			Str("previous_ip", rec.PreviousIP).
			Str("ip", rec.IP).
			Msg("ip drift recorded")
	} else if rec.IP == "" {
		rec.IP = newIP
	}

	rec.Status = obs.Status
	rec.Method = obs.Method
	rec.Model = obs.Model
	rec.Channel = obs.Channel
	rec.Port = obs.Port
	rec.LastSeen = obs.SeenAt

	if rec.ParentNVR == "" && obs.ParentNVR != "" {
		rec.ParentNVR = obs.ParentNVR
	}

	return *rec, drifted
}

func (r *Roster) findByIPLocked(ip string) *models.DeviceRecord {
	if ip == "" {
		return nil
	}

	for _, d := range r.devices {
		if d.IP == ip {
			return d
		}
	}

	return nil
}

func (r *Roster) findByNameLocked(name string) *models.DeviceRecord {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	for _, d := range r.devices {
		if d.MatchesName(name) {
			return d
		}
	}

	return nil
}
