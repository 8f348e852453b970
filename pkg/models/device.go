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

// Package models provides data models for the camwatch monitoring service.
package models

import (
	"strings"
	"time"
)

// DeviceStatus is the coarse liveness verdict for a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusUnknown DeviceStatus = "unknown"
)

// DeviceKind distinguishes recorders from the cameras they front.
type DeviceKind string

const (
	KindNVR    DeviceKind = "nvr"
	KindCamera DeviceKind = "camera"
)

// DeviceRecord is one roster entry, camera or NVR. Records are created when
// the roster is loaded or when discovery finds an unlisted device, and are
// mutated in place on every probe cycle. There is no automatic eviction.
type DeviceRecord struct {
	Kind       DeviceKind   `json:"kind"`
	Name       string       `json:"name"`
	IP         string       `json:"ip"`
	Status     DeviceStatus `json:"status"`
	Method     string       `json:"method,omitempty"`
	Model      string       `json:"model,omitempty"`
	Channel    int          `json:"channel,omitempty"`
	Port       int          `json:"port,omitempty"`
	ParentNVR  string       `json:"parent_nvr,omitempty"`
	Subnet     string       `json:"subnet,omitempty"`
	Gateway    string       `json:"gateway,omitempty"`
	LastSeen   time.Time    `json:"last_seen,omitempty"`
	PreviousIP string       `json:"previous_ip,omitempty"`
}

// Addressable reports whether the record can be targeted at all. At least one
// of IP or name must be present.
func (d *DeviceRecord) Addressable() bool {
	return strings.TrimSpace(d.IP) != "" || strings.TrimSpace(d.Name) != ""
}

// MatchesName compares display names case-insensitively, ignoring
// surrounding whitespace.
func (d *DeviceRecord) MatchesName(name string) bool {
	return d.Name != "" && strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name))
}

// Orphaned reports whether a camera references an NVR missing from the
// roster. Dangling parent references are tolerated, not repaired.
func (d *DeviceRecord) Orphaned(nvrNames map[string]struct{}) bool {
	if d.Kind != KindCamera || d.ParentNVR == "" {
		return false
	}

	_, ok := nvrNames[strings.ToLower(strings.TrimSpace(d.ParentNVR))]

	return !ok
}

// StatusLabel renders status plus the probing method for display,
// e.g. "Online (SADP)".
func (d *DeviceRecord) StatusLabel() string {
	label := "Unknown"

	switch d.Status {
	case StatusOnline:
		label = "Online"
	case StatusOffline:
		label = "Offline"
	case StatusUnknown:
	}

	if d.Method != "" {
		return label + " (" + d.Method + ")"
	}

	return label
}

// DiscoveredDevice is one reply from a SADP scan, best-effort parsed.
type DiscoveredDevice struct {
	IP         string `json:"ip"`
	Model      string `json:"model,omitempty"`
	Serial     string `json:"serial,omitempty"`
	MAC        string `json:"mac,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// CameraRecord is one camera as reported by an NVR management API,
// normalized across the ISAPI/CGI/JSON response shapes.
type CameraRecord struct {
	Name    string `json:"name"`
	IP      string `json:"ip"`
	Status  string `json:"status"`
	Channel int    `json:"channel,omitempty"`
	Port    int    `json:"port,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Online interprets the normalized status string of a vendor-reported camera.
func (c *CameraRecord) Online() bool {
	switch strings.ToLower(c.Status) {
	case "online", "active", "1", "true", "recording":
		return true
	default:
		return false
	}
}

// DeviceInfo is a device's self-description, used to detect IP drift between
// the roster and what the device itself reports.
type DeviceInfo struct {
	IP    string `json:"ip,omitempty"`
	Model string `json:"model,omitempty"`
}

// Credential is one username/password pair for a device's management API.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
