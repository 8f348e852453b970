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

package models

import "time"

// Probe method names as reported in Verdict.Method. These are display
// identifiers for the cascade step that succeeded, not logic switches.
const (
	MethodSADP   = "SADP"
	MethodISAPI  = "ISAPI"
	MethodNVRAPI = "NVR API"
	MethodTCP    = "TCP"
	MethodPing   = "Ping"
	MethodNone   = "All methods"
)

// Verdict is the normalized outcome of one discovery cascade run against a
// single target. Details carries whatever metadata the winning step produced
// (model strings, open ports); it is consumed for display only.
type Verdict struct {
	Online  bool                   `json:"online"`
	Method  string                 `json:"method"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Detail returns a string detail field, or "" when absent.
func (v *Verdict) Detail(key string) string {
	if v.Details == nil {
		return ""
	}

	s, _ := v.Details[key].(string)

	return s
}

// Observation is one discovery result folded into the roster by the
// reconciler. ObservedIP carries a live-reported address when it differs
// from the address the probe was aimed at.
type Observation struct {
	Kind       DeviceKind
	Name       string
	IP         string
	ObservedIP string
	Status     DeviceStatus
	Method     string
	Model      string
	Channel    int
	Port       int
	ParentNVR  string
	SeenAt     time.Time
}

// CheckRun is one persisted batch-check record.
type CheckRun struct {
	RunID      string    `json:"run_id"`
	Generation uint64    `json:"generation"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Targets    int       `json:"targets"`
	Online     int       `json:"online"`
	Offline    int       `json:"offline"`
	Discarded  int       `json:"discarded"`
}
