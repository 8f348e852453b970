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

import (
	"encoding/json"
	"time"
)

// Duration unmarshals from a JSON duration string ("1.5s", "800ms").
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string

	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if s == "" {
		*d = Duration(0)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)

	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// AsDuration returns the wrapped time.Duration, falling back when unset.
func (d Duration) AsDuration(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}

	return time.Duration(d)
}

// CascadeConfig holds the per-step timeouts of the discovery cascade. Each
// step has its own budget; the worst case per target is their sum.
type CascadeConfig struct {
	SADPTimeout Duration `json:"sadp_timeout,omitempty"`
	HTTPTimeout Duration `json:"http_timeout,omitempty"`
	TCPTimeout  Duration `json:"tcp_timeout,omitempty"`
	PingTimeout Duration `json:"ping_timeout,omitempty"`
	TCPPorts    []int    `json:"tcp_ports,omitempty"`
}

// MonitorConfig is the top-level service configuration.
type MonitorConfig struct {
	RosterPath       string        `json:"roster_path"`
	HistoryPath      string        `json:"history_path,omitempty"`
	CredsPath        string        `json:"creds_path,omitempty"`
	Interval         Duration      `json:"interval,omitempty"`
	FleetConcurrency int           `json:"fleet_concurrency,omitempty"`
	NVRConcurrency   int           `json:"nvr_concurrency,omitempty"`
	ScanBudget       int           `json:"scan_budget,omitempty"`
	Cascade          CascadeConfig `json:"cascade,omitempty"`
	// ModelEndpoints maps an NVR model string to extra channel-list paths
	// tried before the built-in hints for that model.
	ModelEndpoints map[string][]string `json:"model_endpoints,omitempty"`
	Logging        *LogConfig          `json:"logging,omitempty"`
}

// LogConfig mirrors pkg/logger.Config without importing it, so models stays
// a leaf package.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Debug  bool   `json:"debug,omitempty"`
	Output string `json:"output,omitempty"`
}
