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

// Package config loads service configuration from local JSON files.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/camwatch/pkg/models"
)

var errInvalidConfigPtr = errors.New("config must be a non-nil pointer")

// Defaults applied by ApplyDefaults when the file leaves fields unset.
const (
	DefaultInterval         = 5 * time.Minute
	DefaultFleetConcurrency = 60
	DefaultNVRConcurrency   = 6
	DefaultScanBudget       = 40

	DefaultSADPTimeout = 1 * time.Second
	DefaultHTTPTimeout = 2 * time.Second
	DefaultTCPTimeout  = 1 * time.Second
	DefaultPingTimeout = 2 * time.Second
)

// FileConfigLoader loads configuration from a local JSON file.
type FileConfigLoader struct{}

// Load implements ConfigLoader by reading and unmarshaling a JSON file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if dst == nil {
		return errInvalidConfigPtr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	err = json.Unmarshal(data, dst)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}

// LoadMonitorConfig reads the service config and fills in defaults.
func LoadMonitorConfig(ctx context.Context, path string) (*models.MonitorConfig, error) {
	var cfg models.MonitorConfig

	loader := &FileConfigLoader{}
	if err := loader.Load(ctx, path, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *models.MonitorConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = models.Duration(DefaultInterval)
	}

	if cfg.FleetConcurrency == 0 {
		cfg.FleetConcurrency = DefaultFleetConcurrency
	}

	if cfg.NVRConcurrency == 0 {
		cfg.NVRConcurrency = DefaultNVRConcurrency
	}

	if cfg.ScanBudget == 0 {
		cfg.ScanBudget = DefaultScanBudget
	}

	if cfg.Cascade.SADPTimeout == 0 {
		cfg.Cascade.SADPTimeout = models.Duration(DefaultSADPTimeout)
	}

	if cfg.Cascade.HTTPTimeout == 0 {
		cfg.Cascade.HTTPTimeout = models.Duration(DefaultHTTPTimeout)
	}

	if cfg.Cascade.TCPTimeout == 0 {
		cfg.Cascade.TCPTimeout = models.Duration(DefaultTCPTimeout)
	}

	if cfg.Cascade.PingTimeout == 0 {
		cfg.Cascade.PingTimeout = models.Duration(DefaultPingTimeout)
	}

	if len(cfg.Cascade.TCPPorts) == 0 {
		cfg.Cascade.TCPPorts = []int{80, 554}
	}
}
