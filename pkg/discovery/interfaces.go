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

package discovery

import (
	"context"
	"time"

	"github.com/carverauto/camwatch/pkg/hikapi"
	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/probe"
)

// UDPDiscoverer is the SADP probe surface the orchestrator needs.
type UDPDiscoverer interface {
	Check(ctx context.Context, ip string, timeout time.Duration) (bool, string)
	Discover(ctx context.Context, opts probe.DiscoverOptions) []models.DiscoveredDevice
}

// PortProber answers raw TCP reachability.
type PortProber interface {
	Probe(ctx context.Context, ip string, port int) bool
}

// Pinger answers ICMP reachability.
type Pinger interface {
	Ping(ctx context.Context, ip string) bool
}

// VendorClient is the HTTP management-API surface the orchestrator needs.
type VendorClient interface {
	FetchChannels(ctx context.Context, nvrIP string, creds []models.Credential) ([]models.CameraRecord, string, error)
	FetchModelHintChannels(ctx context.Context, nvrIP, model string, creds []models.Credential) []models.CameraRecord
	FetchDeviceInfo(ctx context.Context, ip string, creds []models.Credential) (models.DeviceInfo, error)
	TestLogin(ctx context.Context, ip string, cred models.Credential) (hikapi.LoginResult, error)
}
