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

// Package discovery runs the multi-protocol fallback cascade that decides
// whether a device is reachable, via which method, and at what address. One
// orchestrator instance is safe to invoke concurrently for different
// targets; it holds no shared mutable state.
package discovery

import (
	"context"
	"strconv"
	"time"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/probe"
)

// Orchestrator tries each discovery method for one target in fixed priority
// order, short-circuiting on the first success:
//
//  1. SADP UDP discovery (fastest, most informative when supported)
//  2. vendor HTTP endpoint cascade (richer data)
//  3. raw TCP probe on well-known ports
//  4. ICMP ping (binary reachability only)
//
// Failures inside a step degrade to the next step; nothing propagates.
type Orchestrator struct {
	sadp       UDPDiscoverer
	vendor     VendorClient
	tcp        PortProber
	ping       Pinger
	cfg        models.CascadeConfig
	scanBudget int
	logger     logger.Logger
}

func NewOrchestrator(
	sadp UDPDiscoverer,
	vendor VendorClient,
	tcp PortProber,
	ping Pinger,
	cfg models.CascadeConfig,
	scanBudget int,
	log logger.Logger,
) *Orchestrator {
	if len(cfg.TCPPorts) == 0 {
		cfg.TCPPorts = []int{80, 554}
	}

	return &Orchestrator{
		sadp:       sadp,
		vendor:     vendor,
		tcp:        tcp,
		ping:       ping,
		cfg:        cfg,
		scanBudget: scanBudget,
		logger:     log,
	}
}

// CheckDevice runs the full cascade against one address. The verdict's
// Details carry whatever the winning step produced and are consumed for
// display only.
func (o *Orchestrator) CheckDevice(ctx context.Context, ip string, creds []models.Credential) models.Verdict {
	if ip == "" {
		return models.Verdict{Online: false, Method: models.MethodNone}
	}

	if online, model := o.sadp.Check(ctx, ip, o.cfg.SADPTimeout.AsDuration(time.Second)); online {
		details := map[string]interface{}{}
		if model != "" {
			details["model"] = model
		}

		return models.Verdict{Online: true, Method: models.MethodSADP, Details: details}
	}

	if len(creds) > 0 {
		if info, err := o.vendor.FetchDeviceInfo(ctx, ip, creds); err == nil {
			details := map[string]interface{}{}
			if info.Model != "" {
				details["model"] = info.Model
			}

			if info.IP != "" && info.IP != ip {
				details["reported_ip"] = info.IP
			}

			return models.Verdict{Online: true, Method: models.MethodISAPI, Details: details}
		}
	}

	for _, port := range o.cfg.TCPPorts {
		if o.tcp.Probe(ctx, ip, port) {
			return models.Verdict{
				Online:  true,
				Method:  models.MethodTCP,
				Details: map[string]interface{}{"open_port": strconv.Itoa(port)},
			}
		}
	}

	if o.ping.Ping(ctx, ip) {
		return models.Verdict{
			Online:  true,
			Method:  models.MethodPing,
			Details: map[string]interface{}{"note": "Responds to ping"},
		}
	}

	return models.Verdict{
		Online:  false,
		Method:  models.MethodNone,
		Details: map[string]interface{}{"note": "No response"},
	}
}

// CheckCameraOnNVR asks the owning NVR whether a camera is live by fetching
// its channel roster and matching the camera's address. The second return
// distinguishes "listed but offline" from "not listed at all".
func (o *Orchestrator) CheckCameraOnNVR(ctx context.Context, nvrIP string, creds []models.Credential, cameraIP string) (online, found bool) {
	cams, _, err := o.vendor.FetchChannels(ctx, nvrIP, creds)
	if err != nil {
		return false, false
	}

	for i := range cams {
		if cams[i].IP == cameraIP {
			return cams[i].Online(), true
		}
	}

	return false, false
}

// FetchNVRCameras retrieves an NVR's camera roster: the vendor endpoint
// cascade first, then a SADP sweep of the NVR's subnet, then model-specific
// endpoint hints when the NVR's model is known. Returns the records, the
// method that produced them, and an error only when every source came up
// empty.
func (o *Orchestrator) FetchNVRCameras(ctx context.Context, nvrIP string, creds []models.Credential) ([]models.CameraRecord, string, error) {
	cams, method, err := o.vendor.FetchChannels(ctx, nvrIP, creds)
	if err == nil && len(cams) > 0 {
		return cams, method, nil
	}

	// Best-effort model detection feeds the hint table below.
	var model string
	if info, infoErr := o.vendor.FetchDeviceInfo(ctx, nvrIP, creds); infoErr == nil {
		model = info.Model
	}

	localIP, _ := probe.LocalIPForTarget(nvrIP)

	devices := o.sadp.Discover(ctx, probe.DiscoverOptions{
		Timeout:          o.cfg.SADPTimeout.AsDuration(time.Second),
		ScanBudget:       o.scanBudget,
		TargetSubnet:     nvrIP,
		PreferredLocalIP: localIP,
	})

	var found []models.CameraRecord

	for _, d := range devices {
		if d.IP == "" || d.IP == nvrIP {
			continue
		}

		name := d.DeviceName
		if name == "" {
			name = d.Model
		}

		if name == "" {
			name = "Camera " + strconv.Itoa(len(found)+1)
		}

		found = append(found, models.CameraRecord{
			Name:   name,
			IP:     d.IP,
			Status: string(models.StatusOnline),
			Model:  d.Model,
		})
	}

	if len(found) > 0 {
		return found, models.MethodSADP, nil
	}

	if model != "" {
		if hinted := o.vendor.FetchModelHintChannels(ctx, nvrIP, model, creds); len(hinted) > 0 {
			return hinted, "Model endpoints (" + model + ")", nil
		}
	}

	return nil, "", ErrNoCamerasFound
}

// TestLogin verifies a credential against a device, preceded by a SADP
// reachability probe whose outcome is informational only: a discovery reply
// proves the device is up even when every HTTP method fails.
func (o *Orchestrator) TestLogin(ctx context.Context, ip string, cred models.Credential) (ok bool, selfIP string, err error) {
	if reachable, _ := o.sadp.Check(ctx, ip, o.cfg.SADPTimeout.AsDuration(time.Second)); reachable {
		o.logger.Debug().Str("ip", ip).Msg("sadp reply before login test")
	}

	result, err := o.vendor.TestLogin(ctx, ip, cred)
	if err != nil {
		return false, "", err
	}

	return result.OK, result.SelfIP, nil
}
