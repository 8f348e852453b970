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

package hikapi

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/clbanning/mxj"

	"github.com/carverauto/camwatch/pkg/models"
)

// LoginResult is the outcome of a login test against a device.
type LoginResult struct {
	OK bool
	// SelfIP is the address the device reports for itself, for drift
	// detection. Falls back to the probed address when authentication
	// worked but no endpoint disclosed one.
	SelfIP string
}

// TestLogin verifies a credential against a device and extracts its
// self-reported IP. Endpoints are tried in fixed order: the JSON system-info
// pair, the web root, then the legacy CGI dump. Any 200 proves the
// credential even when no IP can be extracted.
func (c *Client) TestLogin(ctx context.Context, ip string, cred models.Credential) (LoginResult, error) {
	base := "http://" + ip
	cands := BasicOnly([]models.Credential{cred})

	authOK := false

	for _, path := range SystemInfoEndpoints {
		resp, err := c.TryEndpoint(ctx, base, path, cands)
		if err != nil {
			continue
		}

		authOK = true

		if selfIP := selfIPFromJSON(resp.Body); selfIP != "" {
			return LoginResult{OK: true, SelfIP: selfIP}, nil
		}
	}

	// Web root: a quick auth check, with a best-effort IP scrape from
	// whatever the interface returns.
	if resp, err := c.TryEndpoint(ctx, base, "/", cands); err == nil {
		authOK = true

		if selfIP := selfIPFromJSON(resp.Body); selfIP != "" {
			return LoginResult{OK: true, SelfIP: selfIP}, nil
		}

		for _, found := range scrapeIPs(resp.Body) {
			if found != ip {
				return LoginResult{OK: true, SelfIP: found}, nil
			}
		}
	}

	if resp, err := c.TryEndpoint(ctx, base, LegacyCGISystemInfo, cands); err == nil {
		authOK = true

		if !strings.Contains(strings.ToLower(string(resp.Body)), "error") {
			if selfIP := selfIPFromCGI(resp.Body); selfIP != "" {
				return LoginResult{OK: true, SelfIP: selfIP}, nil
			}
		}
	}

	if authOK {
		return LoginResult{OK: true, SelfIP: ip}, nil
	}

	return LoginResult{}, ErrAllAuthFailed
}

// FetchDeviceInfo retrieves a device's self-description (model, address),
// trying ISAPI XML before the JSON info endpoints.
func (c *Client) FetchDeviceInfo(ctx context.Context, ip string, creds []models.Credential) (models.DeviceInfo, error) {
	base := "http://" + ip
	cands := Candidates(creds)

	for _, path := range DeviceInfoEndpoints {
		resp, err := c.TryEndpoint(ctx, base, path, cands)
		if err != nil {
			continue
		}

		info := models.DeviceInfo{}

		var data map[string]interface{}
		if jsonErr := json.Unmarshal(resp.Body, &data); jsonErr == nil {
			info.Model = firstString(data, "model", "deviceModel")
			info.IP = selfIPFromJSON(resp.Body)
		} else if mv, xmlErr := mxj.NewMapXml(resp.Body); xmlErr == nil {
			m := map[string]interface{}(mv)
			info.Model = findText(m, "model")

			if info.Model == "" {
				info.Model = findText(m, "Model")
			}

			info.IP = findText(m, "ipAddress")
		}

		if info.Model != "" || info.IP != "" {
			return info, nil
		}
	}

	return models.DeviceInfo{}, ErrNotReachable
}

// selfIPFromJSON digs the device's own address out of a JSON info blob:
// ip, ipAddress, or network.ip.
func selfIPFromJSON(body []byte) string {
	var data map[string]interface{}

	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}

	if ip := firstString(data, "ip", "ipAddress"); ip != "" {
		return ip
	}

	if network, ok := data["network"].(map[string]interface{}); ok {
		return firstString(network, "ip")
	}

	return ""
}

// selfIPFromCGI scans key=value lines for an address field.
func selfIPFromCGI(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "ipaddr") && !strings.Contains(lower, "ip=") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		if ipPattern.MatchString(value) {
			return value
		}
	}

	return ""
}
