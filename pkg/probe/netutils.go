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

package probe

import (
	"net"
	"time"
)

// ExpandCIDR expands a CIDR notation into a slice of IP addresses.
// Skips network and broadcast addresses for non-/32 networks.
func ExpandCIDR(cidr string) ([]string, error) {
	baseIP, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}

	var ips []string

	for currentIP := baseIP.Mask(ipnet.Mask); ipnet.Contains(currentIP); incIP(currentIP) {
		ones, _ := ipnet.Mask.Size()
		if currentIP.To4() != nil && ones != 32 {
			if currentIP.Equal(ipnet.IP) || isBroadcast(currentIP, ipnet) {
				continue
			}
		}

		ips = append(ips, currentIP.String())
	}

	return ips, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// isBroadcast checks if an IP is the broadcast address of a network.
func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	broadcast := make(net.IP, len(ip))
	for i := range ip {
		broadcast[i] = ipnet.IP[i] | ^ipnet.Mask[i]
	}

	return ip.Equal(broadcast)
}

// HostCandidates expands subnet into at most budget host addresses. A bare
// IP is treated as its /24. Scan duration scales with budget x timeout in
// the worst case; the budget caps that, nothing else does.
func HostCandidates(subnet string, budget int) ([]string, error) {
	if subnet == "" {
		return nil, ErrInvalidSubnet
	}

	if ip := net.ParseIP(subnet); ip != nil {
		subnet = subnet + "/24"
	}

	hosts, err := ExpandCIDR(subnet)
	if err != nil {
		return nil, err
	}

	if budget > 0 && len(hosts) > budget {
		hosts = hosts[:budget]
	}

	return hosts, nil
}

// LocalIPForTarget returns the local source address the OS would use to
// reach dest. A UDP "connect" never sends a packet; it only resolves the
// route. Used to bind the discovery socket on multi-homed hosts.
func LocalIPForTarget(dest string) (string, error) {
	if dest == "" {
		return "", ErrEmptyAddress
	}

	conn, err := net.DialTimeout("udp", net.JoinHostPort(dest, "80"), time.Second)
	if err != nil {
		return "", err
	}

	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", ErrNoLocalIP
	}

	return addr.IP.String(), nil
}
