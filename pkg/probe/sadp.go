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
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/clbanning/mxj"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

const (
	// SADPPort is the vendor UDP discovery port.
	SADPPort = 33333

	sadpReadBuffer  = 8192
	sadpDrainMargin = 500 * time.Millisecond
)

// sadpRequest is the discovery datagram: a fixed 8-byte binary header
// followed by an XML command body. This is a third-party wire format the
// monitor speaks as a client only; it is not versioned here.
var sadpRequest = append(
	[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x38},
	[]byte(`<?xml version="1.0"?><Command><AccessFlag>1</AccessFlag><Command>GetDeviceInfo</Command></Command>`)...,
)

// SADP speaks the vendor UDP discovery protocol, both unicast (liveness
// check of one address) and broadcast/fanout (subnet discovery).
type SADP struct {
	port   int
	logger logger.Logger
}

func NewSADP(log logger.Logger) *SADP {
	return &SADP{port: SADPPort, logger: log}
}

// DiscoverOptions bounds one discovery pass.
type DiscoverOptions struct {
	// Timeout is the reply collection window.
	Timeout time.Duration
	// ScanBudget caps the number of unicast probes sent beside the
	// broadcast one.
	ScanBudget int
	// TargetSubnet is a CIDR (or bare IP, treated as /24) to fan out into.
	// Empty means broadcast only.
	TargetSubnet string
	// PreferredLocalIP binds the socket so replies land on the interface
	// facing the target.
	PreferredLocalIP string
}

// Check sends one unicast discovery probe and waits for a reply. A device
// answering here is online even when ICMP is filtered. Returns the reported
// model string when the reply carried one.
func (s *SADP) Check(ctx context.Context, ip string, timeout time.Duration) (bool, string) {
	if ip == "" {
		return false, ""
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("sadp socket failed")
		return false, ""
	}

	defer func() { _ = conn.Close() }()

	dst := &net.UDPAddr{IP: net.ParseIP(ip), Port: s.port}
	if dst.IP == nil {
		return false, ""
	}

	if _, err := conn.WriteToUDP(sadpRequest, dst); err != nil {
		s.logger.Debug().Str("ip", ip).Err(err).Msg("sadp send failed")
		return false, ""
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = conn.SetReadDeadline(deadline)

	buf := make([]byte, sadpReadBuffer)

	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		return false, ""
	}

	dev, ok := parseSADPReply(buf[:n], ip)
	if !ok {
		return false, ""
	}

	s.logger.Debug().Str("ip", ip).Str("model", dev.Model).Msg("sadp reply")

	return true, dev.Model
}

// Discover sends a broadcast probe plus at most ScanBudget unicast probes,
// then collects replies for the timeout window. Replies are de-duplicated by
// source IP within one scan; non-XML replies are skipped.
func (s *SADP) Discover(ctx context.Context, opts DiscoverOptions) []models.DiscoveredDevice {
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}

	laddr := &net.UDPAddr{}
	if opts.PreferredLocalIP != "" {
		if ip := net.ParseIP(opts.PreferredLocalIP); ip != nil {
			laddr.IP = ip
		}
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		// Retry on the wildcard address before giving up.
		conn, err = net.ListenUDP("udp4", nil)
		if err != nil {
			s.logger.Error().Err(err).Msg("sadp discover socket failed")
			return nil
		}
	}

	defer func() { _ = conn.Close() }()

	if err := setBroadcast(conn); err != nil {
		s.logger.Debug().Err(err).Msg("sadp broadcast option failed")
	}

	// Broadcast probe first, then the bounded unicast fanout.
	if _, err := conn.WriteToUDP(sadpRequest, &net.UDPAddr{IP: net.IPv4bcast, Port: s.port}); err != nil {
		s.logger.Debug().Err(err).Msg("sadp broadcast send failed")
	}

	if opts.TargetSubnet != "" {
		hosts, err := HostCandidates(opts.TargetSubnet, opts.ScanBudget)
		if err != nil {
			s.logger.Debug().Str("subnet", opts.TargetSubnet).Err(err).Msg("sadp subnet expand failed")
		}

		for _, h := range hosts {
			if ctx.Err() != nil {
				break
			}

			dst := &net.UDPAddr{IP: net.ParseIP(h), Port: s.port}
			if dst.IP == nil {
				continue
			}

			_, _ = conn.WriteToUDP(sadpRequest, dst)
		}
	}

	return s.collectReplies(ctx, conn, opts.Timeout)
}

func (s *SADP) collectReplies(ctx context.Context, conn *net.UDPConn, window time.Duration) []models.DiscoveredDevice {
	deadline := time.Now().Add(window + sadpDrainMargin)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = conn.SetReadDeadline(deadline)

	var results []models.DiscoveredDevice

	seen := make(map[string]struct{})
	buf := make([]byte, sadpReadBuffer)

	for time.Now().Before(deadline) {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}

		src := addr.IP.String()
		if _, dup := seen[src]; dup {
			continue
		}

		seen[src] = struct{}{}

		dev, ok := parseSADPReply(buf[:n], src)
		if !ok {
			continue
		}

		results = append(results, dev)
	}

	s.logger.Debug().Int("devices", len(results)).Msg("sadp discover done")

	return results
}

// parseSADPReply extracts vendor XML fields from a reply datagram. The
// binary header before the XML payload is skipped; tag names vary by
// firmware, so matching is by substring on the leaf tag.
func parseSADPReply(data []byte, srcIP string) (models.DiscoveredDevice, bool) {
	idx := bytes.Index(data, []byte("<?xml"))
	if idx < 0 {
		return models.DiscoveredDevice{}, false
	}

	mv, err := mxj.NewMapXml(data[idx:])
	if err != nil {
		return models.DiscoveredDevice{}, false
	}

	dev := models.DiscoveredDevice{IP: srcIP}

	for _, leaf := range mv.LeafNodes() {
		text, isStr := leaf.Value.(string)
		if !isStr {
			text = fmt.Sprintf("%v", leaf.Value)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		segs := strings.Split(leaf.Path, ".")
		tag := strings.ToLower(segs[len(segs)-1])

		switch {
		case strings.Contains(tag, "model") && dev.Model == "":
			dev.Model = text
		case strings.Contains(tag, "serial"):
			dev.Serial = text
		case strings.Contains(tag, "mac") && dev.MAC == "":
			dev.MAC = text
		case strings.Contains(tag, "device") && strings.Contains(tag, "name") && dev.DeviceName == "":
			dev.DeviceName = text
		case strings.Contains(tag, "ip") && dev.IP == srcIP && net.ParseIP(text) != nil:
			dev.IP = text
		}
	}

	return dev, true
}
