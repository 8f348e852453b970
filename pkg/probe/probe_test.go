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
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/camwatch/pkg/logger"
)

func TestPingArgs(t *testing.T) {
	assert.Equal(t, []string{"-n", "1", "10.0.0.5"}, pingArgs("windows", "10.0.0.5"))
	assert.Equal(t, []string{"-c", "1", "10.0.0.5"}, pingArgs("linux", "10.0.0.5"))
	assert.Equal(t, []string{"-c", "1", "10.0.0.5"}, pingArgs("darwin", "10.0.0.5"))
}

func TestExpandCIDR(t *testing.T) {
	ips, err := ExpandCIDR("192.168.1.0/30")
	require.NoError(t, err)

	// Network and broadcast addresses are excluded.
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, ips)
}

func TestExpandCIDRSingleHost(t *testing.T) {
	ips, err := ExpandCIDR("192.168.1.5/32")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.5"}, ips)
}

func TestExpandCIDRInvalid(t *testing.T) {
	_, err := ExpandCIDR("not-a-cidr")
	assert.Error(t, err)
}

func TestHostCandidatesBareIPBecomesSlash24(t *testing.T) {
	hosts, err := HostCandidates("10.0.0.2", 40)
	require.NoError(t, err)

	require.Len(t, hosts, 40)
	assert.Equal(t, "10.0.0.1", hosts[0])
	assert.Equal(t, "10.0.0.40", hosts[39])
}

func TestHostCandidatesBudgetZeroMeansUnbounded(t *testing.T) {
	hosts, err := HostCandidates("10.0.0.0/28", 0)
	require.NoError(t, err)
	assert.Len(t, hosts, 14)
}

func TestHostCandidatesEmptySubnet(t *testing.T) {
	_, err := HostCandidates("", 40)
	assert.ErrorIs(t, err, ErrInvalidSubnet)
}

func TestTCPProberOpenAndClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)

	prober := NewTCPProber(time.Second, logger.NewTestLogger())

	assert.True(t, prober.Probe(context.Background(), "127.0.0.1", addr.Port))

	// The listener owns the only open port; probing it after close fails.
	require.NoError(t, ln.Close())
	assert.False(t, prober.Probe(context.Background(), "127.0.0.1", addr.Port))
}

func TestSADPCheckAgainstFakeDevice(t *testing.T) {
	device, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer device.Close()

	addr, ok := device.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	reply := []byte{0x00, 0x00, 0x00, 0x00}
	reply = append(reply, []byte(`<?xml version="1.0"?><ProbeMatch><DeviceType>NVR</DeviceType><DeviceDescription>model DS-7732NXI-K4</DeviceDescription><DeviceModel>DS-7732NXI-K4</DeviceModel><MAC>aa:bb:cc:dd:ee:ff</MAC></ProbeMatch>`)...)

	go func() {
		buf := make([]byte, 2048)

		n, peer, readErr := device.ReadFromUDP(buf)
		if readErr != nil || n == 0 {
			return
		}

		_, _ = device.WriteToUDP(reply, peer)
	}()

	sadp := &SADP{port: addr.Port, logger: logger.NewTestLogger()}

	online, model := sadp.Check(context.Background(), "127.0.0.1", 2*time.Second)
	assert.True(t, online)
	assert.Equal(t, "DS-7732NXI-K4", model)
}

func TestSADPCheckTimeout(t *testing.T) {
	// A bound but silent socket: the probe lands, no reply ever comes.
	silent, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer silent.Close()

	addr, ok := silent.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	sadp := &SADP{port: addr.Port, logger: logger.NewTestLogger()}

	online, _ := sadp.Check(context.Background(), "127.0.0.1", 200*time.Millisecond)
	assert.False(t, online)
}

func TestParseSADPReply(t *testing.T) {
	data := []byte("\x00\x00\x00\x38" + `<?xml version="1.0"?><ProbeMatch><DeviceModel>DS-2CD2043</DeviceModel><DeviceName>Front Gate</DeviceName><SerialNumber>SN123</SerialNumber><IPv4Address>10.0.0.5</IPv4Address><MAC>aa:bb:cc:dd:ee:ff</MAC></ProbeMatch>`)

	dev, ok := parseSADPReply(data, "10.0.0.99")
	require.True(t, ok)

	assert.Equal(t, "DS-2CD2043", dev.Model)
	assert.Equal(t, "Front Gate", dev.DeviceName)
	assert.Equal(t, "SN123", dev.Serial)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", dev.MAC)

	// The address the device reports wins over the packet source.
	assert.Equal(t, "10.0.0.5", dev.IP)
}

func TestParseSADPReplyNonXML(t *testing.T) {
	_, ok := parseSADPReply([]byte("garbage datagram"), "10.0.0.5")
	assert.False(t, ok)
}

func TestParseSADPReplyKeepsSourceIPWithoutAddressField(t *testing.T) {
	data := []byte(`<?xml version="1.0"?><ProbeMatch><DeviceModel>DS-2CD2043</DeviceModel></ProbeMatch>`)

	dev, ok := parseSADPReply(data, "10.0.0.7")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.7", dev.IP)
}

func TestLocalIPForTargetEmpty(t *testing.T) {
	_, err := LocalIPForTarget("")
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestSADPRequestShape(t *testing.T) {
	// Eight binary header bytes, then the XML command.
	require.Greater(t, len(sadpRequest), 8)
	assert.Equal(t, byte(0x38), sadpRequest[7])
	assert.Equal(t, "<?xml", string(sadpRequest[8:13]))
}
