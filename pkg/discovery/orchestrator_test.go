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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/camwatch/pkg/hikapi"
	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/probe"
)

type fakeSADP struct {
	checkCalls int
	online     bool
	model      string
	discovered []models.DiscoveredDevice
}

func (f *fakeSADP) Check(_ context.Context, _ string, _ time.Duration) (bool, string) {
	f.checkCalls++
	return f.online, f.model
}

func (f *fakeSADP) Discover(_ context.Context, _ probe.DiscoverOptions) []models.DiscoveredDevice {
	return f.discovered
}

type fakeVendor struct {
	infoCalls     int
	info          models.DeviceInfo
	infoErr       error
	channels      []models.CameraRecord
	channelMethod string
	channelsErr   error
	hinted        []models.CameraRecord
	login         hikapi.LoginResult
	loginErr      error
}

func (f *fakeVendor) FetchChannels(_ context.Context, _ string, _ []models.Credential) ([]models.CameraRecord, string, error) {
	return f.channels, f.channelMethod, f.channelsErr
}

func (f *fakeVendor) FetchModelHintChannels(_ context.Context, _, _ string, _ []models.Credential) []models.CameraRecord {
	return f.hinted
}

func (f *fakeVendor) FetchDeviceInfo(_ context.Context, _ string, _ []models.Credential) (models.DeviceInfo, error) {
	f.infoCalls++
	return f.info, f.infoErr
}

func (f *fakeVendor) TestLogin(_ context.Context, _ string, _ models.Credential) (hikapi.LoginResult, error) {
	return f.login, f.loginErr
}

type fakeTCP struct {
	probeCalls int
	openPorts  map[int]bool
}

func (f *fakeTCP) Probe(_ context.Context, _ string, port int) bool {
	f.probeCalls++
	return f.openPorts[port]
}

type fakePing struct {
	pingCalls int
	alive     bool
}

func (f *fakePing) Ping(_ context.Context, _ string) bool {
	f.pingCalls++
	return f.alive
}

func newTestOrchestrator(sadp *fakeSADP, vendor *fakeVendor, tcp *fakeTCP, ping *fakePing) *Orchestrator {
	return NewOrchestrator(sadp, vendor, tcp, ping, models.CascadeConfig{}, 40, logger.NewTestLogger())
}

var testCreds = []models.Credential{{Username: "admin", Password: "Kkcctv1245"}}

func TestCheckDeviceSADPShortCircuits(t *testing.T) {
	sadp := &fakeSADP{online: true, model: "DS-2CD2043"}
	vendor := &fakeVendor{}
	tcp := &fakeTCP{}
	ping := &fakePing{}

	verdict := newTestOrchestrator(sadp, vendor, tcp, ping).CheckDevice(context.Background(), "10.0.0.5", testCreds)

	assert.True(t, verdict.Online)
	assert.Equal(t, models.MethodSADP, verdict.Method)
	assert.Equal(t, "DS-2CD2043", verdict.Detail("model"))

	// Later steps are never reached on a SADP hit.
	assert.Zero(t, vendor.infoCalls)
	assert.Zero(t, tcp.probeCalls)
	assert.Zero(t, ping.pingCalls)
}

func TestCheckDeviceVendorStepReportsDrift(t *testing.T) {
	sadp := &fakeSADP{}
	vendor := &fakeVendor{info: models.DeviceInfo{Model: "DS-7732NXI-K4", IP: "10.0.0.20"}}
	tcp := &fakeTCP{}
	ping := &fakePing{}

	verdict := newTestOrchestrator(sadp, vendor, tcp, ping).CheckDevice(context.Background(), "10.0.0.2", testCreds)

	assert.True(t, verdict.Online)
	assert.Equal(t, models.MethodISAPI, verdict.Method)
	assert.Equal(t, "10.0.0.20", verdict.Detail("reported_ip"))
	assert.Zero(t, tcp.probeCalls)
}

func TestCheckDeviceVendorSkippedWithoutCreds(t *testing.T) {
	sadp := &fakeSADP{}
	vendor := &fakeVendor{info: models.DeviceInfo{Model: "DS-7732NXI-K4"}}
	tcp := &fakeTCP{openPorts: map[int]bool{554: true}}
	ping := &fakePing{}

	verdict := newTestOrchestrator(sadp, vendor, tcp, ping).CheckDevice(context.Background(), "10.0.0.2", nil)

	assert.True(t, verdict.Online)
	assert.Equal(t, models.MethodTCP, verdict.Method)
	assert.Zero(t, vendor.infoCalls)
	assert.Equal(t, "554", verdict.Detail("open_port"))
}

func TestCheckDeviceFallsThroughToPing(t *testing.T) {
	sadp := &fakeSADP{}
	vendor := &fakeVendor{infoErr: hikapi.ErrNotReachable}
	tcp := &fakeTCP{}
	ping := &fakePing{alive: true}

	verdict := newTestOrchestrator(sadp, vendor, tcp, ping).CheckDevice(context.Background(), "10.0.0.5", testCreds)

	assert.True(t, verdict.Online)
	assert.Equal(t, models.MethodPing, verdict.Method)
	assert.Equal(t, 2, tcp.probeCalls, "both default ports probed before ping")
}

func TestCheckDeviceOfflineVerdictIsIdempotent(t *testing.T) {
	sadp := &fakeSADP{}
	vendor := &fakeVendor{infoErr: hikapi.ErrNotReachable}
	tcp := &fakeTCP{}
	ping := &fakePing{}
	orch := newTestOrchestrator(sadp, vendor, tcp, ping)

	first := orch.CheckDevice(context.Background(), "10.0.0.5", testCreds)
	second := orch.CheckDevice(context.Background(), "10.0.0.5", testCreds)

	assert.False(t, first.Online)
	assert.Equal(t, models.MethodNone, first.Method)
	assert.Equal(t, first, second)
}

func TestCheckDeviceEmptyIP(t *testing.T) {
	orch := newTestOrchestrator(&fakeSADP{}, &fakeVendor{}, &fakeTCP{}, &fakePing{})

	verdict := orch.CheckDevice(context.Background(), "", testCreds)

	assert.False(t, verdict.Online)
	assert.Equal(t, models.MethodNone, verdict.Method)
}

func TestCheckCameraOnNVR(t *testing.T) {
	vendor := &fakeVendor{channels: []models.CameraRecord{
		{Name: "Cam1", IP: "10.0.0.5", Status: "online"},
		{Name: "Cam2", IP: "10.0.0.6", Status: "offline"},
	}}
	orch := newTestOrchestrator(&fakeSADP{}, vendor, &fakeTCP{}, &fakePing{})

	online, found := orch.CheckCameraOnNVR(context.Background(), "10.0.0.2", testCreds, "10.0.0.5")
	assert.True(t, online)
	assert.True(t, found)

	online, found = orch.CheckCameraOnNVR(context.Background(), "10.0.0.2", testCreds, "10.0.0.6")
	assert.False(t, online)
	assert.True(t, found)

	_, found = orch.CheckCameraOnNVR(context.Background(), "10.0.0.2", testCreds, "10.0.0.77")
	assert.False(t, found)
}

func TestFetchNVRCamerasVendorFirst(t *testing.T) {
	vendor := &fakeVendor{
		channels:      []models.CameraRecord{{Name: "Cam1", IP: "10.0.0.5", Status: "online"}},
		channelMethod: "ISAPI /ISAPI/ContentMgmt/InputProxy/channels",
	}
	orch := newTestOrchestrator(&fakeSADP{}, vendor, &fakeTCP{}, &fakePing{})

	cams, method, err := orch.FetchNVRCameras(context.Background(), "10.0.0.2", testCreds)
	require.NoError(t, err)

	assert.Equal(t, "ISAPI /ISAPI/ContentMgmt/InputProxy/channels", method)
	require.Len(t, cams, 1)
}

func TestFetchNVRCamerasSADPSweepFallback(t *testing.T) {
	sadp := &fakeSADP{discovered: []models.DiscoveredDevice{
		{IP: "10.0.0.2"}, // the NVR itself is excluded
		{IP: "10.0.0.5", Model: "DS-2CD2043", DeviceName: "Front Gate"},
		{IP: "10.0.0.6"},
	}}
	vendor := &fakeVendor{channelsErr: hikapi.ErrNoUsableRecords}
	orch := newTestOrchestrator(sadp, vendor, &fakeTCP{}, &fakePing{})

	cams, method, err := orch.FetchNVRCameras(context.Background(), "10.0.0.2", testCreds)
	require.NoError(t, err)

	assert.Equal(t, models.MethodSADP, method)
	require.Len(t, cams, 2)
	assert.Equal(t, "Front Gate", cams[0].Name)
	assert.True(t, cams[0].Online())
	assert.Equal(t, "Camera 2", cams[1].Name)
}

func TestFetchNVRCamerasModelHintLastResort(t *testing.T) {
	vendor := &fakeVendor{
		channelsErr: hikapi.ErrNoUsableRecords,
		info:        models.DeviceInfo{Model: "DS-7732NXI-K4"},
		hinted:      []models.CameraRecord{{Name: "Camera 10.0.0.5", IP: "10.0.0.5"}},
	}
	orch := newTestOrchestrator(&fakeSADP{}, vendor, &fakeTCP{}, &fakePing{})

	cams, method, err := orch.FetchNVRCameras(context.Background(), "10.0.0.2", testCreds)
	require.NoError(t, err)

	assert.Equal(t, "Model endpoints (DS-7732NXI-K4)", method)
	require.Len(t, cams, 1)
}

func TestFetchNVRCamerasAllSourcesEmpty(t *testing.T) {
	vendor := &fakeVendor{channelsErr: hikapi.ErrNoUsableRecords, infoErr: hikapi.ErrNotReachable}
	orch := newTestOrchestrator(&fakeSADP{}, vendor, &fakeTCP{}, &fakePing{})

	_, _, err := orch.FetchNVRCameras(context.Background(), "10.0.0.2", testCreds)
	assert.ErrorIs(t, err, ErrNoCamerasFound)
}

func TestTestLoginPassesThroughVendorResult(t *testing.T) {
	vendor := &fakeVendor{login: hikapi.LoginResult{OK: true, SelfIP: "10.0.0.9"}}
	orch := newTestOrchestrator(&fakeSADP{online: true}, vendor, &fakeTCP{}, &fakePing{})

	ok, selfIP, err := orch.TestLogin(context.Background(), "10.0.0.5",
		models.Credential{Username: "admin", Password: "Kkcctv1245"})
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, "10.0.0.9", selfIP)
}
