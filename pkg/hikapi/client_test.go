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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

const fakeNVRChannelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<InputProxyChannelList version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
  <InputProxyChannel>
    <id>1</id>
    <name>Front Gate</name>
    <sourceInputPortDescriptor>
      <ipAddress>10.0.0.5</ipAddress>
      <managePortNo>8000</managePortNo>
    </sourceInputPortDescriptor>
    <devIndex>A1</devIndex>
  </InputProxyChannel>
</InputProxyChannelList>`

// fakeNVR accepts exactly one Basic credential on one path and rejects
// everything else the way the real firmware does.
func fakeNVR(t *testing.T, path, username, password, contentType, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="NVR"`)
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func testClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(2*time.Second, logger.NewTestLogger())
}

func TestFetchChannelsISAPIWithBasicAuth(t *testing.T) {
	srv := fakeNVR(t, "/ISAPI/ContentMgmt/InputProxy/channels",
		"admin", "Kkcctv1245", "application/xml", fakeNVRChannelsXML)
	defer srv.Close()

	creds := []models.Credential{
		{Username: "admin", Password: "Kkcctv12345"},
		{Username: "admin", Password: "Kkcctv1245"},
	}

	cams, method, err := testClient(t).FetchChannels(context.Background(), hostOf(srv), creds)
	require.NoError(t, err)

	// The bad default credential is rejected, the second one lands, and
	// the method names the endpoint that answered.
	assert.Equal(t, models.MethodISAPI+" /ISAPI/ContentMgmt/InputProxy/channels", method)
	require.Len(t, cams, 1)
	assert.Equal(t, "Front Gate", cams[0].Name)
	assert.Equal(t, "10.0.0.5", cams[0].IP)
	assert.True(t, cams[0].Online())
}

func TestFetchChannelsFallsBackToDahua(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgi-bin/configManager.cgi" {
			http.NotFound(w, r)
			return
		}

		switch r.URL.Query().Get("name") {
		case "ChannelTitle":
			_, _ = w.Write([]byte("table.ChannelTitle[0].Name=Entrance\r\n"))
		case "RemoteDevice":
			_, _ = w.Write([]byte("table.RemoteDevice[0].Address=10.1.1.10\r\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cams, method, err := testClient(t).FetchChannels(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "x"}})
	require.NoError(t, err)

	assert.Equal(t, "Dahua CGI", method)
	require.Len(t, cams, 1)
	assert.Equal(t, "Entrance", cams[0].Name)
	assert.Equal(t, "10.1.1.10", cams[0].IP)
}

func TestFetchChannelsGenericEndpointServingXML(t *testing.T) {
	srv := fakeNVR(t, "/api/v1/channels", "admin", "secret", "text/xml",
		fakeNVRChannelsXML)
	defer srv.Close()

	cams, method, err := testClient(t).FetchChannels(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "secret"}})
	require.NoError(t, err)

	// Content-Type dispatch picks the XML parser on a nominally JSON path.
	assert.Equal(t, "Generic API /api/v1/channels", method)
	require.Len(t, cams, 1)
	assert.Equal(t, "Front Gate", cams[0].Name)
	assert.True(t, cams[0].Online())
}

func TestFetchChannelsFallsBackToLegacyPlatformDump(t *testing.T) {
	srv := fakeNVR(t, "/cgi-bin/isapi/Platform/systemResources", "admin", "secret",
		"text/xml", `<response><channel><ip>10.2.2.2</ip></channel></response>`)
	defer srv.Close()

	cams, method, err := testClient(t).FetchChannels(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "secret"}})
	require.NoError(t, err)

	assert.Equal(t, "Legacy CGI", method)
	require.Len(t, cams, 1)
	assert.Equal(t, "10.2.2.2", cams[0].IP)
}

func TestFetchChannelsFallsBackToGenericJSON(t *testing.T) {
	srv := fakeNVR(t, "/api/v1/devices", "admin", "secret", "application/json",
		`{"devices":[{"name":"Cam1","ip":"10.0.0.5","status":"online"}]}`)
	defer srv.Close()

	cams, method, err := testClient(t).FetchChannels(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "secret"}})
	require.NoError(t, err)

	assert.Equal(t, "Generic API /api/v1/devices", method)
	require.Len(t, cams, 1)
}

func TestFetchChannelsNoUsableRecords(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := testClient(t).FetchChannels(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "x"}})

	assert.ErrorIs(t, err, ErrNoUsableRecords)
}

func TestTryEndpointExhaustsCandidates(t *testing.T) {
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++

		w.Header().Set("WWW-Authenticate", `Basic realm="NVR"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cands := Candidates([]models.Credential{
		{Username: "admin", Password: "one"},
		{Username: "admin", Password: "two"},
	})

	_, err := testClient(t).TryEndpoint(context.Background(), srv.URL, "/ISAPI/System/deviceInfo", cands)
	assert.ErrorIs(t, err, ErrAllAuthFailed)
	assert.GreaterOrEqual(t, attempts, len(cands))
}

func TestTestLoginExtractsSelfIP(t *testing.T) {
	srv := fakeNVR(t, "/api/v1/system/info", "admin", "Kkcctv1245", "application/json",
		`{"network":{"ip":"10.0.0.99"}}`)
	defer srv.Close()

	result, err := testClient(t).TestLogin(context.Background(), hostOf(srv),
		models.Credential{Username: "admin", Password: "Kkcctv1245"})
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, "10.0.0.99", result.SelfIP)
}

func TestTestLoginRejectsBadCredential(t *testing.T) {
	srv := fakeNVR(t, "/api/v1/system/info", "admin", "right", "application/json", `{}`)
	defer srv.Close()

	result, err := testClient(t).TestLogin(context.Background(), hostOf(srv),
		models.Credential{Username: "admin", Password: "wrong"})

	assert.ErrorIs(t, err, ErrAllAuthFailed)
	assert.False(t, result.OK)
}

func TestFetchDeviceInfoISAPIXML(t *testing.T) {
	srv := fakeNVR(t, "/ISAPI/System/deviceInfo", "admin", "pw", "application/xml",
		`<?xml version="1.0"?><DeviceInfo><model>DS-7732NXI-K4</model><ipAddress>10.0.0.2</ipAddress></DeviceInfo>`)
	defer srv.Close()

	info, err := testClient(t).FetchDeviceInfo(context.Background(), hostOf(srv),
		[]models.Credential{{Username: "admin", Password: "pw"}})
	require.NoError(t, err)

	assert.Equal(t, "DS-7732NXI-K4", info.Model)
	assert.Equal(t, "10.0.0.2", info.IP)
}

func TestFetchModelHintChannelsScrapesAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ISAPI/") {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte("10.0.0.5 10.0.0.6 10.0.0.5"))
	}))
	defer srv.Close()

	cams := testClient(t).FetchModelHintChannels(context.Background(), hostOf(srv),
		"DS-7732NXI-K4", []models.Credential{{Username: "admin", Password: "pw"}})

	require.Len(t, cams, 2)
	assert.Equal(t, "10.0.0.5", cams[0].IP)
	assert.Equal(t, "10.0.0.6", cams[1].IP)
}

func TestFetchModelHintChannelsUnknownModel(t *testing.T) {
	cams := testClient(t).FetchModelHintChannels(context.Background(), "203.0.113.1",
		"NoSuchModel", nil)
	assert.Nil(t, cams)
}

func TestFetchModelHintChannelsConfiguredModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/custom/channels" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte("10.0.0.7"))
	}))
	defer srv.Close()

	client := testClient(t)
	client.SetModelEndpoints(map[string][]string{"ACME-NVR-16": {"/custom/channels"}})

	cams := client.FetchModelHintChannels(context.Background(), hostOf(srv),
		"ACME-NVR-16", []models.Credential{{Username: "admin", Password: "pw"}})

	require.Len(t, cams, 1)
	assert.Equal(t, "10.0.0.7", cams[0].IP)
}
