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

// Package hikapi talks to the HTTP(S) management interfaces of
// Hikvision-style NVRs and cameras: an ordered list of known endpoint paths
// tried per vendor family, Basic and Digest auth, and parsers for the ISAPI
// XML, legacy CGI, and generic JSON response shapes.
package hikapi

// Endpoint ordering below is empirically tuned configuration data for the
// deployed hardware fleet. The order encodes "most NVR models support this
// first" and is preserved as-is; do not re-derive or sort it.

// ISAPIChannelEndpoints list NVR channel rosters in ISAPI XML form.
var ISAPIChannelEndpoints = []string{
	"/ISAPI/ContentMgmt/InputProxy/channels",
	"/ISAPI/ContentMgmt/RemoteDevice",
	"/ISAPI/System/Video/inputs/channels",
}

// GenericDeviceEndpoints list devices in generic JSON form.
var GenericDeviceEndpoints = []string{
	"/api/v1/devices",
	"/api/v2/devices",
	"/cgi-bin/api/v1/devices",
}

// GenericChannelEndpoints list channels in generic JSON form.
var GenericChannelEndpoints = []string{
	"/api/v1/channels",
	"/api/v1/System/Video/inputs/channels",
	"/isapi/System/Video/inputs/channels",
}

// SystemInfoEndpoints return a device self-description in JSON form. Used by
// the login test and for IP-drift detection.
var SystemInfoEndpoints = []string{
	"/api/v1/system/info",
	"/api/v2/system/info",
}

// DeviceInfoEndpoints return the device model, ISAPI first.
var DeviceInfoEndpoints = []string{
	"/ISAPI/System/deviceInfo",
	"/api/v1/system/info",
	"/api/v2/system/info",
}

// Legacy CGI endpoints.
const (
	LegacyCGISystemInfo   = "/cgi-bin/system?action=getSystemInfo"
	LegacyCGIPlatform     = "/cgi-bin/isapi/Platform/systemResources"
	DahuaChannelTitlePath = "/cgi-bin/configManager.cgi?action=getConfig&name=ChannelTitle"
	DahuaRemoteDevicePath = "/cgi-bin/configManager.cgi?action=getConfig&name=RemoteDevice"
)

// ModelEndpoints are extra channel-list paths known to work on specific NVR
// models, tried when the regular cascade yields nothing.
var ModelEndpoints = map[string][]string{
	"DS-7732NXI-K4": {
		"/ISAPI/ContentMgmt/RemoteDevice",
		"/ISAPI/Streaming/channels",
		"/ISAPI/ContentMgmt/InputProxy/channels",
		"/ISAPI/PSIA/Custom/SelfAdapt/Channel",
	},
	"DS-7732NI-K4": {
		"/ISAPI/ContentMgmt/RemoteDevice",
		"/ISAPI/Streaming/channels",
		"/ISAPI/PSIA/Custom/SelfAdapt/Channel",
	},
}
