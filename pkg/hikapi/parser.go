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
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/clbanning/mxj"

	"github.com/carverauto/camwatch/pkg/models"
)

const defaultRTSPPort = 554

// ResponseParser turns one endpoint body into normalized camera records.
type ResponseParser interface {
	Name() string
	Parse(body []byte) ([]models.CameraRecord, error)
}

// ParseDeviceList dispatches on Content-Type, with a best-effort fallback
// order of JSON then XML when the header is absent or unhelpful.
func ParseDeviceList(body []byte, contentType string) ([]models.CameraRecord, error) {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "json"):
		return (&GenericJSONParser{}).Parse(body)
	case strings.Contains(ct, "xml"):
		return parseChannelXML(body)
	default:
		if cams, err := (&GenericJSONParser{}).Parse(body); err == nil && len(cams) > 0 {
			return cams, nil
		}

		return parseChannelXML(body)
	}
}

// parseChannelXML prefers the structured ISAPI shape, then falls back to the
// loose legacy scan for XML dumps whose structure varies by NVR model.
func parseChannelXML(body []byte) ([]models.CameraRecord, error) {
	cams, err := (&IsapiXMLParser{}).Parse(body)
	if err == nil && len(cams) > 0 {
		return cams, nil
	}

	if loose := parseLooseChannelXML(body); len(loose) > 0 {
		return loose, nil
	}

	return cams, err
}

// IsapiXMLParser parses ISAPI channel-list XML, with or without namespace
// prefixes on the element names.
type IsapiXMLParser struct{}

func (*IsapiXMLParser) Name() string { return "isapi-xml" }

// Parse extracts InputProxyChannel and RemoteDevice elements. A channel is
// online only when its devIndex element is present and populated; the
// enabled and online flags lie on this firmware family and are ignored for
// the liveness verdict.
func (*IsapiXMLParser) Parse(body []byte) ([]models.CameraRecord, error) {
	mv, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, err
	}

	var elems []map[string]interface{}

	collectByLocalKey(map[string]interface{}(mv), "InputProxyChannel", &elems)
	collectByLocalKey(map[string]interface{}(mv), "RemoteDevice", &elems)

	cams := make([]models.CameraRecord, 0, len(elems))

	for _, elem := range elems {
		cam := models.CameraRecord{
			Channel: atoiOr(findText(elem, "id"), 0),
			Name:    findText(elem, "name"),
			IP:      findText(elem, "ipAddress"),
			Model:   findText(elem, "model"),
			Port:    atoiOr(findText(elem, "managePortNo"), defaultRTSPPort),
		}

		if cam.Name == "" {
			cam.Name = "Camera " + strconv.Itoa(cam.Channel)
		}

		devIndex, present := findPresent(elem, "devIndex")
		if present && devIndex != "" {
			cam.Status = string(models.StatusOnline)
		} else {
			cam.Status = string(models.StatusOffline)
		}

		if cam.IP != "" {
			cams = append(cams, cam)
		}
	}

	return cams, nil
}

// GenericJSONParser parses the generic REST device/channel list shapes: a
// top-level list, or an object with a devices or channels array, with
// several spellings per field.
type GenericJSONParser struct{}

func (*GenericJSONParser) Name() string { return "generic-json" }

func (*GenericJSONParser) Parse(body []byte) ([]models.CameraRecord, error) {
	var data interface{}

	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	var items []interface{}

	switch v := data.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		for _, key := range []string{"devices", "channels"} {
			if list, ok := v[key].([]interface{}); ok {
				items = list
				break
			}
		}
	}

	var cams []models.CameraRecord

	for idx, item := range items {
		dev, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		cam := models.CameraRecord{
			Channel: idx + 1,
			Name:    firstString(dev, "name", "deviceName", "channelName"),
			IP:      firstString(dev, "ip", "ipAddress", "address"),
			Status:  firstString(dev, "status", "state"),
			Model:   firstString(dev, "model", "deviceModel"),
		}

		if cam.Name == "" {
			cam.Name = "Camera " + strconv.Itoa(idx+1)
		}

		if cam.Status == "" {
			cam.Status = string(models.StatusUnknown)
		}

		if cam.IP != "" {
			cams = append(cams, cam)
		}
	}

	return cams, nil
}

// ParseDahuaChannelTitles reads "table.ChannelTitle[0].Name=Cam1" lines into
// a channel-number keyed map.
func ParseDahuaChannelTitles(body []byte) map[string]string {
	return parseDahuaTable(body, "ChannelTitle[", ".Name=")
}

// ParseDahuaRemoteAddresses reads "table.RemoteDevice[0].Address=ip" lines.
func ParseDahuaRemoteAddresses(body []byte) map[string]string {
	return parseDahuaTable(body, "RemoteDevice[", ".Address=")
}

func parseDahuaTable(body []byte, marker, field string) map[string]string {
	out := make(map[string]string)

	for _, line := range strings.Split(string(body), "\n") {
		if !strings.Contains(line, marker) || !strings.Contains(line, field) {
			continue
		}

		open := strings.Index(line, "[")
		closing := strings.Index(line, "]")

		if open < 0 || closing < open {
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}

		out[line[open+1:closing]] = strings.TrimSpace(line[eq+1:])
	}

	return out
}

// MergeDahuaChannels joins titles and addresses on channel number. Channels
// listed by the NVR are reported online; the Dahua dump carries no liveness
// field.
func MergeDahuaChannels(titles, addrs map[string]string) []models.CameraRecord {
	var cams []models.CameraRecord

	for chanNum, addr := range addrs {
		if addr == "" {
			continue
		}

		name, ok := titles[chanNum]
		if !ok || name == "" {
			name = "Camera " + chanNum
		}

		cams = append(cams, models.CameraRecord{
			Name:    name,
			IP:      addr,
			Status:  string(models.StatusOnline),
			Channel: atoiOr(chanNum, 0),
			Port:    defaultRTSPPort,
		})
	}

	return cams
}

// parseLooseChannelXML handles the legacy platform dump whose structure
// varies by NVR model: any channel-ish element with a name-ish and ip-ish
// child becomes a record.
func parseLooseChannelXML(body []byte) []models.CameraRecord {
	mv, err := mxj.NewMapXml(body)
	if err != nil {
		return nil
	}

	var cams []models.CameraRecord

	for _, leaf := range mv.LeafNodes() {
		text, ok := leaf.Value.(string)
		if !ok {
			continue
		}

		text = strings.TrimSpace(text)

		segs := strings.Split(leaf.Path, ".")
		tag := strings.ToLower(segs[len(segs)-1])

		if strings.Contains(tag, "ip") && ipPattern.MatchString(text) {
			cams = append(cams, models.CameraRecord{
				Name:   "Channel " + strconv.Itoa(len(cams)+1),
				IP:     text,
				Status: string(models.StatusUnknown),
			})
		}
	}

	return cams
}

var ipPattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

// scrapeIPs pulls every dotted-quad out of an arbitrary response body.
func scrapeIPs(body []byte) []string {
	return ipPattern.FindAllString(string(body), -1)
}

// collectByLocalKey gathers every map value whose key's local name (the part
// after any namespace prefix) matches key, recursing through the document.
func collectByLocalKey(v interface{}, key string, out *[]map[string]interface{}) {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			if localName(k) == key {
				switch val := child.(type) {
				case map[string]interface{}:
					*out = append(*out, val)
				case []interface{}:
					for _, item := range val {
						if m, ok := item.(map[string]interface{}); ok {
							*out = append(*out, m)
						}
					}
				}

				continue
			}

			collectByLocalKey(child, key, out)
		}
	case []interface{}:
		for _, item := range node {
			collectByLocalKey(item, key, out)
		}
	}
}

func localName(key string) string {
	if idx := strings.LastIndex(key, ":"); idx >= 0 {
		return key[idx+1:]
	}

	return key
}

// findText returns the first text value under any element named key,
// searching depth-first. "" when absent.
func findText(m map[string]interface{}, key string) string {
	text, _ := findPresent(m, key)
	return text
}

// findPresent distinguishes an absent element from an empty one: the bool is
// true whenever the element exists, even with no text. The devIndex liveness
// rule needs exactly that distinction.
func findPresent(v interface{}, key string) (string, bool) {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			if localName(k) == key {
				return textOf(child), true
			}
		}

		for _, child := range node {
			if text, ok := findPresent(child, key); ok {
				return text, true
			}
		}
	case []interface{}:
		for _, item := range node {
			if text, ok := findPresent(item, key); ok {
				return text, true
			}
		}
	}

	return "", false
}

func textOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]interface{}:
		if text, ok := val["#text"].(string); ok {
			return strings.TrimSpace(text)
		}
	}

	return ""
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}

	return n
}
