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
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/icholy/digest"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

const (
	defaultHTTPTimeout = 2 * time.Second
	maxResponseBytes   = 4 << 20
)

var (
	ErrAllAuthFailed   = errors.New("all auth candidates failed")
	ErrNoUsableRecords = errors.New("no usable records in response")
	ErrNotReachable    = errors.New("device not reachable over HTTP")
)

// AuthScheme selects how a credential is presented.
type AuthScheme string

const (
	AuthBasic  AuthScheme = "Basic"
	AuthDigest AuthScheme = "Digest"
)

// AuthCandidate is one credential/scheme pair tried against an endpoint.
type AuthCandidate struct {
	Scheme AuthScheme
	Cred   models.Credential
}

// Candidates expands credentials into the scheme order the fleet's firmware
// wants: Digest first, then Basic, per credential.
func Candidates(creds []models.Credential) []AuthCandidate {
	out := make([]AuthCandidate, 0, len(creds)*2)

	for _, c := range creds {
		out = append(out,
			AuthCandidate{Scheme: AuthDigest, Cred: c},
			AuthCandidate{Scheme: AuthBasic, Cred: c},
		)
	}

	return out
}

// BasicOnly expands credentials into Basic-auth candidates, for the JSON
// endpoints that never answer a Digest challenge.
func BasicOnly(creds []models.Credential) []AuthCandidate {
	out := make([]AuthCandidate, 0, len(creds))

	for _, c := range creds {
		out = append(out, AuthCandidate{Scheme: AuthBasic, Cred: c})
	}

	return out
}

// Response is the raw outcome of a successful endpoint attempt.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Auth        AuthCandidate
}

// Client issues authenticated GETs against device management endpoints.
type Client struct {
	timeout     time.Duration
	logger      logger.Logger
	extraModels map[string][]string
}

func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{timeout: timeout, logger: log}
}

// SetModelEndpoints registers operator-supplied channel-list paths for NVR
// models, tried before the built-in hints for the same model.
func (c *Client) SetModelEndpoints(byModel map[string][]string) {
	c.extraModels = byModel
}

func (c *Client) httpClient(cand AuthCandidate) *http.Client {
	hc := &http.Client{Timeout: c.timeout}

	if cand.Scheme == AuthDigest {
		hc.Transport = &digest.Transport{
			Username: cand.Cred.Username,
			Password: cand.Cred.Password,
		}
	}

	return hc
}

// TryEndpoint GETs base+path with each auth candidate in order until one
// returns HTTP 200. 401/403 means "this credential doesn't work here", any
// other failure is logged and the next candidate is tried; the error is
// returned only after the whole list is exhausted.
func (c *Client) TryEndpoint(ctx context.Context, baseURL, path string, cands []AuthCandidate) (*Response, error) {
	url := baseURL + path

	for _, cand := range cands {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		if cand.Scheme == AuthBasic {
			req.SetBasicAuth(cand.Cred.Username, cand.Cred.Password)
		}

		resp, err := c.httpClient(cand).Do(req)
		if err != nil {
			c.logger.Debug().Str("url", url).Str("scheme", string(cand.Scheme)).Err(err).Msg("endpoint attempt failed")
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()

		if readErr != nil {
			c.logger.Debug().Str("url", url).Err(readErr).Msg("endpoint body read failed")
			continue
		}

		c.logger.Debug().Str("url", url).Str("scheme", string(cand.Scheme)).Int("status", resp.StatusCode).Msg("endpoint attempt")

		switch {
		case resp.StatusCode == http.StatusOK:
			return &Response{
				StatusCode:  resp.StatusCode,
				Body:        body,
				ContentType: resp.Header.Get("Content-Type"),
				Auth:        cand,
			}, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			continue
		default:
			continue
		}
	}

	return nil, ErrAllAuthFailed
}

// FetchChannels runs the camera-list endpoint cascade against one NVR. The
// first endpoint that returns HTTP 200 and yields at least one parseable
// record wins; later endpoints are not attempted. The returned method names
// the winning endpoint family for display.
func (c *Client) FetchChannels(ctx context.Context, nvrIP string, creds []models.Credential) ([]models.CameraRecord, string, error) {
	base := "http://" + nvrIP

	// ISAPI XML first: richest data and the devIndex liveness field.
	isapiCands := Candidates(creds)

	for _, path := range ISAPIChannelEndpoints {
		resp, err := c.TryEndpoint(ctx, base, path, isapiCands)
		if err != nil {
			continue
		}

		cams, err := (&IsapiXMLParser{}).Parse(resp.Body)
		if err != nil || len(cams) == 0 {
			continue
		}

		return cams, models.MethodISAPI + " " + path, nil
	}

	// Dahua legacy CGI: channel titles and remote-device addresses come
	// from two separate config dumps.
	if cams := c.fetchDahua(ctx, base, BasicOnly(creds)); len(cams) > 0 {
		return cams, "Dahua CGI", nil
	}

	// Generic device and channel lists: usually JSON, but some firmware
	// answers these paths with XML, so dispatch on the response type.
	genericCands := BasicOnly(creds)

	for _, path := range append(append([]string{}, GenericDeviceEndpoints...), GenericChannelEndpoints...) {
		resp, err := c.TryEndpoint(ctx, base, path, genericCands)
		if err != nil {
			continue
		}

		cams, err := ParseDeviceList(resp.Body, resp.ContentType)
		if err != nil || len(cams) == 0 {
			continue
		}

		return cams, "Generic API " + path, nil
	}

	// Legacy platform dump, loosest parse.
	if resp, err := c.TryEndpoint(ctx, base, LegacyCGIPlatform, genericCands); err == nil {
		if cams, err := ParseDeviceList(resp.Body, resp.ContentType); err == nil && len(cams) > 0 {
			return cams, "Legacy CGI", nil
		}
	}

	return nil, "", ErrNoUsableRecords
}

// fetchDahua merges the ChannelTitle and RemoteDevice config dumps into
// camera records. Both dumps must parse for any records to come back.
func (c *Client) fetchDahua(ctx context.Context, base string, cands []AuthCandidate) []models.CameraRecord {
	titleResp, err := c.TryEndpoint(ctx, base, DahuaChannelTitlePath, cands)
	if err != nil {
		return nil
	}

	titles := ParseDahuaChannelTitles(titleResp.Body)
	if len(titles) == 0 {
		return nil
	}

	addrResp, err := c.TryEndpoint(ctx, base, DahuaRemoteDevicePath, cands)
	if err != nil {
		return nil
	}

	return MergeDahuaChannels(titles, ParseDahuaRemoteAddresses(addrResp.Body))
}

// FetchModelHintChannels tries the model-specific endpoint hints, scraping
// any dotted-quad the response carries. Used only when the regular cascade
// came up empty.
func (c *Client) FetchModelHintChannels(ctx context.Context, nvrIP, model string, creds []models.Credential) []models.CameraRecord {
	paths := append(append([]string(nil), c.extraModels[model]...), ModelEndpoints[model]...)
	if len(paths) == 0 {
		return nil
	}

	base := "http://" + nvrIP
	cands := Candidates(creds)

	var cams []models.CameraRecord

	seen := make(map[string]struct{})

	for _, path := range paths {
		resp, err := c.TryEndpoint(ctx, base, path, cands)
		if err != nil {
			continue
		}

		for _, ip := range scrapeIPs(resp.Body) {
			if ip == nvrIP {
				continue
			}

			if _, dup := seen[ip]; dup {
				continue
			}

			seen[ip] = struct{}{}

			cams = append(cams, models.CameraRecord{
				Name:   "Camera " + ip,
				IP:     ip,
				Status: string(models.StatusUnknown),
			})
		}
	}

	return cams
}
