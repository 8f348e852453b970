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

// Package credstore stores device credentials keyed by IP: the OS-native
// secret store when available, a JSON flat file when not, and a fixed list
// of fleet default credentials when nothing is stored at all.
package credstore

import (
	"github.com/zalando/go-keyring"

	"github.com/carverauto/camwatch/pkg/models"
)

// servicePrefix namespaces keyring entries per device.
const servicePrefix = "camwatch:"

// DefaultCredentials is the fleet's factory credential list, tried in order
// when no credential is stored for a device. Tuned for the deployed
// hardware; preserved as-is.
var DefaultCredentials = []models.Credential{
	{Username: "admin", Password: "Kkcctv12345"},
	{Username: "admin", Password: "Kkcctv1245"},
}

// Store is the credential repository surface the monitor depends on.
type Store interface {
	Set(ip, username, password string) error
	Get(ip string) (models.Credential, bool)
	Delete(ip string) error
	// Candidates returns the credentials to try for a device: the stored
	// one first when present, then the defaults.
	Candidates(ip string) []models.Credential
}

// Keyring abstracts the OS secret store so tests can fake it.
type Keyring interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

type systemKeyring struct{}

func (systemKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

func (systemKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

func (systemKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// SystemKeyring returns the OS-native secret store.
func SystemKeyring() Keyring {
	return systemKeyring{}
}
