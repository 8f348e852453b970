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

package credstore

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

// fileStore is the JSON flat-file layout: ip -> credential. It doubles as
// the username index for keyring lookups (the keyring needs the username to
// retrieve the password).
type fileStore map[string]models.Credential

// CredStore prefers the OS keyring and falls back to the flat file when the
// keyring errors (headless hosts, locked session). Passwords land in the
// flat file only on the fallback path.
type CredStore struct {
	mu     sync.Mutex
	ring   Keyring
	path   string
	logger logger.Logger
}

var _ Store = (*CredStore)(nil)

// New creates a credential store backed by ring, with path as the JSON
// fallback file. A nil ring skips the keyring entirely.
func New(ring Keyring, path string, log logger.Logger) *CredStore {
	return &CredStore{ring: ring, path: path, logger: log}
}

func (c *CredStore) Set(ip, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.readFile()

	if c.ring != nil {
		err := c.ring.Set(servicePrefix+ip, username, password)
		if err == nil {
			// Keyring holds the password; the file keeps only the
			// username index.
			store[ip] = models.Credential{Username: username}
			return c.writeFile(store)
		}

		c.logger.Warn().Str("ip", ip).Err(err).Msg("keyring set failed, using flat file")
	}

	store[ip] = models.Credential{Username: username, Password: password}

	return c.writeFile(store)
}

func (c *CredStore) Get(ip string) (models.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.readFile()

	entry, ok := store[ip]
	if !ok || entry.Username == "" {
		return models.Credential{}, false
	}

	if c.ring != nil {
		if password, err := c.ring.Get(servicePrefix+ip, entry.Username); err == nil && password != "" {
			return models.Credential{Username: entry.Username, Password: password}, true
		}
	}

	if entry.Password != "" {
		return entry, true
	}

	return models.Credential{}, false
}

func (c *CredStore) Delete(ip string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ring != nil {
		store := c.readFile()
		if entry, ok := store[ip]; ok && entry.Username != "" {
			if err := c.ring.Delete(servicePrefix+ip, entry.Username); err != nil {
				c.logger.Debug().Str("ip", ip).Err(err).Msg("keyring delete failed")
			}
		}
	}

	store := c.readFile()
	delete(store, ip)

	return c.writeFile(store)
}

func (c *CredStore) Candidates(ip string) []models.Credential {
	if cred, ok := c.Get(ip); ok {
		out := make([]models.Credential, 0, 1+len(DefaultCredentials))
		out = append(out, cred)
		out = append(out, DefaultCredentials...)

		return out
	}

	out := make([]models.Credential, len(DefaultCredentials))
	copy(out, DefaultCredentials)

	return out
}

func (c *CredStore) readFile() fileStore {
	store := fileStore{}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return store
	}

	if err := json.Unmarshal(data, &store); err != nil {
		c.logger.Warn().Str("path", c.path).Err(err).Msg("credential file unreadable, starting empty")
		return fileStore{}
	}

	return store
}

func (c *CredStore) writeFile(store fileStore) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0o600)
}
