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

// Package history persists per-run check summaries to a local JSON file.
package history

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

const maxRetainedRuns = 500

// Repository records completed check runs.
type Repository interface {
	Append(run models.CheckRun) error
	List(limit int) ([]models.CheckRun, error)
}

// FileRepository keeps runs in one JSON array, newest last, trimmed to a
// fixed retention count.
type FileRepository struct {
	mu     sync.Mutex
	path   string
	logger logger.Logger
}

var _ Repository = (*FileRepository)(nil)

func NewFileRepository(path string, log logger.Logger) *FileRepository {
	return &FileRepository{path: path, logger: log}
}

func (f *FileRepository) Append(run models.CheckRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	runs := f.read()
	runs = append(runs, run)

	if len(runs) > maxRetainedRuns {
		runs = runs[len(runs)-maxRetainedRuns:]
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(f.path, data, 0o644)
}

func (f *FileRepository) List(limit int) ([]models.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	runs := f.read()

	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}

	return runs, nil
}

func (f *FileRepository) read() []models.CheckRun {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil
	}

	var runs []models.CheckRun

	if err := json.Unmarshal(data, &runs); err != nil {
		f.logger.Warn().Str("path", f.path).Err(err).Msg("history file unreadable, starting empty")
		return nil
	}

	return runs
}
