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

package history

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

func tempRepo(t *testing.T) *FileRepository {
	t.Helper()
	return NewFileRepository(filepath.Join(t.TempDir(), "history.json"), logger.NewTestLogger())
}

func TestAppendAndList(t *testing.T) {
	repo := tempRepo(t)

	require.NoError(t, repo.Append(models.CheckRun{RunID: "a", Targets: 10, Online: 8}))
	require.NoError(t, repo.Append(models.CheckRun{RunID: "b", Targets: 10, Online: 9}))

	runs, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest last.
	assert.Equal(t, "a", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

func TestListLimitReturnsNewest(t *testing.T) {
	repo := tempRepo(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(models.CheckRun{RunID: strconv.Itoa(i)}))
	}

	runs, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "3", runs[0].RunID)
	assert.Equal(t, "4", runs[1].RunID)
}

func TestUnreadableHistoryStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o644))

	repo := NewFileRepository(path, logger.NewTestLogger())

	runs, err := repo.List(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, repo.Append(models.CheckRun{RunID: "fresh"}))

	runs, err = repo.List(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
