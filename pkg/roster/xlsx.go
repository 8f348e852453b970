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

package roster

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/carverauto/camwatch/pkg/logger"
	"github.com/carverauto/camwatch/pkg/models"
)

const nvrSheetName = "NVR"

// Column positions are fixed by convention, not by header text. NVR sheet:
// name, ip, subnet, gateway. Camera sheets: name, ip. An optional status
// column sits one past the last identity column and is ours to write.
const (
	nvrStatusColumn    = 5
	cameraStatusColumn = 3
)

// XLSXRepository reads and updates a technician-maintained workbook.
type XLSXRepository struct {
	path   string
	logger logger.Logger
}

func NewXLSXRepository(path string, log logger.Logger) *XLSXRepository {
	return &XLSXRepository{path: path, logger: log}
}

// Load parses the workbook into device records: every NVR from the "NVR"
// sheet, then each NVR's cameras from its matched sheet. An NVR whose
// camera sheet cannot be located is kept with zero cameras and logged.
func (r *XLSXRepository) Load() ([]models.DeviceRecord, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !containsSheet(sheets, nvrSheetName) {
		return nil, ErrNoNVRSheet
	}

	nvrRows, err := f.GetRows(nvrSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read NVR sheet: %w", err)
	}

	records := make([]models.DeviceRecord, 0, len(nvrRows))

	for _, row := range dataRows(nvrRows, nvrHeaderIndicators) {
		rec := models.DeviceRecord{
			Kind:    models.KindNVR,
			Name:    cellAt(row, 0),
			IP:      cellAt(row, 1),
			Subnet:  cellAt(row, 2),
			Gateway: cellAt(row, 3),
			Status:  models.StatusUnknown,
		}
		if !rec.Addressable() {
			continue
		}

		records = append(records, rec)
		records = append(records, r.loadCameras(f, sheets, rec.Name)...)
	}

	r.logger.Info().Str("path", r.path).Int("records", len(records)).Msg("roster loaded")

	return records, nil
}

func (r *XLSXRepository) loadCameras(f *excelize.File, sheets []string, nvrName string) []models.DeviceRecord {
	key, ok := findSheetKey(sheets, nvrName)
	if !ok || key == nvrSheetName {
		r.logger.Warn().Str("nvr", nvrName).Msg("no camera sheet matched")
		return nil
	}

	rows, err := f.GetRows(key)
	if err != nil {
		r.logger.Warn().Str("sheet", key).Err(err).Msg("failed to read camera sheet")
		return nil
	}

	cams := make([]models.DeviceRecord, 0, len(rows))
	channel := 0

	for _, row := range dataRows(rows, cameraHeaderIndicators) {
		channel++

		cam := models.DeviceRecord{
			Kind:      models.KindCamera,
			Name:      cellAt(row, 0),
			IP:        cellAt(row, 1),
			Channel:   channel,
			ParentNVR: nvrName,
			Status:    models.StatusUnknown,
		}
		if !cam.Addressable() {
			channel--
			continue
		}

		cams = append(cams, cam)
	}

	return cams
}

// WriteBack stamps current status into the workbook, matching each record
// to its row by name or IP. The workbook stays the source of truth for
// identity; only the status cell is touched.
func (r *XLSXRepository) WriteBack(records []models.DeviceRecord) error {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to open roster workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	updated := 0

	for i := range records {
		rec := &records[i]

		sheet := nvrSheetName
		statusCol := nvrStatusColumn

		if rec.Kind == models.KindCamera {
			key, ok := findSheetKey(sheets, rec.ParentNVR)
			if !ok {
				continue
			}

			sheet = key
			statusCol = cameraStatusColumn
		}

		rowIdx, ok := r.findRow(f, sheet, rec)
		if !ok {
			continue
		}

		cell, err := excelize.CoordinatesToCellName(statusCol, rowIdx)
		if err != nil {
			continue
		}

		if err := f.SetCellStr(sheet, cell, rec.StatusLabel()); err != nil {
			r.logger.Warn().Str("sheet", sheet).Str("cell", cell).Err(err).Msg("status write failed")
			continue
		}

		updated++
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save roster workbook: %w", err)
	}

	r.logger.Debug().Int("updated", updated).Msg("roster status written back")

	return nil
}

// findRow locates the 1-based row for rec in sheet, matching name first
// and IP second, both against the positional identity columns.
func (r *XLSXRepository) findRow(f *excelize.File, sheet string, rec *models.DeviceRecord) (int, bool) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, false
	}

	for i, row := range rows {
		name := cellAt(row, 0)
		ip := cellAt(row, 1)

		if rec.Name != "" && strings.EqualFold(name, rec.Name) {
			return i + 1, true
		}

		if rec.IP != "" && ip == rec.IP {
			return i + 1, true
		}
	}

	return 0, false
}

// dataRows strips a leading header row when the first row looks like one.
func dataRows(rows [][]string, indicators []string) [][]string {
	if len(rows) == 0 {
		return rows
	}

	if rowLooksLikeHeader(rows[0], indicators) {
		return rows[1:]
	}

	return rows
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}

	return false
}
