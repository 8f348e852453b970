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

// Package roster loads and persists the device inventory. The canonical
// format is an XLSX workbook maintained by field technicians: one "NVR"
// sheet listing recorders, plus one sheet per recorder listing its cameras.
// The workbooks arrive in every state imaginable, so parsing is positional
// and tolerant rather than schema-driven.
package roster

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/carverauto/camwatch/pkg/models"
)

var (
	// ErrNoNVRSheet indicates the workbook has no sheet named "NVR".
	ErrNoNVRSheet = errors.New("no NVR sheet found in workbook")
)

// Repository abstracts roster persistence so the monitor and TUI never
// touch workbook mechanics directly.
type Repository interface {
	// Load reads the full inventory: recorders first, each followed by
	// its cameras with ParentNVR set.
	Load() ([]models.DeviceRecord, error)

	// WriteBack updates rows in the underlying store for the given
	// records, matching each by name or IP. Records with no matching
	// row are skipped, never appended.
	WriteBack(records []models.DeviceRecord) error
}

var digitsPattern = regexp.MustCompile(`\d+`)

// normalizeKey collapses a sheet or device name to a comparable form:
// NFKC-folded, whitespace and punctuation stripped, lowercased. Technician
// workbooks mix "NVR-3", "nvr 3", and full-width digits for the same unit.
func normalizeKey(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// findSheetKey locates the sheet for target among names, loosest match
// last: exact normalized, prefix either way, substring either way, then
// digits-only equality.
func findSheetKey(names []string, target string) (string, bool) {
	t := normalizeKey(target)
	if t == "" {
		return "", false
	}

	for _, k := range names {
		if normalizeKey(k) == t {
			return k, true
		}
	}

	for _, k := range names {
		nk := normalizeKey(k)
		if nk != "" && (strings.HasPrefix(nk, t) || strings.HasPrefix(t, nk)) {
			return k, true
		}
	}

	for _, k := range names {
		nk := normalizeKey(k)
		if nk != "" && (strings.Contains(t, nk) || strings.Contains(nk, t)) {
			return k, true
		}
	}

	td := strings.Join(digitsPattern.FindAllString(t, -1), "")
	if td == "" {
		return "", false
	}

	for _, k := range names {
		kd := strings.Join(digitsPattern.FindAllString(normalizeKey(k), -1), "")
		if kd != "" && kd == td {
			return k, true
		}
	}

	return "", false
}

// rowLooksLikeHeader reports whether the first row of a sheet is a header
// row rather than data. Workbooks come both ways.
func rowLooksLikeHeader(row []string, indicators []string) bool {
	for _, cell := range row {
		v := strings.ToLower(strings.TrimSpace(cell))
		if v == "" {
			continue
		}

		for _, ind := range indicators {
			if strings.Contains(v, ind) {
				return true
			}
		}
	}

	return false
}

var (
	nvrHeaderIndicators    = []string{"name", "nvr", "ip", "subnet", "gateway", "mask"}
	cameraHeaderIndicators = []string{"camera", "cam", "ip", "title", "name"}
)

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
