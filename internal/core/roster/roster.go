// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package roster reads the people roster from a CSV or XLSX file.
//
// The exported sheet carries a title line above the real column names, so the
// record at Roster.HeaderRow (1-based, 2 by default) is promoted to the header
// and everything above it is discarded. The column at Roster.NameColumnIndex
// is renamed to Roster.NameColumn because the export leaves it unlabeled.
// Every record after the header becomes a row ranked by its position.
//
// Logic Flow:
//  1. Load picks the reader from the file extension.
//  2. The reader produces raw records (ragged records are allowed).
//  3. fromRecords promotes the header, renames the name column and maps each
//     record onto a model.RosterRow.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrRosterNotFound wraps os.ErrNotExist when the roster file is missing.
	ErrRosterNotFound = errors.New("roster not found")
	// ErrRosterUnreadable is returned when the file exists but cannot be parsed.
	ErrRosterUnreadable = errors.New("roster unreadable")
	// ErrNoHeader is returned when the file ends before the header record.
	ErrNoHeader = errors.New("roster has no header record")
)

// Load reads the roster at path. Files ending in .xlsx are read with
// ReadXLSX; everything else is treated as CSV.
//
// Inputs:
//   - path: The roster file.
//   - layout: Header position and column names.
//
// Outputs:
//   - []*model.RosterRow: Rows in file order, ranked from 1.
//   - error: ErrRosterNotFound, ErrRosterUnreadable or ErrNoHeader.
func Load(path string, layout cloud.Roster) ([]*model.RosterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRosterNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRosterUnreadable, path, err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(f, layout)
	}
	return ReadCSV(f, layout)
}

// ReadCSV reads a comma-separated roster.
func ReadCSV(r io.Reader, layout cloud.Roster) ([]*model.RosterRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnreadable, err)
	}
	return fromRecords(records, layout)
}

// ReadXLSX reads the configured sheet, or the first one, of a workbook.
func ReadXLSX(r io.Reader, layout cloud.Roster) ([]*model.RosterRow, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnreadable, err)
	}
	defer func() { _ = book.Close() }()

	sheet := layout.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrRosterUnreadable)
		}
		sheet = sheets[0]
	}

	records, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrRosterUnreadable, sheet, err)
	}
	// GetRows keeps blank rows that CSV would skip; drop them for parity.
	out := records[:0]
	for _, record := range records {
		if !isBlank(record) {
			out = append(out, record)
		}
	}
	return fromRecords(out, layout)
}

func fromRecords(records [][]string, layout cloud.Roster) ([]*model.RosterRow, error) {
	headerRow := layout.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if len(records) < headerRow {
		return nil, fmt.Errorf("%w: need at least %d records, found %d", ErrNoHeader, headerRow, len(records))
	}

	header := make([]string, len(records[headerRow-1]))
	for i, h := range records[headerRow-1] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if layout.NameColumnIndex >= 0 && layout.NameColumnIndex < len(header) {
		header[layout.NameColumnIndex] = layout.NameColumn
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := index[h]; !seen && h != "" {
			index[h] = i
		}
	}
	known := map[string]bool{
		layout.NameColumn:      true,
		layout.PhotoLinkColumn: true,
		layout.DivisionColumn:  true,
		layout.SchoolColumn:    true,
		layout.RoleColumn:      true,
	}

	data := records[headerRow:]
	rows := make([]*model.RosterRow, 0, len(data))
	for i, record := range data {
		cell := func(column string) string {
			pos, ok := index[column]
			if !ok || pos >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[pos])
		}

		row := &model.RosterRow{
			Rank:      i + 1,
			Name:      cell(layout.NameColumn),
			PhotoLink: cell(layout.PhotoLinkColumn),
			Division:  cell(layout.DivisionColumn),
			School:    cell(layout.SchoolColumn),
			Role:      cell(layout.RoleColumn),
			Extra:     make(map[string]string),
		}
		for h, pos := range index {
			if known[h] || pos >= len(record) {
				continue
			}
			if v := strings.TrimSpace(record[pos]); v != "" {
				row.Extra[h] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
