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

package roster_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/roster"
	test "github.com/jaycherian/gcp-go-roster-photos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func layout() cloud.Roster {
	return cloud.NewConfig().Roster
}

func assertSampleRows(t *testing.T, rows []*model.RosterRow) {
	t.Helper()
	require.Len(t, rows, 3)

	alice := rows[0]
	assert.Equal(t, 1, alice.Rank)
	assert.Equal(t, "Alice Smith", alice.Name)
	assert.Equal(t, "https://drive.google.com/open?id=ALICE01&usp=sharing", alice.PhotoLink)
	assert.Equal(t, "Finance", alice.Division)
	assert.Equal(t, "Engineering", alice.School)
	assert.Equal(t, "Treasurer", alice.Role)
	assert.Equal(t, map[string]string{"No": "1"}, alice.Extra)

	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "Bob Jones", rows[1].Name)

	jane := rows[2]
	assert.Equal(t, 3, jane.Rank)
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Empty(t, jane.PhotoLink)
	assert.Empty(t, jane.School)
}

func TestReadCSVPromotesSecondRecordToHeader(t *testing.T) {
	rows, err := roster.ReadCSV(strings.NewReader(test.RosterCSV), layout())
	require.NoError(t, err)
	assertSampleRows(t, rows)
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	l := layout()
	l.HeaderRow = 1
	in := "\ufeffNo,,Photo Link\n1,Ann,https://drive.google.com/file/d/X/view\n"

	rows, err := roster.ReadCSV(strings.NewReader(in), l)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ann", rows[0].Name)
	assert.Equal(t, "1", rows[0].Extra["No"])
}

func TestReadCSVShortRecords(t *testing.T) {
	l := layout()
	l.HeaderRow = 1
	in := "No,,Photo Link,Division\n1,Ann\n"

	rows, err := roster.ReadCSV(strings.NewReader(in), l)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ann", rows[0].Name)
	assert.Empty(t, rows[0].PhotoLink)
	assert.Empty(t, rows[0].Division)
}

func TestReadCSVWithoutHeader(t *testing.T) {
	_, err := roster.ReadCSV(strings.NewReader("only a title line\n"), layout())
	assert.ErrorIs(t, err, roster.ErrNoHeader)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := roster.Load(filepath.Join(t.TempDir(), "absent.csv"), layout())
	assert.ErrorIs(t, err, roster.ErrRosterNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCSVFile(t *testing.T) {
	path := test.WriteFile(t, t.TempDir(), "ppi_photo.csv", []byte(test.RosterCSV))
	rows, err := roster.Load(path, layout())
	require.NoError(t, err)
	assertSampleRows(t, rows)
}

func TestLoadXLSXMatchesCSV(t *testing.T) {
	records, err := csv.NewReader(strings.NewReader(test.RosterCSV)).ReadAll()
	require.NoError(t, err)

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	sheet := book.GetSheetName(0)
	for i, record := range records {
		cells := make([]any, len(record))
		for j, v := range record {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &cells))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	path := test.WriteFile(t, t.TempDir(), "ppi_photo.xlsx", buf.Bytes())
	rows, err := roster.Load(path, layout())
	require.NoError(t, err)
	assertSampleRows(t, rows)
}

func TestReadXLSXRejectsGarbage(t *testing.T) {
	_, err := roster.ReadXLSX(strings.NewReader("not a workbook"), layout())
	assert.ErrorIs(t, err, roster.ErrRosterUnreadable)
}
