package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture(t *testing.T) []IndexRecord {
	t.Helper()
	dir := t.TempDir()
	beach := filepath.Join(dir, "beach.jpg")
	require.NoError(t, os.WriteFile(beach, []byte("beach-bytes"), 0o644))

	return []IndexRecord{
		{
			Row:         1,
			Filename:    "beach.jpg",
			Directive:   "beach",
			Description: "sunset",
			PathRef:     "file:///srv/trip/beach.jpg",
			Spatial:     [3]SpatialTag{parseSpatialTag("1.5"), parseSpatialTag("north"), {}},
			Extra:       []Passenger{{Column: "Album", Value: "summer"}},
			File:        beach,
			ModTime:     time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC),
			SizeKB:      1.23456,
			HasSize:     true,
			Capture:     CaptureResult{State: MetaPresent, Time: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), Status: captureStatusPresent},
			Thumbnail:   ThumbnailResult{State: MetaPresent, PNG: pngBytes(t, 8, 8)},
			Outcome:     OutcomeCopied,
			Log:         "renamed a.jpg → beach.jpg",
		},
		{
			Row:       2,
			Filename:  "b.jpg",
			Directive: "x y",
			PathRef:   "file:///srv/trip/b.jpg",
			Outcome:   OutcomeSkippedMalformed,
			Log:       "skipped: name invalid",
		},
	}
}

func TestExport(t *testing.T) {
	records := exportFixture(t)

	res, err := Export(records, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, defaultSpreadsheetName, res.SpreadsheetName)
	assert.Equal(t, []string{"beach.jpg"}, res.Files)

	files := readZip(t, res.Archive)
	require.Len(t, files, 2)
	assert.Equal(t, []byte("beach-bytes"), files["beach.jpg"])
	assert.Equal(t, res.Spreadsheet, files[defaultSpreadsheetName])

	rows, err := ReadCatalog(bytes.NewReader(res.Spreadsheet))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, CatalogRow{
		Filename:     "beach.jpg",
		NewName:      "beach",
		Description:  "sunset",
		Path:         "file:///srv/trip/beach.jpg",
		Log:          "renamed a.jpg → beach.jpg",
		HasThumbnail: true,
	}, rows[0])
	assert.Equal(t, CatalogRow{
		Filename: "b.jpg",
		NewName:  "x y",
		Path:     "file:///srv/trip/b.jpg",
		Log:      "skipped: name invalid",
	}, rows[1])
}

func TestExportWorkbookLayout(t *testing.T) {
	res, err := Export(exportFixture(t), ExportOptions{SheetName: "Trip"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(res.Spreadsheet))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Trip"}, f.GetSheetList())

	rows, err := f.GetRows("Trip")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, append(append([]string(nil), catalogColumns...), "Album"), rows[0])

	get := func(cell string) string {
		v, err := f.GetCellValue("Trip", cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "2022-01-02 03:04:05", get("F2"))
	assert.Equal(t, "2020-01-02 03:04:05", get("G2"))
	assert.Equal(t, captureStatusPresent, get("H2"))
	assert.Equal(t, "1.23", get("I2"))
	assert.Equal(t, "1.5", get("J2"))
	assert.Equal(t, "north", get("K2"))
	assert.Equal(t, "", get("L2"))
	assert.Equal(t, "summer", get("N2"))

	// Rows without a file leave the file columns blank.
	assert.Equal(t, "", get("F3"))
	assert.Equal(t, "", get("I3"))

	ok, link, err := f.GetCellHyperLink("Trip", "E2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "file:///srv/trip/beach.jpg", link)

	pics, err := f.GetPictures("Trip", "A2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)
	pics, err = f.GetPictures("Trip", "A3")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestExportRejectsSpreadsheetNameCollision(t *testing.T) {
	records := exportFixture(t)
	_, err := Export(records, ExportOptions{SpreadsheetName: "BEACH.jpg"})
	assert.Error(t, err)
}

func TestExportEmpty(t *testing.T) {
	res, err := Export(nil, ExportOptions{SpreadsheetName: "index.xlsx"})
	require.NoError(t, err)
	assert.Empty(t, res.Files)

	files := readZip(t, res.Archive)
	assert.Len(t, files, 1)
	assert.Contains(t, files, "index.xlsx")

	rows, err := ReadCatalog(bytes.NewReader(res.Spreadsheet))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
