package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when the spreadsheet lacks a required column.
var ErrMissingColumn = errors.New("required column missing")

// Catalogue column headers, in export order.
const (
	colThumbnail   = "Thumbnail"
	colFilename    = "Filename"
	colNewName     = "New Name"
	colDescription = "Description"
	colPath        = "Path"
	colModified    = "Modified"
	colCaptured    = "Captured"
	colExifStatus  = "EXIF Status"
	colSizeKB      = "Size (KB)"
	colGX          = "gx"
	colGY          = "gy"
	colGZ          = "gz"
	colLog         = "Rename Log"
)

var catalogColumns = []string{
	colThumbnail, colFilename, colNewName, colDescription, colPath, colModified,
	colCaptured, colExifStatus, colSizeKB, colGX, colGY, colGZ, colLog,
}

// headerAliases maps accepted header spellings (lower-cased) to catalogue
// columns. The Chinese headers are the ones older index sheets were written with.
var headerAliases = map[string]string{
	"thumbnail":         colThumbnail,
	"縮圖":                colThumbnail,
	"filename":          colFilename,
	"file name":         colFilename,
	"original filename": colFilename,
	"current filename":  colFilename,
	"目前檔名":              colFilename,
	"原檔名":               colFilename,
	"new name":          colNewName,
	"new filename":      colNewName,
	"new/old name":      colNewName,
	"新檔名":               colNewName,
	"新/舊檔名":             colNewName,
	"description":       colDescription,
	"相片說明":              colDescription,
	"path":              colPath,
	"原圖路徑":              colPath,
	"modified":          colModified,
	"修改時間":              colModified,
	"captured":          colCaptured,
	"拍攝時間":              colCaptured,
	"exif status":       colExifStatus,
	"exif狀態":            colExifStatus,
	"size (kb)":         colSizeKB,
	"檔案大小(kb)":          colSizeKB,
	"gx":                colGX,
	"gy":                colGY,
	"gz":                colGZ,
	"rename log":        colLog,
	"更名log":             colLog,
}

// SpatialTag is one of the gx/gy/gz passenger values.
type SpatialTag struct {
	Raw     string
	Value   float64
	Numeric bool
}

func parseSpatialTag(raw string) SpatialTag {
	raw = strings.TrimSpace(raw)
	tag := SpatialTag{Raw: raw}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		tag.Value = v
		tag.Numeric = true
	}
	return tag
}

// Passenger is an extra spreadsheet column carried through unchanged.
type Passenger struct {
	Column string
	Value  string
}

// RenameDirective is one spreadsheet row as submitted.
type RenameDirective struct {
	Row         int // 1-based data row
	Original    string
	NewName     string
	Description string
	Spatial     [3]SpatialTag
	Extra       []Passenger
}

// ReadDirectives parses the first sheet of an xlsx workbook into directives.
// The first row is the header. A missing original-filename column is a
// configuration error; a missing new-name column means every row keeps its name.
func ReadDirectives(r io.Reader) ([]RenameDirective, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s (sheet is empty)", ErrMissingColumn, colFilename)
	}

	type extraColumn struct {
		name  string
		index int
	}

	known := make(map[string]int)
	var extras []extraColumn
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		col, ok := headerAliases[strings.ToLower(h)]
		if !ok {
			extras = append(extras, extraColumn{name: h, index: i})
			continue
		}
		if _, dup := known[col]; !dup {
			known[col] = i
		}
	}

	if _, ok := known[colFilename]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colFilename)
	}

	cell := func(row []string, col string) string {
		i, ok := known[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var directives []RenameDirective
	for n, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		d := RenameDirective{
			Row:         n + 1,
			Original:    cell(row, colFilename),
			NewName:     cell(row, colNewName),
			Description: cell(row, colDescription),
			Spatial: [3]SpatialTag{
				parseSpatialTag(cell(row, colGX)),
				parseSpatialTag(cell(row, colGY)),
				parseSpatialTag(cell(row, colGZ)),
			},
		}
		for _, e := range extras {
			var v string
			if e.index < len(row) {
				v = row[e.index]
			}
			d.Extra = append(d.Extra, Passenger{Column: e.name, Value: v})
		}
		directives = append(directives, d)
	}

	return directives, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CatalogRow is one row of an exported catalogue as read back.
type CatalogRow struct {
	Filename     string
	NewName      string
	Description  string
	Path         string
	Log          string
	HasThumbnail bool
}

// ReadCatalog reads back a spreadsheet written by Export.
func ReadCatalog(r io.Reader) ([]CatalogRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[h] = i
	}
	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]CatalogRow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return nil, err
		}
		pics, err := f.GetPictures(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("failed to read thumbnail at %s: %w", cell, err)
		}
		out = append(out, CatalogRow{
			Filename:     get(row, colFilename),
			NewName:      get(row, colNewName),
			Description:  get(row, colDescription),
			Path:         get(row, colPath),
			Log:          get(row, colLog),
			HasThumbnail: len(pics) > 0,
		})
	}
	return out, nil
}
