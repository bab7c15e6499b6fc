package main

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName       = "Photo Index"
	defaultSpreadsheetName = "photo_index.xlsx"
	timeLayout             = "2006-01-02 15:04:05"
)

// ExportOptions controls the catalogue layout.
type ExportOptions struct {
	SheetName       string
	SpreadsheetName string // name of the spreadsheet inside the archive
	ThumbnailBox    int    // pixels; thumbnails are fitted into box×box
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.SheetName == "" {
		o.SheetName = defaultSheetName
	}
	if o.SpreadsheetName == "" {
		o.SpreadsheetName = defaultSpreadsheetName
	}
	if o.ThumbnailBox <= 0 {
		o.ThumbnailBox = DefaultThumbnailBox
	}
	return o
}

// ExportResult holds the generated artifacts.
type ExportResult struct {
	Spreadsheet     []byte
	SpreadsheetName string
	Archive         []byte
	// Files lists the image names packed into Archive, in record order.
	Files []string
}

// Export writes records into a one-sheet workbook, one row per record in
// order, and packs the written files plus the workbook into a ZIP.
func Export(records []IndexRecord, opts ExportOptions) (*ExportResult, error) {
	opts = opts.withDefaults()

	sheetBytes, err := writeWorkbook(records, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	result := &ExportResult{Spreadsheet: sheetBytes, SpreadsheetName: opts.SpreadsheetName}
	var entries []ArchiveEntry
	for _, rec := range records {
		if rec.File == "" {
			continue
		}
		if collisionKey(rec.Filename) == collisionKey(opts.SpreadsheetName) {
			return nil, fmt.Errorf("image %s collides with the spreadsheet name", rec.Filename)
		}
		entries = append(entries, ArchiveEntry{Name: rec.Filename, Path: rec.File, ModTime: rec.ModTime})
		result.Files = append(result.Files, rec.Filename)
	}
	entries = append(entries, ArchiveEntry{Name: opts.SpreadsheetName, Content: sheetBytes})

	var buf bytes.Buffer
	if err := WriteArchive(&buf, entries); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	result.Archive = buf.Bytes()

	return result, nil
}

func writeWorkbook(records []IndexRecord, opts ExportOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), opts.SheetName); err != nil {
		return nil, err
	}
	sheet := opts.SheetName

	extraCols := extraColumns(records)
	headers := append(append([]string(nil), catalogColumns...), extraCols...)
	for i, h := range headers {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}

	// Excel row heights are in points; thumbnails are sized in pixels.
	rowHeight := float64(opts.ThumbnailBox)*0.75 + 4

	for n, rec := range records {
		row := n + 2
		values := recordValues(rec)
		for c, v := range values {
			if err := setCell(f, sheet, c+2, row, v); err != nil {
				return nil, err
			}
		}

		extras := make(map[string]string, len(rec.Extra))
		for _, p := range rec.Extra {
			extras[p.Column] = p.Value
		}
		for c, name := range extraCols {
			if v, ok := extras[name]; ok {
				if err := setCell(f, sheet, len(catalogColumns)+c+1, row, v); err != nil {
					return nil, err
				}
			}
		}

		pathCell, _ := excelize.CoordinatesToCellName(5, row)
		if err := f.SetCellHyperLink(sheet, pathCell, rec.PathRef, "External"); err != nil {
			return nil, err
		}

		if rec.Thumbnail.State != MetaPresent || len(rec.Thumbnail.PNG) == 0 {
			continue
		}
		if err := f.SetRowHeight(sheet, row, rowHeight); err != nil {
			return nil, err
		}
		thumbCell, _ := excelize.CoordinatesToCellName(1, row)
		pic := &excelize.Picture{
			Extension: ".png",
			File:      rec.Thumbnail.PNG,
			Format: &excelize.GraphicOptions{
				AltText:         rec.Filename,
				ScaleX:          1,
				ScaleY:          1,
				OffsetX:         2,
				OffsetY:         2,
				LockAspectRatio: true,
				Positioning:     "oneCell",
			},
		}
		if err := f.AddPictureFromBytes(sheet, thumbCell, pic); err != nil {
			return nil, fmt.Errorf("failed to embed thumbnail for row %d: %w", n+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// recordValues returns the cells from the Filename column onwards.
func recordValues(rec IndexRecord) []any {
	values := []any{
		rec.Filename,
		rec.Directive,
		rec.Description,
		rec.PathRef,
		formatTime(rec.ModTime),
		formatTime(rec.Capture.Time),
		rec.Capture.Status,
		"",
	}
	if rec.HasSize {
		values[7] = math.Round(rec.SizeKB*100) / 100
	}
	for _, tag := range rec.Spatial {
		if tag.Numeric {
			values = append(values, tag.Value)
		} else {
			values = append(values, tag.Raw)
		}
	}
	return append(values, rec.Log)
}

func extraColumns(records []IndexRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, p := range rec.Extra {
			if !seen[p.Column] {
				seen[p.Column] = true
				cols = append(cols, p.Column)
			}
		}
	}
	return cols
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
