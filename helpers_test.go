package main

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// writeZip creates a ZIP at dir/name holding files (archive path → content).
func writeZip(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     n,
			Method:   zip.Deflate,
			Modified: time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC),
		})
		require.NoError(t, err)
		_, err = fw.Write(files[n])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

// readZip returns the archive's entries by name.
func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = buf.Bytes()
	}
	return out
}

// sheetBytes builds an xlsx workbook whose first sheet holds rows.
func sheetBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func writeSheet(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, sheetBytes(t, rows), 0o644))
	return p
}

// directives builds rename directives from (original, new name) pairs.
func directives(pairs ...[2]string) []RenameDirective {
	out := make([]RenameDirective, len(pairs))
	for i, p := range pairs {
		out[i] = RenameDirective{Row: i + 1, Original: p[0], NewName: p[1]}
	}
	return out
}

// fakeLookup is a SourceLookup over files written into a temp dir.
type fakeLookup map[string]SourceFile

func (l fakeLookup) Lookup(name string) (SourceFile, bool) {
	f, ok := l[name]
	return f, ok
}

func newFakeLookup(t *testing.T, files map[string][]byte) fakeLookup {
	t.Helper()
	dir := t.TempDir()
	l := make(fakeLookup)
	for name, data := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		l[name] = SourceFile{
			RelPath: name,
			Name:    name,
			Size:    int64(len(data)),
			ModTime: time.Date(2022, 1, 2, 3, 4, 5, 0, time.Local),
			Path:    p,
		}
	}
	return l
}

// stubMeta is a MetadataProvider with canned answers.
type stubMeta struct {
	capture CaptureResult
	thumb   ThumbnailResult
	calls   []string
}

func (m *stubMeta) CaptureTime(path string) CaptureResult {
	m.calls = append(m.calls, path)
	return m.capture
}

func (m *stubMeta) Thumbnail(path string) ThumbnailResult {
	return m.thumb
}
