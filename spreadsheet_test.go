package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDirectives(t *testing.T) {
	data := sheetBytes(t, [][]any{
		{"Filename", "New Name", "Description", "gx", "gy", "gz", "Album"},
		{"a.jpg", "beach", "sunset", "1.5", "north", "", "summer"},
		{},
		{" b.jpg ", "", "", "", "", "-3"},
	})

	got, err := ReadDirectives(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)

	a := got[0]
	assert.Equal(t, 1, a.Row)
	assert.Equal(t, "a.jpg", a.Original)
	assert.Equal(t, "beach", a.NewName)
	assert.Equal(t, "sunset", a.Description)
	assert.Equal(t, SpatialTag{Raw: "1.5", Value: 1.5, Numeric: true}, a.Spatial[0])
	assert.Equal(t, SpatialTag{Raw: "north"}, a.Spatial[1])
	assert.Equal(t, SpatialTag{}, a.Spatial[2])
	assert.Equal(t, []Passenger{{Column: "Album", Value: "summer"}}, a.Extra)

	b := got[1]
	assert.Equal(t, 3, b.Row)
	assert.Equal(t, "b.jpg", b.Original)
	assert.Empty(t, b.NewName)
	assert.Equal(t, SpatialTag{Raw: "-3", Value: -3, Numeric: true}, b.Spatial[2])
	assert.Equal(t, []Passenger{{Column: "Album", Value: ""}}, b.Extra)
}

func TestReadDirectivesHeaderAliases(t *testing.T) {
	data := sheetBytes(t, [][]any{
		{"目前檔名", "新/舊檔名", "相片說明"},
		{"a.jpg", "海邊", "夕陽"},
	})

	got, err := ReadDirectives(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.jpg", got[0].Original)
	assert.Equal(t, "海邊", got[0].NewName)
	assert.Equal(t, "夕陽", got[0].Description)
	assert.Empty(t, got[0].Extra)
}

func TestReadDirectivesFirstMatchingHeaderWins(t *testing.T) {
	data := sheetBytes(t, [][]any{
		{"FILENAME", "original filename", "New name"},
		{"a.jpg", "ignored.jpg", "x"},
	})

	got, err := ReadDirectives(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.jpg", got[0].Original)
	assert.Equal(t, "x", got[0].NewName)
}

func TestReadDirectivesWithoutNewNameColumn(t *testing.T) {
	data := sheetBytes(t, [][]any{
		{"Filename"},
		{"a.jpg"},
	})

	got, err := ReadDirectives(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].NewName)
}

func TestReadDirectivesMissingFilenameColumn(t *testing.T) {
	data := sheetBytes(t, [][]any{
		{"New Name", "Description"},
		{"x", "y"},
	})

	_, err := ReadDirectives(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadDirectives(bytes.NewReader(sheetBytes(t, nil)))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadDirectivesNotASpreadsheet(t *testing.T) {
	_, err := ReadDirectives(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingColumn)
}

func TestParseSpatialTag(t *testing.T) {
	assert.Equal(t, SpatialTag{Raw: "12", Value: 12, Numeric: true}, parseSpatialTag(" 12 "))
	assert.Equal(t, SpatialTag{Raw: "1e3", Value: 1000, Numeric: true}, parseSpatialTag("1e3"))
	assert.Equal(t, SpatialTag{Raw: "N/A"}, parseSpatialTag("N/A"))
	assert.Equal(t, SpatialTag{}, parseSpatialTag(""))
}
