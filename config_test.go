package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.ArchivePath = "photos.zip"
	return cfg
}

func TestDefaultConfigNeedsArchive(t *testing.T) {
	err := DefaultConfig().Validate()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "ArchivePath")

	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"thumbnail too small", func(c *Config) { c.ThumbnailBox = 4 }, "ThumbnailBox"},
		{"thumbnail too large", func(c *Config) { c.ThumbnailBox = 4096 }, "ThumbnailBox"},
		{"spreadsheet not xlsx", func(c *Config) { c.SpreadsheetName = "index.csv" }, "SpreadsheetName"},
		{"prefix with separator", func(c *Config) { c.OutputPrefix = "res/" }, "OutputPrefix"},
		{"empty include pattern", func(c *Config) { c.Include = []string{""} }, "Include[0]"},
		{"publish without directory", func(c *Config) { c.PublishHost = "user@host" }, "PublishDir"},
		{"no output base", func(c *Config) { c.OutputBase = "" }, "OutputBase"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
archive: /data/trip.zip
sheet: /data/trip.xlsx
output: /data/out
thumbnail_box: 120
keep_skipped: true
include:
  - "**/*.jpg"
`), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, cfg))

	assert.Equal(t, "/data/trip.zip", cfg.ArchivePath)
	assert.Equal(t, "/data/trip.xlsx", cfg.SheetPath)
	assert.Equal(t, "/data/out", cfg.OutputBase)
	assert.Equal(t, 120, cfg.ThumbnailBox)
	assert.True(t, cfg.KeepSkipped)
	assert.Equal(t, []string{"**/*.jpg"}, cfg.Include)
	// Keys absent from the file keep their defaults.
	assert.True(t, cfg.ImageOnly)
	assert.Equal(t, defaultSpreadsheetName, cfg.SpreadsheetName)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archive: [unterminated"), 0o644))
	err = LoadConfigFile(path, cfg)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
