package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	ArchivePath     string   `yaml:"archive" validate:"required"`
	SheetPath       string   `yaml:"sheet"`                                   // Rename directives; empty in index mode
	OutputBase      string   `yaml:"output" validate:"required"`              // Parent of the res<N> folders
	OutputPrefix    string   `yaml:"output_prefix" validate:"omitempty,alphanum"`
	RootPath        string   `yaml:"root_path"`                               // Only used to build the Path column
	SheetName       string   `yaml:"sheet_name"`
	SpreadsheetName string   `yaml:"spreadsheet_name" validate:"omitempty,endswith=.xlsx"`
	ThumbnailBox    int      `yaml:"thumbnail_box" validate:"min=16,max=512"`
	Include         []string `yaml:"include" validate:"dive,required"`
	ImageOnly       bool     `yaml:"image_only"`
	KeepSkipped     bool     `yaml:"keep_skipped"` // Copy rejected rows' originals under their own name
	UseExiftool     bool     `yaml:"exiftool"`
	NameDates       bool     `yaml:"name_dates"` // Fall back to dates parsed from file names
	Verbose         bool     `yaml:"verbose"`

	SSHHost     string `yaml:"ssh_host"`     // Fetch archive/sheet from this host
	PublishHost string `yaml:"publish_host"` // Upload results to this host
	PublishDir  string `yaml:"publish_dir" validate:"required_with=PublishHost"`
}

// ConfigError reports an invalid configuration. It aborts the run before any row is processed.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// DefaultConfig returns the configuration used when no flag or file overrides it.
func DefaultConfig() *Config {
	return &Config{
		OutputBase:      "temp_images",
		OutputPrefix:    defaultOutputPrefix,
		SheetName:       defaultSheetName,
		SpreadsheetName: defaultSpreadsheetName,
		ThumbnailBox:    DefaultThumbnailBox,
		Include:         append([]string(nil), DefaultIncludePatterns...),
		ImageOnly:       true,
		NameDates:       true,
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigError{Err: fmt.Errorf("failed to parse %s: %w", path, err)}
	}
	return nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return &ConfigError{Err: errors.New(strings.Join(msgs, "; "))}
		}
		return &ConfigError{Err: err}
	}
	return nil
}
