package main

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register maker note handlers
	exif.RegisterParsers(mknote.All...)
}

// MetaState says how a metadata field was obtained.
type MetaState int

const (
	MetaAbsent MetaState = iota
	MetaPresent
	MetaInferred
	MetaUnreadable
)

func (s MetaState) String() string {
	switch s {
	case MetaPresent:
		return "present"
	case MetaInferred:
		return "inferred"
	case MetaUnreadable:
		return "unreadable"
	default:
		return "absent"
	}
}

// CaptureResult is the capture timestamp of an image and how it was found.
type CaptureResult struct {
	State  MetaState
	Time   time.Time
	Status string // human-readable, shown in the EXIF status column
	Err    error
}

// Capture status texts.
const (
	captureStatusPresent    = "has capture time"
	captureStatusNoOriginal = "no DateTimeOriginal"
	captureStatusNoExif     = "no EXIF data"
	captureStatusFromName   = "date from filename"
	captureStatusUnreadable = "unreadable"
)

var errNoDateTimeOriginal = errors.New("no DateTimeOriginal tag")

// MetadataProvider extracts catalogue metadata from an image on disk.
type MetadataProvider interface {
	CaptureTime(path string) CaptureResult
	Thumbnail(path string) ThumbnailResult
}

// PhotoMetadata is the default MetadataProvider: goexif first, exiftool for
// formats goexif cannot parse, filename dates as the last resort.
type PhotoMetadata struct {
	ThumbnailBox int
	UseExiftool  bool
	NameDates    bool
}

// CaptureTime implements MetadataProvider.
func (m *PhotoMetadata) CaptureTime(path string) CaptureResult {
	tm, err := ReadDateTimeOriginal(path)
	if err == nil {
		return CaptureResult{State: MetaPresent, Time: tm, Status: captureStatusPresent}
	}

	var res CaptureResult
	switch {
	case errors.Is(err, errNoDateTimeOriginal):
		res = CaptureResult{State: MetaAbsent, Status: captureStatusNoOriginal}
	case isDecodable(path):
		res = CaptureResult{State: MetaAbsent, Status: captureStatusNoExif}
	default:
		return CaptureResult{State: MetaUnreadable, Status: captureStatusUnreadable, Err: err}
	}

	if m.UseExiftool {
		if tm, ok := ReadTimestampWithExiftool(path); ok {
			return CaptureResult{State: MetaPresent, Time: tm, Status: captureStatusPresent}
		}
	}

	if m.NameDates {
		if info, err := ParseDateFromFilename(filepath.Base(path)); err == nil {
			return CaptureResult{State: MetaInferred, Time: info.ToTime(), Status: captureStatusFromName}
		}
	}

	return res
}

// ReadDateTimeOriginal reads the EXIF DateTimeOriginal of a photo file.
func ReadDateTimeOriginal(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode exif: %w", err)
	}

	if _, err := x.Get(exif.DateTimeOriginal); err != nil {
		return time.Time{}, errNoDateTimeOriginal
	}

	tm, err := x.DateTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse DateTimeOriginal: %w", err)
	}
	return tm, nil
}

// isDecodable reports whether the file has a recognizable image header.
func isDecodable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(io.LimitReader(f, 1<<20))
	return err == nil
}
