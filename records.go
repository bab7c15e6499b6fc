package main

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

// StatProvider reports size and modification time of a file on disk.
type StatProvider interface {
	Stat(path string) (os.FileInfo, error)
}

// osStat is the StatProvider backed by the local file system.
type osStat struct{}

func (osStat) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

// PathRef builds the textual path reference written into the catalogue.
// It never touches the file system.
type PathRef struct {
	Root        string
	BatchFolder string
}

// For returns file:///<root>/<batch>/<name> with forward slashes.
func (p PathRef) For(name string) string {
	root := strings.TrimRight(strings.ReplaceAll(p.Root, "\\", "/"), "/")
	parts := []string{name}
	if p.BatchFolder != "" {
		parts = []string{p.BatchFolder, name}
	}
	rel := path.Join(parts...)
	if root == "" {
		return "file:///" + rel
	}
	return "file:///" + strings.TrimPrefix(root+"/"+rel, "/")
}

// IndexRecord is the catalogue row emitted for one directive.
type IndexRecord struct {
	Row         int
	Filename    string // resolved name when written, original otherwise
	Directive   string // raw new-name cell as submitted
	Description string
	PathRef     string
	Spatial     [3]SpatialTag
	Extra       []Passenger

	// File is the backing file in the output area; empty when none was written.
	File    string
	ModTime time.Time
	SizeKB  float64
	HasSize bool
	Capture CaptureResult

	Thumbnail ThumbnailResult
	Outcome   MaterializeOutcome
	Log       string
}

// BuildRecords assembles one IndexRecord per directive, in directive order.
// Size, time and capture fields are read from the file written to the output
// area; rows without a written file keep them blank.
func BuildRecords(directives []RenameDirective, resolved []ResolvedName, entries []MaterializeEntry, stats StatProvider, meta MetadataProvider, ref PathRef) []IndexRecord {
	records := make([]IndexRecord, len(directives))
	for i, d := range directives {
		r := resolved[i]
		rec := IndexRecord{
			Row:         d.Row,
			Filename:    r.Original,
			Directive:   d.NewName,
			Description: d.Description,
			Spatial:     d.Spatial,
			Extra:       d.Extra,
		}

		// Materialize stops early on cancellation; later rows stay unwritten.
		if i < len(entries) {
			e := entries[i]
			rec.Outcome = e.Outcome
			if e.Written() {
				rec.Filename = e.OutputName
				rec.File = e.OutputPath
			}
			rec.Log = outcomeLog(r, e)
		} else {
			rec.Outcome = OutcomeCopyFailed
			rec.Log = "skipped: run cancelled"
		}
		rec.PathRef = ref.For(rec.Filename)

		if rec.File != "" {
			fillFileFields(&rec, stats, meta)
		}
		records[i] = rec
	}
	return records
}

func fillFileFields(rec *IndexRecord, stats StatProvider, meta MetadataProvider) {
	if info, err := stats.Stat(rec.File); err == nil {
		rec.ModTime = info.ModTime()
		rec.SizeKB = float64(info.Size()) / 1024
		rec.HasSize = true
	} else {
		Warnf("Could not stat %s: %v", rec.File, err)
	}

	rec.Capture = meta.CaptureTime(rec.File)
	if rec.Capture.State == MetaUnreadable {
		Debugf("Capture time unreadable for %s: %v", rec.Filename, rec.Capture.Err)
	}

	rec.Thumbnail = meta.Thumbnail(rec.File)
	if rec.Thumbnail.State != MetaPresent {
		Warnf("No thumbnail for %s: %v", rec.Filename, rec.Thumbnail.Err)
	}
}

// outcomeLog renders the one-line audit entry for a row.
func outcomeLog(r ResolvedName, e MaterializeEntry) string {
	switch e.Outcome {
	case OutcomeCopied:
		return fmt.Sprintf("renamed %s → %s", r.Original, e.OutputName)
	case OutcomeSourceMissing:
		return "skipped: source file missing"
	case OutcomeSkippedDuplicate:
		return "skipped: duplicate target"
	case OutcomeSkippedMalformed:
		return "skipped: name invalid"
	case OutcomeKeptOriginal:
		if r.Status == StatusRejectedDuplicate {
			return fmt.Sprintf("skipped: duplicate target (kept %s)", e.OutputName)
		}
		return fmt.Sprintf("skipped: name invalid (kept %s)", e.OutputName)
	case OutcomeCopyFailed:
		return fmt.Sprintf("skipped: copy failed (%v)", e.Err)
	default:
		return "skipped"
	}
}
