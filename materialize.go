package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaterializeOutcome records what happened to one row in the output area.
type MaterializeOutcome int

const (
	OutcomeCopied MaterializeOutcome = iota
	OutcomeSourceMissing
	OutcomeSkippedMalformed
	OutcomeSkippedDuplicate
	OutcomeCopyFailed
	OutcomeKeptOriginal
)

func (o MaterializeOutcome) String() string {
	switch o {
	case OutcomeCopied:
		return "copied"
	case OutcomeSourceMissing:
		return "source-missing"
	case OutcomeSkippedMalformed:
		return "skipped-malformed"
	case OutcomeSkippedDuplicate:
		return "skipped-duplicate"
	case OutcomeCopyFailed:
		return "copy-failed"
	case OutcomeKeptOriginal:
		return "kept-original"
	default:
		return "unknown"
	}
}

// MaterializeEntry is the materializer's record for one row.
type MaterializeEntry struct {
	Row     int
	Outcome MaterializeOutcome
	// OutputName is the file name written into the output area; empty when nothing was written.
	OutputName string
	OutputPath string
	Source     SourceFile
	Err        error
}

// Written reports whether a file backs this row in the output area.
func (e MaterializeEntry) Written() bool {
	return e.OutputName != ""
}

// MaterializeOptions tunes the materializer.
type MaterializeOptions struct {
	// KeepSkippedOriginals copies the source of a rejected row under its
	// original name when no accepted row claims that name.
	KeepSkippedOriginals bool
}

// Materialize copies every accepted row's source into outDir under its
// resolved name, one row at a time in directive order. Rows that cannot be
// materialized are recorded, never raised.
//
// ctx is checked between rows. On cancellation the entries produced so far
// are returned with ctx.Err(); every file already in outDir is complete.
func Materialize(ctx context.Context, sources SourceLookup, resolved []ResolvedName, outDir string, opts MaterializeOptions) ([]MaterializeEntry, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	claimed := make(map[string]bool, len(resolved))
	for _, r := range resolved {
		if r.Accepted() {
			claimed[collisionKey(r.Candidate)] = true
		}
	}

	entries := make([]MaterializeEntry, 0, len(resolved))
	for _, r := range resolved {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		entry := MaterializeEntry{Row: r.Row}
		src, found := sources.Lookup(r.Original)
		if found {
			entry.Source = src
		}

		switch {
		case r.Accepted() && !found:
			entry.Outcome = OutcomeSourceMissing
		case r.Accepted():
			entry.Outcome = OutcomeCopied
			entry.Err = copyInto(src, outDir, r.Candidate, &entry)
		default:
			entry.Outcome = OutcomeSkippedMalformed
			if r.Status == StatusRejectedDuplicate {
				entry.Outcome = OutcomeSkippedDuplicate
			}
			if opts.KeepSkippedOriginals && found && IsLegalFilename(src.Name) && !claimed[collisionKey(src.Name)] {
				claimed[collisionKey(src.Name)] = true
				entry.Outcome = OutcomeKeptOriginal
				entry.Err = copyInto(src, outDir, src.Name, &entry)
			}
		}

		if entry.Err != nil {
			Warnf("Copy failed for row %d (%s): %v", r.Row, r.Original, entry.Err)
			entry.Outcome = OutcomeCopyFailed
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func copyInto(src SourceFile, outDir, name string, entry *MaterializeEntry) error {
	dest := filepath.Join(outDir, name)
	if err := copyFile(src, dest); err != nil {
		return err
	}
	entry.OutputName = name
	entry.OutputPath = dest
	return nil
}

// copyFile writes src to dst through a temporary file in the same directory
// and renames it into place, so dst is either absent or complete.
func copyFile(src SourceFile, dst string) (err error) {
	in, err := src.Open()
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	tmpPath := fmt.Sprintf("%s.%s.tmp", dst, uuid.New().String()[:8])
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if !src.ModTime.IsZero() {
		if chErr := os.Chtimes(tmpPath, src.ModTime, src.ModTime); chErr != nil {
			Debugf("Could not carry modification time to %s: %v", dst, chErr)
		}
	}

	if err = os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to move into place: %w", err)
	}
	return nil
}
