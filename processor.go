package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogProcessor runs one catalogue pass: extract, resolve, materialize,
// build records, export. It keeps no state between runs.
type CatalogProcessor struct {
	config *Config
	meta   MetadataProvider
	stats  StatProvider
}

// ProcessStats tracks statistics for one run
type ProcessStats struct {
	TotalRows        int
	SourceFiles      int
	Renamed          int
	Unchanged        int
	SkippedMalformed int
	SkippedDuplicate int
	SourceMissing    int
	CopyFailed       int
	KeptOriginal     int
	Thumbnails       int
	CaptureTimes     int
	Elapsed          time.Duration
}

// RunResult is everything a run produced. The caller owns it; nothing is
// cached by the processor.
type RunResult struct {
	RunID           string
	OutputDir       string
	Sequence        int
	ArchiveName     string
	SpreadsheetName string
	Archive         []byte
	Spreadsheet     []byte
	Log             []string
	Records         []IndexRecord
	Stats           ProcessStats
	Published       []string
	PublishErr      error
}

// NewCatalogProcessor creates a processor for config.
func NewCatalogProcessor(config *Config) *CatalogProcessor {
	return &CatalogProcessor{
		config: config,
		meta: &PhotoMetadata{
			ThumbnailBox: config.ThumbnailBox,
			UseExiftool:  config.UseExiftool,
			NameDates:    config.NameDates,
		},
		stats: osStat{},
	}
}

// Run executes the pass. Row-level problems end up in the log; only
// configuration, I/O and cancellation errors are returned, in which case no
// output directory is left behind.
func (p *CatalogProcessor) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := withRun(runID)

	workDir, err := os.MkdirTemp("", "photo-catalog-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warnw("failed to remove work directory", "dir", workDir, zap.Error(err))
		}
	}()

	archivePath, sheetPath, err := p.fetchInputs(workDir)
	if err != nil {
		return nil, err
	}

	extracted, err := ExtractArchive(archivePath, workDir, p.config.Include)
	if err != nil {
		return nil, err
	}
	sources := NewSourceIndex(extracted.Files)
	log.Infow("archive extracted", "files", len(extracted.Files), "batch_folder", extracted.BatchFolder)

	directives, err := p.loadDirectives(sheetPath, sources)
	if err != nil {
		return nil, err
	}

	reserved := append(ReservedNames(sources, directives), p.config.SpreadsheetName)
	resolved := Resolve(directives, ResolveOptions{
		ImageOnly: p.config.ImageOnly,
		Reserved:  reserved,
		Sources:   sources,
	})

	stageDir := filepath.Join(workDir, "out")
	entries, err := Materialize(ctx, sources, resolved, stageDir, MaterializeOptions{KeepSkippedOriginals: p.config.KeepSkipped})
	if err != nil {
		return nil, fmt.Errorf("run cancelled after %d of %d rows: %w", len(entries), len(resolved), err)
	}

	records := BuildRecords(directives, resolved, entries, p.stats, p.meta, PathRef{
		Root:        p.config.RootPath,
		BatchFolder: extracted.BatchFolder,
	})

	exported, err := Export(records, ExportOptions{
		SheetName:       p.config.SheetName,
		SpreadsheetName: p.config.SpreadsheetName,
		ThumbnailBox:    p.config.ThumbnailBox,
	})
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:           runID,
		ArchiveName:     filepath.Base(p.config.ArchivePath),
		SpreadsheetName: exported.SpreadsheetName,
		Archive:         exported.Archive,
		Spreadsheet:     exported.Spreadsheet,
		Records:         records,
	}
	for _, rec := range records {
		result.Log = append(result.Log, rec.Log)
	}
	result.Stats = collectStats(records, resolved, len(extracted.Files))

	if err := p.persist(result); err != nil {
		return nil, err
	}

	// Local results stay in place when publishing fails.
	if p.config.PublishHost != "" {
		result.Published, result.PublishErr = p.publish(result)
		if result.PublishErr != nil {
			log.Errorw("publish failed", "host", p.config.PublishHost, zap.Error(result.PublishErr))
		}
	}

	result.Stats.Elapsed = time.Since(start)
	log.Infow("run complete",
		"output_dir", result.OutputDir,
		"rows", result.Stats.TotalRows,
		"renamed", result.Stats.Renamed,
		"elapsed", formatDuration(result.Stats.Elapsed))

	return result, nil
}

// fetchInputs returns local paths of the archive and sheet, downloading them
// into workDir first when they live on a remote host.
func (p *CatalogProcessor) fetchInputs(workDir string) (string, string, error) {
	if p.config.SSHHost == "" {
		return p.config.ArchivePath, p.config.SheetPath, nil
	}

	Infof("Fetching inputs from %s", p.config.SSHHost)
	client, err := NewSSHClient(p.config.SSHHost)
	if err != nil {
		return "", "", fmt.Errorf("failed to create SSH client for source: %w", err)
	}
	defer client.Close()

	archivePath := filepath.Join(workDir, "input.zip")
	if err := client.DownloadFile(p.config.ArchivePath, archivePath); err != nil {
		return "", "", err
	}

	var sheetPath string
	if p.config.SheetPath != "" {
		sheetPath = filepath.Join(workDir, "input.xlsx")
		if err := client.DownloadFile(p.config.SheetPath, sheetPath); err != nil {
			return "", "", err
		}
	}
	return archivePath, sheetPath, nil
}

// loadDirectives reads the rename sheet. In index mode every source file
// gets a directive flattening it to its base name.
func (p *CatalogProcessor) loadDirectives(sheetPath string, sources *SourceIndex) ([]RenameDirective, error) {
	if sheetPath == "" {
		files := sources.Files()
		Infof("No spreadsheet given; indexing %d images", len(files))
		directives := make([]RenameDirective, len(files))
		for i, f := range files {
			directives[i] = RenameDirective{Row: i + 1, Original: f.RelPath, NewName: f.Name}
		}
		return directives, nil
	}

	f, err := os.Open(sheetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	directives, err := ReadDirectives(f)
	if errors.Is(err, ErrMissingColumn) {
		return nil, &ConfigError{Err: err}
	}
	return directives, err
}

// persist writes the artifacts into the next res<N> folder. A failed write
// removes the folder.
func (p *CatalogProcessor) persist(result *RunResult) (err error) {
	dir, seq, err := NextOutputDir(p.config.OutputBase, p.config.OutputPrefix)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	files := map[string][]byte{
		result.ArchiveName:     result.Archive,
		result.SpreadsheetName: result.Spreadsheet,
		"rename.log":           []byte(strings.Join(result.Log, "\n") + "\n"),
	}
	for name, data := range files {
		if err = os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	result.OutputDir = dir
	result.Sequence = seq
	return nil
}

func (p *CatalogProcessor) publish(result *RunResult) ([]string, error) {
	client, err := NewSSHClient(p.config.PublishHost)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH client for destination: %w", err)
	}
	defer client.Close()

	var published []string
	for _, name := range []string{result.ArchiveName, result.SpreadsheetName} {
		remote, err := client.Publish(filepath.Join(result.OutputDir, name), p.config.PublishDir)
		if err != nil {
			return published, fmt.Errorf("failed to publish %s: %w", name, err)
		}
		published = append(published, remote)
	}
	return published, nil
}

func collectStats(records []IndexRecord, resolved []ResolvedName, sourceFiles int) ProcessStats {
	stats := ProcessStats{TotalRows: len(records), SourceFiles: sourceFiles}
	for i, rec := range records {
		switch rec.Outcome {
		case OutcomeCopied:
			if resolved[i].Candidate == resolved[i].Original {
				stats.Unchanged++
			} else {
				stats.Renamed++
			}
		case OutcomeSourceMissing:
			stats.SourceMissing++
		case OutcomeSkippedMalformed:
			stats.SkippedMalformed++
		case OutcomeSkippedDuplicate:
			stats.SkippedDuplicate++
		case OutcomeCopyFailed:
			stats.CopyFailed++
		case OutcomeKeptOriginal:
			stats.KeptOriginal++
		}
		if rec.Thumbnail.State == MetaPresent {
			stats.Thumbnails++
		}
		if rec.Capture.State == MetaPresent || rec.Capture.State == MetaInferred {
			stats.CaptureTimes++
		}
	}
	return stats
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// printStats prints processing statistics
func printStats(stats ProcessStats) {
	fmt.Println("\n=== Catalogue Statistics ===")
	fmt.Printf("Rows:                   %d\n", stats.TotalRows)
	fmt.Printf("Images in archive:      %d\n", stats.SourceFiles)
	fmt.Printf("Renamed:                %d\n", stats.Renamed)
	fmt.Printf("Unchanged:              %d\n", stats.Unchanged)
	fmt.Printf("Skipped (invalid name): %d\n", stats.SkippedMalformed)
	fmt.Printf("Skipped (duplicate):    %d\n", stats.SkippedDuplicate)
	fmt.Printf("Skipped (missing):      %d\n", stats.SourceMissing)
	fmt.Printf("Copy failures:          %d\n", stats.CopyFailed)
	fmt.Printf("Kept originals:         %d\n", stats.KeptOriginal)
	fmt.Printf("Thumbnails:             %d\n", stats.Thumbnails)
	fmt.Printf("Capture times:          %d\n", stats.CaptureTimes)
	fmt.Printf("Elapsed:                %s\n", formatDuration(stats.Elapsed))
	fmt.Println("============================")
}
