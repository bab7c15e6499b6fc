package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludePatterns selects the images catalogued from an archive.
// Patterns match case-insensitively.
var DefaultIncludePatterns = []string{"**/*.{jpg,jpeg,png,webp}"}

// SourceFile is one extracted archive entry. It is never modified after extraction.
type SourceFile struct {
	RelPath string // slash path relative to the batch folder
	Name    string // base name
	Size    int64
	ModTime time.Time
	Path    string // location on disk inside the extraction area
}

// Open returns a reader over the extracted content.
func (s SourceFile) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// SourceLookup finds the source file a directive refers to.
type SourceLookup interface {
	Lookup(name string) (SourceFile, bool)
}

// SourceIndex indexes extracted files by relative path and by base name.
type SourceIndex struct {
	files  []SourceFile
	byPath map[string]int
	byName map[string][]int
}

// NewSourceIndex builds an index over files.
func NewSourceIndex(files []SourceFile) *SourceIndex {
	idx := &SourceIndex{
		files:  files,
		byPath: make(map[string]int, len(files)),
		byName: make(map[string][]int, len(files)),
	}
	for i, f := range files {
		idx.byPath[f.RelPath] = i
		idx.byName[f.Name] = append(idx.byName[f.Name], i)
	}
	return idx
}

// Lookup matches name against relative paths first and falls back to a base
// name that is unique within the archive.
func (idx *SourceIndex) Lookup(name string) (SourceFile, bool) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return SourceFile{}, false
	}
	if i, ok := idx.byPath[strings.TrimPrefix(name, "/")]; ok {
		return idx.files[i], true
	}
	if hits := idx.byName[path.Base(name)]; len(hits) == 1 {
		return idx.files[hits[0]], true
	}
	return SourceFile{}, false
}

// Files returns the indexed files in archive order.
func (idx *SourceIndex) Files() []SourceFile {
	return idx.files
}

// ExtractedArchive is the result of unpacking an uploaded archive.
type ExtractedArchive struct {
	Files []SourceFile
	// BatchFolder is the single top-level folder the archive was wrapped in, if any.
	BatchFolder string
}

// ExtractArchive unpacks the entries of zipPath matching patterns into destDir.
func ExtractArchive(zipPath, destDir string, patterns []string) (*ExtractedArchive, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	if len(patterns) == 0 {
		patterns = DefaultIncludePatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}

	var entries []*zip.File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || skipEntry(zf.Name) {
			continue
		}
		name := entryName(zf)
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return nil, fmt.Errorf("archive entry escapes extraction directory: %s", zf.Name)
		}
		entries = append(entries, zf)
	}

	batch := detectBatchFolder(entries)
	root := filepath.Join(destDir, "extract")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	result := &ExtractedArchive{BatchFolder: batch}
	for _, zf := range entries {
		name := entryName(zf)
		if !matchesAny(patterns, name) {
			Debugf("Skipping archive entry (not an image): %s", zf.Name)
			continue
		}

		rel := name
		if batch != "" {
			rel = strings.TrimPrefix(name, batch+"/")
		}
		dest := filepath.Join(root, filepath.FromSlash(rel))
		if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry escapes extraction directory: %s", zf.Name)
		}

		size, err := extractEntry(zf, dest)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", zf.Name, err)
		}

		modTime := zf.Modified
		if modTime.IsZero() {
			modTime = zf.FileInfo().ModTime()
		}
		if err := os.Chtimes(dest, modTime, modTime); err != nil {
			Warnf("Could not restore modification time for %s: %v", rel, err)
		}

		result.Files = append(result.Files, SourceFile{
			RelPath: rel,
			Name:    path.Base(rel),
			Size:    size,
			ModTime: modTime,
			Path:    dest,
		})
	}

	return result, nil
}

func extractEntry(zf *zip.File, dest string) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}

	rc, err := zf.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, cerr)
		}
	}()

	return io.Copy(out, rc)
}

// detectBatchFolder returns the first path component when every entry shares it.
func detectBatchFolder(entries []*zip.File) string {
	roots := make(map[string]bool)
	for _, zf := range entries {
		first, _, nested := strings.Cut(entryName(zf), "/")
		if !nested {
			return ""
		}
		roots[first] = true
	}
	if len(roots) != 1 {
		return ""
	}
	for root := range roots {
		return root
	}
	return ""
}

func entryName(zf *zip.File) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(zf.Name, "\\", "/")), "./")
}

func skipEntry(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

func matchesAny(patterns []string, name string) bool {
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(p), name); ok {
			return true
		}
	}
	return false
}

// ArchiveEntry is one file written into an output archive.
type ArchiveEntry struct {
	Name    string
	Path    string // file on disk; used when Content is nil
	Content []byte
	ModTime time.Time
}

// WriteArchive writes entries into a deflated ZIP, sorted by name.
func WriteArchive(w io.Writer, entries []ArchiveEntry) error {
	sorted := append([]ArchiveEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	zw := zip.NewWriter(w)
	for _, e := range sorted {
		if err := writeArchiveEntry(zw, e); err != nil {
			zw.Close()
			return fmt.Errorf("failed to add %s to archive: %w", e.Name, err)
		}
	}
	return zw.Close()
}

func writeArchiveEntry(zw *zip.Writer, e ArchiveEntry) error {
	hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
	if !e.ModTime.IsZero() {
		hdr.Modified = e.ModTime
	}

	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	if e.Content != nil {
		_, err = fw.Write(e.Content)
		return err
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(fw, f)
	return err
}
