package main

import (
	"path/filepath"
	"regexp"
	"strings"
)

// filenamePattern is the filename grammar: a non-empty base of ASCII letters,
// digits, underscore or hyphen, one dot, and an alphanumeric extension.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+\.[A-Za-z0-9]+$`)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// NormalizeTarget turns a raw target name from the spreadsheet into a
// candidate filename and reports whether the candidate is legal.
//
// An empty target keeps the original name. A target without an extension
// inherits the original's extension. Validity is a charset check only; the
// image allow-list is applied by the resolver.
func NormalizeTarget(original, rawTarget string) (string, bool) {
	original = strings.TrimSpace(original)
	target := strings.TrimSpace(rawTarget)

	if target == "" {
		return original, IsLegalFilename(original)
	}

	if filepath.Ext(target) == "" {
		target += filepath.Ext(original)
	}

	return target, IsLegalFilename(target)
}

// IsLegalFilename reports whether name matches the filename grammar.
func IsLegalFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// HasImageExtension reports whether name ends in one of the catalogued
// image extensions (case-insensitive).
func HasImageExtension(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
