package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultOutputPrefix = "res"

// NextOutputDir creates and returns base/<prefix><N>, where N is one more
// than the highest sequence number already present under base.
func NextOutputDir(base, prefix string) (string, int, error) {
	if prefix == "" {
		prefix = defaultOutputPrefix
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output base %s: %w", base, err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", 0, fmt.Errorf("failed to list output base %s: %w", base, err)
	}

	next := 1
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), prefix)); err == nil && n >= next {
			next = n + 1
		}
	}

	// Mkdir fails if a concurrent run took the same number; move on to the next one.
	for {
		dir := filepath.Join(base, fmt.Sprintf("%s%d", prefix, next))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, next, nil
		}
		if !os.IsExist(err) {
			return "", 0, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
		next++
	}
}
