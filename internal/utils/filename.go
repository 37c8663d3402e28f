package utils

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"
)

// DefaultFilename is used when sanitising leaves nothing of the original name.
const DefaultFilename = "book"

var (
	// Anything outside this set is dropped from stored filenames
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	// Runs of whitespace become a single underscore
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// SecureFilename reduces an uploaded file name to a safe basename: accents
// are folded to ASCII, path separators and traversal sequences removed,
// whitespace replaced by underscores and every other character outside
// [A-Za-z0-9_.-] dropped. An empty result becomes DefaultFilename.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > 0x7f {
			return -1
		}
		return r
	}, name)

	// Separators split path components; joining them with spaces keeps the
	// words but never the structure.
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	// Limit length (most filesystems support 255, leave room for a key prefix)
	if len(name) > 200 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = strings.Trim(name[:200-len(ext)], "._") + ext
	}

	if name == "" {
		return DefaultFilename
	}
	return name
}

// FileExtension returns the lowercased extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// HasAllowedExtension reports whether name ends in one of allowed
// (compared case-insensitively, entries with or without a leading dot).
func HasAllowedExtension(name string, allowed []string) bool {
	ext := FileExtension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// FormatSize renders a byte count for display, e.g. "2.4 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
