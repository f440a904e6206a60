// Package utils checks the resume and job description files handed to the
// command line tools.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MaxDocumentBytes caps a resume or job description read from disk, the same
// cap the server puts on resume uploads
const MaxDocumentBytes = 10 << 20

// documentExtensions are the extensions resume.DetectFormat parses directly
var documentExtensions = []string{".pdf", ".docx", ".txt", ".md", ".markdown"}

// CheckDocument reports the size of a resume or job description on disk. It
// fails for a missing path, a directory, an empty file or one above
// MaxDocumentBytes.
func CheckDocument(path string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("no document path given")
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return 0, fmt.Errorf("document %s does not exist", path)
	case err != nil:
		return 0, fmt.Errorf("cannot stat document %s: %w", path, err)
	case info.IsDir():
		return 0, fmt.Errorf("%s is a directory, expected a resume or job description", path)
	case info.Size() == 0:
		return 0, fmt.Errorf("document %s is empty", path)
	case info.Size() > MaxDocumentBytes:
		return 0, fmt.Errorf("document %s has %d bytes, the limit is %d", path, info.Size(), MaxDocumentBytes)
	}
	return info.Size(), nil
}

// IsDocumentFile reports whether the extension alone selects a parser; other
// files are sniffed by content
func IsDocumentFile(path string) bool {
	return slices.Contains(documentExtensions, extension(path))
}

// PrepareReportPath creates the parent directory of a report file and checks
// its extension against allowed. An empty path means stdout.
func PrepareReportPath(path string, allowed ...string) error {
	if path == "" {
		return nil
	}
	if len(allowed) > 0 && !slices.Contains(allowed, extension(path)) {
		return fmt.Errorf("report %s must end in one of %s", path, strings.Join(allowed, ", "))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create report directory %s: %w", dir, err)
		}
	}
	return nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
