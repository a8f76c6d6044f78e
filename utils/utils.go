package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w.\-]`)

// SanitizeFilename strips directories and anything outside [A-Za-z0-9_.-].
func SanitizeFilename(name string) string {
	clean := unsafeFilenameChars.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" || clean == "." {
		return "file"
	}
	return clean
}

// Ext returns the lower-cased extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
