// Package archive holds the Archive Handler Contract (C4): the shared
// path-safety check every concrete format package applies to its entry
// names. The concrete container formats live in the
// archive/flatpack and archive/genericpak subpackages.
package archive

import (
	"path"
	"strings"

	"github.com/castellan/extract/failure"
)

// ValidateEntryPath rejects a logical entry path that would escape the
// extraction output directory: absolute paths, paths containing a ".."
// component once cleaned, and paths that resolve to the root itself.
// Handlers call this before ever joining an entry name onto an output
// directory. Grounded on the sandboxing boundary named in
// original_source/aegis-security/src/sandbox.rs, reworked here as a
// pure path check rather than a process-isolation layer.
func ValidateEntryPath(logicalPath string) error {
	if logicalPath == "" {
		return failure.ErrDataCorruption
	}

	cleaned := path.Clean(strings.ReplaceAll(logicalPath, "\\", "/"))

	if path.IsAbs(cleaned) {
		return failure.ErrDataCorruption
	}
	// A Windows drive-letter path ("C:/...") is absolute too.
	if len(cleaned) >= 2 && cleaned[1] == ':' && (cleaned[0]|0x20) >= 'a' && (cleaned[0]|0x20) <= 'z' {
		return failure.ErrDataCorruption
	}
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return failure.ErrDataCorruption
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return failure.ErrDataCorruption
		}
	}
	return nil
}
