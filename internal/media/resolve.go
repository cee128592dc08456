package media

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveSource finds a source media file on disk given a caller-supplied
// reference, which may be absolute, relative to the media directory, or a
// path recorded on another machine that shares a tail with mediaDir.
// Priority: 1) absolute ref  2) mediaDir/ref  3) tail of ref under mediaDir.
func ResolveSource(mediaDir, ref string) string {
	if ref == "" {
		return ""
	}

	if filepath.IsAbs(ref) {
		if _, err := os.Stat(ref); err == nil {
			return ref
		}
	}

	if mediaDir == "" {
		return ""
	}

	full := filepath.Join(mediaDir, ref)
	if _, err := os.Stat(full); err == nil {
		return full
	}

	// Recorded absolute paths from other hosts (e.g. /app/media/a/b.mp4):
	// try every suffix of the path under mediaDir.
	parts := strings.Split(filepath.ToSlash(ref), "/")
	for i := range parts {
		if i == 0 {
			continue
		}
		candidate := filepath.Join(mediaDir, filepath.Join(parts[i:]...))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
