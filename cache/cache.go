package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// File-backed cache for rendered public pages. The backend is remote and can
// be slow or briefly unreachable; serving a recent copy of the blog pages
// keeps the public site responsive. Admin mutations clear the whole cache.

const cacheDir = "cache/pages"

// GetCachePath returns the cache file path for a request path.
func GetCachePath(requestPath string) string {
	hash := xxhash.Sum64String(requestPath)
	return filepath.Join(cacheDir, fmt.Sprintf("%016x.html", hash))
}

func ensureCacheDir() error {
	return os.MkdirAll(cacheDir, 0755)
}

// Write stores rendered HTML for a request path.
func Write(requestPath, html string) error {
	if err := ensureCacheDir(); err != nil {
		return err
	}
	return os.WriteFile(GetCachePath(requestPath), []byte(html), 0644)
}

// Read returns the cached HTML for a request path if present and fresh.
func Read(requestPath string, maxAge time.Duration) (string, bool) {
	path := GetCachePath(requestPath)

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// ClearAll drops every cached page. Called after any post mutation, since the
// backend owns the data and we cannot tell which pages changed; per-entry
// invalidation would miss the list and search variants anyway.
func ClearAll() error {
	return os.RemoveAll(cacheDir)
}
