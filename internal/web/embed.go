// Package web locates the optional clock face bundle served next to the API.
// The daemon renders nothing itself; a bundle is any static client that
// talks to /api and /api/ws.
package web

import (
	"embed"
	"io/fs"
	"os"
	"sync"
)

// IndexFile is the bundle entry point.
const IndexFile = "index.html"

// SourceEmbedded is reported by Assets for a bundle built into the binary.
const SourceEmbedded = "embedded"

// set by embed_prod.go
var (
	embeddedFS  embed.FS
	hasEmbedded bool
)

var (
	subOnce sync.Once
	subFS   fs.FS
)

// embedded returns the embedded bundle rooted at its web/ directory, or nil.
func embedded() fs.FS {
	if !hasEmbedded {
		return nil
	}
	subOnce.Do(func() {
		if sub, err := fs.Sub(embeddedFS, "web"); err == nil {
			subFS = sub
		}
	})
	return subFS
}

// Assets returns the bundle to serve and where it came from. Embedded assets
// win over dir. Returns nil when neither has an index.html.
func Assets(dir string) (fs.FS, string) {
	if efs := embedded(); efs != nil && HasIndex(efs) {
		return efs, SourceEmbedded
	}
	if dir != "" {
		if dfs := os.DirFS(dir); HasIndex(dfs) {
			return dfs, dir
		}
	}
	return nil, ""
}

// HasIndex reports whether fsys holds an index.html.
func HasIndex(fsys fs.FS) bool {
	info, err := fs.Stat(fsys, IndexFile)
	return err == nil && !info.IsDir()
}

// IsFile reports whether name is a regular file in fsys. Invalid paths,
// including any containing "..", are not files.
func IsFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
