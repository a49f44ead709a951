//go:build embed_web

package web

import "embed"

// Built with -tags embed_web; internal/web/web must hold the bundle.
//
//go:embed all:web
var prodFS embed.FS

func init() {
	embeddedFS = prodFS
	hasEmbedded = true
}
