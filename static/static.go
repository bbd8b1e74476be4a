// Package static holds the web assets served by the tracing server.
package static

import (
	"embed"
	"io/fs"
)

const IndexFile = "index.html"

//go:embed index.html
var assets embed.FS

// FS returns the embedded assets.
func FS() fs.FS {
	return assets
}

// Index returns the content of the tracing page.
func Index() []byte {
	b, err := fs.ReadFile(assets, IndexFile)
	if err != nil {
		// embedされているので失敗しない
		panic(err)
	}
	return b
}
