package fragments

import (
	"embed"
	"io/fs"
)

//go:embed assets/*.js
var embeddedAssets embed.FS

// AssetsFS exposes the browser runtime that posts forms to this server and
// swaps the returned fragments into the page.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}
