package herdform

import (
	"io/fs"

	"github.com/goliatone/go-herdform/pkg/fragments"
)

// RuntimeAssetsFS exposes the browser runtime served by the fragment server
// so other applications can mount it next to their own pages.
//
// Typical mount:
//
//	mux.Handle("/herdform/",
//	  http.StripPrefix("/herdform/",
//	    http.FileServerFS(herdform.RuntimeAssetsFS()),
//	  ),
//	)
func RuntimeAssetsFS() fs.FS {
	return fragments.AssetsFS()
}
