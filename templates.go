package herdform

import (
	"io/fs"

	"github.com/goliatone/go-herdform/pkg/renderers/html"
)

// EmbeddedTemplates exposes the built-in fragment templates so callers can
// copy or extend them and load the result with html.WithTemplatesDir.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
