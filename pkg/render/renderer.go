package render

import (
	"context"
)

// Renderer turns view-models into a byte representation (HTML fragments,
// terminal text).
type Renderer interface {
	Name() string
	ContentType() string
	RenderStatus(ctx context.Context, view StatusView, options RenderOptions) ([]byte, error)
	RenderList(ctx context.Context, view ListView, options RenderOptions) ([]byte, error)
	RenderAlert(ctx context.Context, view AlertView, options RenderOptions) ([]byte, error)
}
