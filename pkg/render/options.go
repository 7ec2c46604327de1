package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions carry per-request presentation choices.
type RenderOptions struct {
	// Messages selects how server messages are written into status
	// elements. The zero value renders text.
	Messages MessageMode
	// Theme supplies class tokens (see the Token* keys). Missing tokens fall
	// back to DefaultTokens.
	Theme *theme.RendererConfig
}

// Token resolves key from the theme, falling back to DefaultTokens.
func (o RenderOptions) Token(key string) string {
	if o.Theme != nil {
		if v, ok := o.Theme.Tokens[key]; ok && v != "" {
			return v
		}
	}
	return DefaultTokens()[key]
}
