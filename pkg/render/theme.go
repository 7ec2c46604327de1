package render

import (
	"maps"

	theme "github.com/goliatone/go-theme"
)

// Token keys understood by the renderers.
const (
	TokenStatusBase    = "status.base"
	TokenStatusSuccess = "status.success"
	TokenStatusFailure = "status.failure"
	TokenTable         = "table.class"
	TokenActionButton  = "table.action"
	TokenEmpty         = "list.empty"
	TokenError         = "list.error"
)

// DefaultTokens are the Bootstrap classes the herd pages use.
func DefaultTokens() map[string]string {
	return map[string]string{
		TokenStatusBase:    "alert",
		TokenStatusSuccess: "alert-success",
		TokenStatusFailure: "alert-danger",
		TokenTable:         "table table-bordered",
		TokenActionButton:  "btn btn-success validate-btn",
		TokenEmpty:         "list-empty",
		TokenError:         "list-error",
	}
}

// DefaultManifest describes the default theme.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "herd",
		Version: "1.0.0",
		Tokens:  DefaultTokens(),
	}
}

// ThemeConfig resolves a renderer configuration from a manifest and optional
// variant. Variant tokens override base tokens; every token is also exposed as
// a "--<key>" CSS variable.
func ThemeConfig(manifest *theme.Manifest, variant string) *theme.RendererConfig {
	if manifest == nil {
		manifest = DefaultManifest()
	}
	tokens := DefaultTokens()
	maps.Copy(tokens, manifest.Tokens)
	partials := maps.Clone(manifest.Templates)

	if v, ok := manifest.Variants[variant]; ok {
		maps.Copy(tokens, v.Tokens)
		if len(v.Templates) > 0 {
			if partials == nil {
				partials = make(map[string]string, len(v.Templates))
			}
			maps.Copy(partials, v.Templates)
		}
	} else {
		variant = ""
	}

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars["--"+key] = value
	}

	return &theme.RendererConfig{
		Theme:    manifest.Name,
		Variant:  variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  cssVars,
	}
}
